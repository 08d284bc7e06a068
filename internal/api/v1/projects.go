package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/orbitkit/missionctl/internal/domain"
)

type CreateProjectInput struct {
	Body struct {
		Name        string            `json:"name" minLength:"1" maxLength:"255" doc:"Project name"`
		Description string            `json:"description,omitempty" doc:"Mission description"`
		Type        string            `json:"type,omitempty" doc:"Project template type"`
		TechStack   map[string]string `json:"tech_stack,omitempty" doc:"Technology choices by layer"`
		AgentTeam   string            `json:"agent_team,omitempty" doc:"Agent team preset"`
		Objectives  []string          `json:"objectives,omitempty" doc:"Mission objectives"`
	}
}

type CreateProjectOutput struct {
	Body *domain.Project
}

type ListProjectsInput struct{}

type ListProjectsOutput struct {
	Body []*domain.Project
}

type GetProjectInput struct {
	ID uuid.UUID `path:"id" doc:"Project ID"`
}

type GetProjectOutput struct {
	Body *domain.Project
}

type DeleteProjectInput struct {
	ID uuid.UUID `path:"id" doc:"Project ID"`
}

func RegisterProjectRoutes(api huma.API, store DataStore, broadcaster Broadcaster) {
	huma.Register(api, huma.Operation{
		OperationID: "create-project",
		Method:      http.MethodPost,
		Path:        "/projects",
		Summary:     "Create a new project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *CreateProjectInput) (*CreateProjectOutput, error) {
		p, err := domain.NewProject(input.Body.Name, input.Body.Description, input.Body.Type, input.Body.AgentTeam, input.Body.TechStack, input.Body.Objectives)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		if createErr := store.Projects().Create(ctx, p); createErr != nil {
			return nil, huma.Error500InternalServerError("failed to create project", createErr)
		}

		// Every dashboard learns about new projects, not just subscribers.
		broadcaster.BroadcastAll(ctx, domain.NewEvent(domain.EventProjectCreated, p.ID.String(), p))

		return &CreateProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, _ *ListProjectsInput) (*ListProjectsOutput, error) {
		projects, err := store.Projects().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list projects", err)
		}

		return &ListProjectsOutput{Body: projects}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get a project by ID",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *GetProjectInput) (*GetProjectOutput, error) {
		p, err := store.Projects().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("project not found")
			}
			return nil, huma.Error500InternalServerError("failed to get project", err)
		}

		return &GetProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{id}",
		Summary:     "Delete a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *DeleteProjectInput) (*struct{}, error) {
		if err := store.Projects().Delete(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("project not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete project", err)
		}

		return nil, nil
	})
}
