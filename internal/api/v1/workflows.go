package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/orbitkit/missionctl/internal/domain"
	"github.com/orbitkit/missionctl/internal/workflow"
)

type StartWorkflowInput struct {
	ProjectID string `path:"projectID" minLength:"1" doc:"Project ID"`
}

type StartWorkflowOutput struct {
	Body *domain.WorkflowRun
}

type PauseWorkflowInput struct {
	ProjectID string `path:"projectID" minLength:"1" doc:"Project ID"`
}

type PauseWorkflowOutput struct {
	Body struct {
		Status domain.WorkflowStatus `json:"status"`
	}
}

type StopWorkflowInput struct {
	ProjectID string `path:"projectID" minLength:"1" doc:"Project ID"`
}

type StopWorkflowOutput struct {
	Body struct {
		Status domain.WorkflowStatus `json:"status"`
	}
}

type WorkflowStatusInput struct {
	ProjectID string `path:"projectID" minLength:"1" doc:"Project ID"`
}

type WorkflowStatusOutput struct {
	Body *domain.WorkflowRun
}

func RegisterWorkflowRoutes(api huma.API, runner WorkflowRunner) {
	huma.Register(api, huma.Operation{
		OperationID: "start-workflow",
		Method:      http.MethodPost,
		Path:        "/workflows/{projectID}/start",
		Summary:     "Start the workflow for a project",
		Tags:        []string{"Workflows"},
	}, func(ctx context.Context, input *StartWorkflowInput) (*StartWorkflowOutput, error) {
		run, err := runner.Start(ctx, input.ProjectID)
		if err != nil {
			if errors.Is(err, workflow.ErrAlreadyRunning) {
				return nil, huma.Error409Conflict("workflow already running")
			}
			return nil, huma.Error500InternalServerError("failed to start workflow", err)
		}

		return &StartWorkflowOutput{Body: run}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pause-workflow",
		Method:      http.MethodPost,
		Path:        "/workflows/{projectID}/pause",
		Summary:     "Pause a running workflow",
		Tags:        []string{"Workflows"},
	}, func(ctx context.Context, input *PauseWorkflowInput) (*PauseWorkflowOutput, error) {
		if err := runner.Pause(ctx, input.ProjectID); err != nil {
			if errors.Is(err, workflow.ErrRunNotFound) {
				return nil, huma.Error404NotFound("workflow not found")
			}
			return nil, huma.Error500InternalServerError("failed to pause workflow", err)
		}

		out := &PauseWorkflowOutput{}
		out.Body.Status = domain.WorkflowPaused
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "stop-workflow",
		Method:      http.MethodPost,
		Path:        "/workflows/{projectID}/stop",
		Summary:     "Stop and discard a workflow",
		Tags:        []string{"Workflows"},
	}, func(ctx context.Context, input *StopWorkflowInput) (*StopWorkflowOutput, error) {
		if err := runner.Stop(ctx, input.ProjectID); err != nil {
			if errors.Is(err, workflow.ErrRunNotFound) {
				return nil, huma.Error404NotFound("workflow not found")
			}
			return nil, huma.Error500InternalServerError("failed to stop workflow", err)
		}

		out := &StopWorkflowOutput{}
		out.Body.Status = domain.WorkflowStopped
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "workflow-status",
		Method:      http.MethodGet,
		Path:        "/workflows/{projectID}",
		Summary:     "Get the current workflow run state",
		Tags:        []string{"Workflows"},
	}, func(_ context.Context, input *WorkflowStatusInput) (*WorkflowStatusOutput, error) {
		run, err := runner.Status(input.ProjectID)
		if err != nil {
			if errors.Is(err, workflow.ErrRunNotFound) {
				return nil, huma.Error404NotFound("workflow not found")
			}
			return nil, huma.Error500InternalServerError("failed to get workflow status", err)
		}

		return &WorkflowStatusOutput{Body: run}, nil
	})
}
