package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/orbitkit/missionctl/internal/domain"
	"github.com/orbitkit/missionctl/internal/workflow"
)

type ListWorkflowDefinitionsInput struct{}

type ListWorkflowDefinitionsOutput struct {
	Body []workflow.Definition
}

type ListTemplatesInput struct{}

type ListTemplatesOutput struct {
	Body []domain.Template
}

// RegisterCatalogRoutes exposes the static catalogs the project-creation
// form is built from: workflow presets and document templates.
func RegisterCatalogRoutes(api huma.API, definitions []workflow.Definition, templates []domain.Template) {
	huma.Register(api, huma.Operation{
		OperationID: "list-workflow-definitions",
		Method:      http.MethodGet,
		Path:        "/workflows",
		Summary:     "List the available workflow presets",
		Tags:        []string{"Workflows"},
	}, func(_ context.Context, _ *ListWorkflowDefinitionsInput) (*ListWorkflowDefinitionsOutput, error) {
		return &ListWorkflowDefinitionsOutput{Body: definitions}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-templates",
		Method:      http.MethodGet,
		Path:        "/templates",
		Summary:     "List the available document templates",
		Tags:        []string{"Templates"},
	}, func(_ context.Context, _ *ListTemplatesInput) (*ListTemplatesOutput, error) {
		return &ListTemplatesOutput{Body: templates}, nil
	})
}
