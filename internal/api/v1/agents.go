package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/orbitkit/missionctl/internal/agent"
)

type ListAgentsInput struct{}

type ListAgentsOutput struct {
	Body []agent.Status
}

func RegisterAgentRoutes(api huma.API, pool AgentRoster) {
	huma.Register(api, huma.Operation{
		OperationID: "list-agents",
		Method:      http.MethodGet,
		Path:        "/agents",
		Summary:     "List the agent roster with deployment state",
		Tags:        []string{"Agents"},
	}, func(_ context.Context, _ *ListAgentsInput) (*ListAgentsOutput, error) {
		return &ListAgentsOutput{Body: pool.Roster()}, nil
	})
}
