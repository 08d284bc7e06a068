package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/orbitkit/missionctl/internal/api/ws"
)

// SystemInfo gathers the live components the status endpoint reports on.
type SystemInfo struct {
	Version   string
	StartedAt time.Time
	Runner    WorkflowRunner
	Pool      AgentRoster
	Conns     ConnectionStats
}

type SystemStatusInput struct{}

type SystemStatusOutput struct {
	Body SystemStatusBody
}

type SystemStatusBody struct {
	Status          string   `json:"status"`
	Version         string   `json:"version"`
	Uptime          string   `json:"uptime"`
	ActiveWorkflows int      `json:"active_workflows"`
	ActiveAgents    int      `json:"active_agents"`
	Connections     ws.Stats `json:"connections"`
}

func RegisterSystemRoutes(api huma.API, info *SystemInfo) {
	huma.Register(api, huma.Operation{
		OperationID: "system-status",
		Method:      http.MethodGet,
		Path:        "/system/status",
		Summary:     "Get detailed system status",
		Tags:        []string{"System"},
	}, func(_ context.Context, _ *SystemStatusInput) (*SystemStatusOutput, error) {
		return &SystemStatusOutput{Body: SystemStatusBody{
			Status:          "operational",
			Version:         info.Version,
			Uptime:          time.Since(info.StartedAt).Round(time.Second).String(),
			ActiveWorkflows: info.Runner.ActiveRuns(),
			ActiveAgents:    info.Pool.ActiveCount(),
			Connections:     info.Conns.Stats(),
		}}, nil
	})
}
