package v1

import (
	"context"

	"github.com/orbitkit/missionctl/internal/agent"
	"github.com/orbitkit/missionctl/internal/api/ws"
	"github.com/orbitkit/missionctl/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Projects() domain.ProjectRepository
}

// WorkflowRunner abstracts workflow lifecycle operations for handler testing.
// *workflow.Runner satisfies this interface.
type WorkflowRunner interface {
	Start(ctx context.Context, projectID string) (*domain.WorkflowRun, error)
	Pause(ctx context.Context, projectID string) error
	Stop(ctx context.Context, projectID string) error
	Status(projectID string) (*domain.WorkflowRun, error)
	ActiveRuns() int
}

// Broadcaster abstracts the registry's fan-out for handler testing.
// *ws.Registry satisfies this interface.
type Broadcaster interface {
	BroadcastAll(ctx context.Context, ev domain.Event) int
}

// AgentRoster abstracts the agent pool for handler testing.
// *agent.Pool satisfies this interface.
type AgentRoster interface {
	Roster() []agent.Status
	ActiveCount() int
}

// ConnectionStats abstracts registry occupancy for the system-status surface.
// *ws.Registry satisfies this interface.
type ConnectionStats interface {
	Stats() ws.Stats
}
