// Package agent tracks the fixed roster of workflow agents and which
// project each one is currently deployed to. Actual agent execution is
// delegated to external processes; this pool only does the bookkeeping
// the dashboard surfaces.
package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrUnknownAgent is returned when a requested agent ID is not in the roster.
var ErrUnknownAgent = errors.New("agent: unknown agent id")

// ErrAgentBusy is returned when deploying an agent that is already deployed.
var ErrAgentBusy = errors.New("agent: already deployed")

// Profile describes one agent in the roster.
type Profile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities"`
}

// Status is a Profile plus its current deployment state.
type Status struct {
	Profile
	Status     string    `json:"status"` // "available" or "deployed"
	ProjectID  string    `json:"project_id,omitempty"`
	Task       string    `json:"task,omitempty"`
	DeployedAt time.Time `json:"deployed_at,omitzero"`
}

type deployment struct {
	projectID  string
	task       string
	deployedAt time.Time
}

// Pool holds the roster and active deployments, guarded by one mutex.
type Pool struct {
	mu          sync.RWMutex
	profiles    map[string]Profile
	deployments map[string]deployment
}

// NewPool creates a Pool with the default mission-control roster.
func NewPool() *Pool {
	roster := []Profile{
		{ID: "pm", Name: "PROJECT MANAGER", Role: "Mission Coordinator", Capabilities: []string{"project planning", "coordination", "stakeholder management"}},
		{ID: "architect", Name: "SYSTEM ARCHITECT", Role: "Infrastructure Designer", Capabilities: []string{"system design", "architecture planning", "technical documentation"}},
		{ID: "dev", Name: "CORE DEVELOPER", Role: "Code Implementation Specialist", Capabilities: []string{"code development", "implementation", "debugging", "testing"}},
		{ID: "qa", Name: "QUALITY ASSURANCE", Role: "Testing and Validation Unit", Capabilities: []string{"testing", "quality validation", "performance analysis"}},
		{ID: "ux-expert", Name: "UX SPECIALIST", Role: "User Experience Designer", Capabilities: []string{"ui design", "user research", "accessibility"}},
		{ID: "po", Name: "PRODUCT OWNER", Role: "Requirements and Vision Keeper", Capabilities: []string{"requirements gathering", "user stories", "acceptance criteria"}},
	}

	profiles := make(map[string]Profile, len(roster))
	for _, p := range roster {
		profiles[p.ID] = p
	}

	return &Pool{
		profiles:    profiles,
		deployments: make(map[string]deployment),
	}
}

// Deploy marks the given agents as deployed to a project. Unknown or busy
// agents fail the whole call; nothing is partially deployed.
func (p *Pool) Deploy(projectID string, agentIDs []string, task string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range agentIDs {
		if _, ok := p.profiles[id]; !ok {
			return fmt.Errorf("agent.Pool.Deploy(%q): %w", id, ErrUnknownAgent)
		}
		if _, busy := p.deployments[id]; busy {
			return fmt.Errorf("agent.Pool.Deploy(%q): %w", id, ErrAgentBusy)
		}
	}

	now := time.Now()
	for _, id := range agentIDs {
		p.deployments[id] = deployment{projectID: projectID, task: task, deployedAt: now}
	}
	return nil
}

// Profile returns the roster profile for the given agent ID.
func (p *Pool) Profile(id string) (Profile, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	prof, ok := p.profiles[id]
	return prof, ok
}

// Recall releases every agent deployed to the given project.
func (p *Pool) Recall(projectID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, d := range p.deployments {
		if d.projectID == projectID {
			delete(p.deployments, id)
		}
	}
}

// Roster returns the status of every agent, sorted by ID.
func (p *Pool) Roster() []Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Status, 0, len(p.profiles))
	for id, profile := range p.profiles {
		st := Status{Profile: profile, Status: "available"}
		if d, ok := p.deployments[id]; ok {
			st.Status = "deployed"
			st.ProjectID = d.projectID
			st.Task = d.task
			st.DeployedAt = d.deployedAt
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// ActiveCount returns how many agents are currently deployed.
func (p *Pool) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.deployments)
}
