package domain

import (
	"fmt"
	"time"
)

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepActive    StepStatus = "active"
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
)

// Terminal reports whether no further transitions are accepted.
func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepError
}

// StepView is a non-authoritative projection of one workflow step.
// It is mutated only through Transition and AdvanceProgress, which
// enforce terminality and monotonic progress.
type StepView struct {
	Name     string     `json:"name"`
	Agent    string     `json:"agent"`
	Status   StepStatus `json:"status"`
	Progress int        `json:"progress"` // 0..100
}

// Transition moves the step to the next status. Transitions out of a
// terminal status are rejected with ErrTerminalState. Completing a step
// snaps progress to 100.
func (v *StepView) Transition(next StepStatus) error {
	if v.Status.Terminal() {
		return fmt.Errorf("step %q: cannot transition %s -> %s: %w", v.Name, v.Status, next, ErrTerminalState)
	}
	v.Status = next
	if next == StepCompleted {
		v.Progress = 100
	}
	return nil
}

// AdvanceProgress raises the step's progress while active. Progress is
// monotonically non-decreasing and clamped to [0,100]; updates on a
// non-active step are ignored.
func (v *StepView) AdvanceProgress(progress int) {
	if v.Status != StepActive {
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress > v.Progress {
		v.Progress = progress
	}
}

// AgentView is a non-authoritative projection of one agent's state.
// An agent is only active while its owning step is active; that pairing
// is a UI convention, not a contract enforced here.
type AgentView struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Role     string     `json:"role"`
	Status   StepStatus `json:"status"`
	Progress int        `json:"progress"`
}

// Transition mirrors StepView.Transition for agents.
func (v *AgentView) Transition(next StepStatus) error {
	if v.Status.Terminal() {
		return fmt.Errorf("agent %q: cannot transition %s -> %s: %w", v.ID, v.Status, next, ErrTerminalState)
	}
	v.Status = next
	if next == StepCompleted {
		v.Progress = 100
	}
	return nil
}

// AdvanceProgress mirrors StepView.AdvanceProgress for agents.
func (v *AgentView) AdvanceProgress(progress int) {
	if v.Status != StepActive {
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress > v.Progress {
		v.Progress = progress
	}
}

type WorkflowStatus string

const (
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowPaused    WorkflowStatus = "paused"
	WorkflowStopped   WorkflowStatus = "stopped"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowError     WorkflowStatus = "error"
)

// WorkflowRun holds the view-state projection for one project's workflow.
// It is rebuilt from scratch on every start; nothing here is persisted.
type WorkflowRun struct {
	ProjectID   string         `json:"project_id"`
	Status      WorkflowStatus `json:"status"`
	CurrentStep int            `json:"current_step"`
	Steps       []*StepView    `json:"steps"`
	Agents      []*AgentView   `json:"agents"`
	Logs        []string       `json:"logs"`
	StartedAt   time.Time      `json:"started_at"`
}
