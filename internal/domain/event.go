package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType enumerates every event kind the relay understands. The set is
// closed: envelopes carrying any other type are rejected at decode time
// instead of being silently dropped downstream.
type EventType string

const (
	EventConnectionEstablished EventType = "connection_established"
	EventSubscriptionConfirmed EventType = "subscription_confirmed"
	EventSubscriptionRemoved   EventType = "subscription_removed"
	EventPong                  EventType = "pong"
	EventProjectCreated        EventType = "project_created"
	EventWorkflowStarted       EventType = "workflow_started"
	EventWorkflowPaused        EventType = "workflow_paused"
	EventWorkflowStopped       EventType = "workflow_stopped"
	EventStepStarted           EventType = "step_started"
	EventStepProgress          EventType = "step_progress"
	EventStepCompleted         EventType = "step_completed"
	EventAgentStatusUpdate     EventType = "agent_status_update"
	EventWorkflowCompleted     EventType = "workflow_completed"
	EventWorkflowError         EventType = "workflow_error"
	EventSystemStatusUpdate    EventType = "system_status_update"
)

var knownEventTypes = map[EventType]struct{}{
	EventConnectionEstablished: {},
	EventSubscriptionConfirmed: {},
	EventSubscriptionRemoved:   {},
	EventPong:                  {},
	EventProjectCreated:        {},
	EventWorkflowStarted:       {},
	EventWorkflowPaused:        {},
	EventWorkflowStopped:       {},
	EventStepStarted:           {},
	EventStepProgress:          {},
	EventStepCompleted:         {},
	EventAgentStatusUpdate:     {},
	EventWorkflowCompleted:     {},
	EventWorkflowError:         {},
	EventSystemStatusUpdate:    {},
}

// Valid reports whether t is one of the recognized event kinds.
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// Event is the envelope delivered to real-time clients. Events are
// ephemeral; delivery is best-effort, at-most-once per recipient.
type Event struct {
	Type      EventType `json:"type"`
	ProjectID string    `json:"project_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DecodeEvent parses an event envelope from its wire form, rejecting
// unrecognized event kinds.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("domain.DecodeEvent: %w", err)
	}
	if !ev.Type.Valid() {
		return Event{}, fmt.Errorf("domain.DecodeEvent: unknown event type %q", ev.Type)
	}
	return ev, nil
}

// --- payloads ---

type ConnectionEstablishedPayload struct {
	ConnectionID string `json:"connection_id"`
	Message      string `json:"message"`
}

type SubscriptionPayload struct {
	ProjectID string `json:"project_id"`
	Message   string `json:"message"`
}

type StepStartedPayload struct {
	StepIndex int    `json:"step_index"`
	Step      string `json:"step"`
	Agent     string `json:"agent"`
}

type StepProgressPayload struct {
	StepIndex int    `json:"step_index"`
	Step      string `json:"step"`
	Progress  int    `json:"progress"`
}

type StepCompletedPayload struct {
	StepIndex int    `json:"step_index"`
	Step      string `json:"step"`
}

type AgentStatusPayload struct {
	AgentID  string     `json:"agent_id"`
	Status   StepStatus `json:"status"`
	Progress int        `json:"progress"`
	Task     string     `json:"task,omitempty"`
}

type WorkflowErrorPayload struct {
	Error string `json:"error"`
}

// --- constructors ---

func NewEvent(t EventType, projectID string, payload any) Event {
	return Event{Type: t, ProjectID: projectID, Payload: payload, Timestamp: time.Now()}
}

func NewConnectionEstablished(connectionID string) Event {
	return NewEvent(EventConnectionEstablished, "", ConnectionEstablishedPayload{
		ConnectionID: connectionID,
		Message:      "connected to mission control real-time channel",
	})
}

func NewSubscriptionConfirmed(projectID string) Event {
	return NewEvent(EventSubscriptionConfirmed, projectID, SubscriptionPayload{
		ProjectID: projectID,
		Message:   "subscribed to project updates",
	})
}

func NewSubscriptionRemoved(projectID string) Event {
	return NewEvent(EventSubscriptionRemoved, projectID, SubscriptionPayload{
		ProjectID: projectID,
		Message:   "unsubscribed from project updates",
	})
}

func NewStepStarted(projectID string, stepIndex int, step *StepView) Event {
	return NewEvent(EventStepStarted, projectID, StepStartedPayload{
		StepIndex: stepIndex,
		Step:      step.Name,
		Agent:     step.Agent,
	})
}

func NewStepProgress(projectID string, stepIndex int, step string, progress int) Event {
	return NewEvent(EventStepProgress, projectID, StepProgressPayload{
		StepIndex: stepIndex,
		Step:      step,
		Progress:  progress,
	})
}

func NewStepCompleted(projectID string, stepIndex int, step string) Event {
	return NewEvent(EventStepCompleted, projectID, StepCompletedPayload{
		StepIndex: stepIndex,
		Step:      step,
	})
}

func NewAgentStatusUpdate(projectID string, agent *AgentView, task string) Event {
	return NewEvent(EventAgentStatusUpdate, projectID, AgentStatusPayload{
		AgentID:  agent.ID,
		Status:   agent.Status,
		Progress: agent.Progress,
		Task:     task,
	})
}

func NewWorkflowError(projectID, errMsg string) Event {
	return NewEvent(EventWorkflowError, projectID, WorkflowErrorPayload{Error: errMsg})
}
