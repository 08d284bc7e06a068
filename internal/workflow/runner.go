package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/orbitkit/missionctl/internal/agent"
	"github.com/orbitkit/missionctl/internal/domain"
)

// ErrAlreadyRunning is returned when starting a workflow that is already live.
var ErrAlreadyRunning = errors.New("workflow: already running")

// ErrRunNotFound is returned when no run exists for the project.
var ErrRunNotFound = errors.New("workflow: run not found")

// Broadcaster is the outbound side of the relay, satisfied by the ws registry.
type Broadcaster interface {
	BroadcastToProject(ctx context.Context, projectID string, ev domain.Event) int
}

// ProjectStatusRecorder persists a project's lifecycle status as its runs
// progress, satisfied by the postgres project repository. May be nil.
type ProjectStatusRecorder interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProjectStatus) error
}

type runState struct {
	state  *domain.WorkflowRun
	cancel context.CancelFunc
}

// Runner manages one workflow run per project: it consumes the run's event
// source, applies each event to the non-authoritative view projection, and
// relays it to the project's subscribers. The consuming path is identical
// whether the source is simulated or live.
type Runner struct {
	source      Source
	broadcaster Broadcaster
	pool        *agent.Pool
	catalog     []StepSpec
	statuses    ProjectStatusRecorder

	mu   sync.Mutex
	runs map[string]*runState
	wg   sync.WaitGroup
}

func NewRunner(source Source, broadcaster Broadcaster, pool *agent.Pool, catalog []StepSpec, statuses ProjectStatusRecorder) *Runner {
	return &Runner{
		source:      source,
		broadcaster: broadcaster,
		pool:        pool,
		catalog:     catalog,
		statuses:    statuses,
		runs:        make(map[string]*runState),
	}
}

// Start begins a workflow run for the project. A project may have at most
// one live run; completed or stopped runs are replaced.
func (r *Runner) Start(ctx context.Context, projectID string) (*domain.WorkflowRun, error) {
	r.mu.Lock()
	if old, ok := r.runs[projectID]; ok {
		if isLive(old.state.Status) {
			r.mu.Unlock()
			return nil, fmt.Errorf("workflow.Runner.Start(%q): %w", projectID, ErrAlreadyRunning)
		}
		// Release the finished run's context before replacing it, or its
		// source subscription would outlive the run map entry.
		old.cancel()
	}

	state := r.newRunState(projectID)

	// The run outlives the HTTP request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rs := &runState{state: state, cancel: cancel}
	r.runs[projectID] = rs
	snapshot := cloneRun(state)
	r.mu.Unlock()

	if err := r.pool.Deploy(projectID, agentIDs(r.catalog), "workflow run"); err != nil {
		// Roster contention does not block the run; the pool view just
		// won't show these agents as deployed.
		log.Warn().Err(err).Str("project_id", projectID).Msg("workflow: agent deploy skipped")
	}

	events, err := r.source.Events(runCtx, projectID)
	if err != nil {
		cancel()
		r.mu.Lock()
		delete(r.runs, projectID)
		r.mu.Unlock()
		r.pool.Recall(projectID)
		return nil, fmt.Errorf("workflow.Runner.Start(%q): %w", projectID, err)
	}

	r.broadcaster.BroadcastToProject(ctx, projectID, domain.NewEvent(domain.EventWorkflowStarted, projectID, snapshot))
	r.recordProjectStatus(ctx, projectID, domain.ProjectStatusRunning)

	r.wg.Add(1)
	go r.consume(runCtx, cancel, projectID, events)

	log.Info().Str("project_id", projectID).Msg("workflow started")

	return snapshot, nil
}

// Pause suspends relay for the project's run. Events arriving while paused
// are dropped, consistent with at-most-once delivery.
func (r *Runner) Pause(ctx context.Context, projectID string) error {
	r.mu.Lock()
	rs, ok := r.runs[projectID]
	if !ok || !isLive(rs.state.Status) {
		r.mu.Unlock()
		return fmt.Errorf("workflow.Runner.Pause(%q): %w", projectID, ErrRunNotFound)
	}
	rs.state.Status = domain.WorkflowPaused
	r.mu.Unlock()

	r.broadcaster.BroadcastToProject(ctx, projectID, domain.NewEvent(domain.EventWorkflowPaused, projectID, nil))
	return nil
}

// Stop cancels the project's run and discards its state.
func (r *Runner) Stop(ctx context.Context, projectID string) error {
	r.mu.Lock()
	rs, ok := r.runs[projectID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("workflow.Runner.Stop(%q): %w", projectID, ErrRunNotFound)
	}
	rs.cancel()
	rs.state.Status = domain.WorkflowStopped
	delete(r.runs, projectID)
	r.mu.Unlock()

	r.pool.Recall(projectID)
	r.broadcaster.BroadcastToProject(ctx, projectID, domain.NewEvent(domain.EventWorkflowStopped, projectID, nil))

	log.Info().Str("project_id", projectID).Msg("workflow stopped")
	return nil
}

// Status returns a snapshot of the project's run state.
func (r *Runner) Status(projectID string) (*domain.WorkflowRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.runs[projectID]
	if !ok {
		return nil, fmt.Errorf("workflow.Runner.Status(%q): %w", projectID, ErrRunNotFound)
	}
	return cloneRun(rs.state), nil
}

// ActiveRuns counts runs that are currently running or paused.
func (r *Runner) ActiveRuns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, rs := range r.runs {
		if isLive(rs.state.Status) {
			n++
		}
	}
	return n
}

// Shutdown cancels every run and waits for the consumers to drain.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	for _, rs := range r.runs {
		rs.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Runner) consume(ctx context.Context, cancel context.CancelFunc, projectID string, events <-chan domain.Event) {
	defer r.wg.Done()
	// The run's context must die with its consumer, or a live source's
	// subscription would linger after natural completion.
	defer cancel()

	for ev := range events {
		r.mu.Lock()
		rs, ok := r.runs[projectID]
		if !ok {
			r.mu.Unlock()
			return
		}
		if rs.state.Status == domain.WorkflowPaused {
			r.mu.Unlock()
			continue
		}
		applyErr := applyEvent(rs.state, ev)
		done := rs.state.Status == domain.WorkflowCompleted || rs.state.Status == domain.WorkflowError
		r.mu.Unlock()

		if applyErr != nil {
			// Rejected transitions (e.g. out of a terminal step) are not
			// relayed; the projection stays consistent.
			log.Warn().Err(applyErr).Str("project_id", projectID).Str("event", string(ev.Type)).Msg("workflow: event rejected")
			continue
		}

		r.broadcaster.BroadcastToProject(ctx, projectID, ev)

		if done {
			final := domain.ProjectStatusComplete
			if ev.Type == domain.EventWorkflowError {
				final = domain.ProjectStatusError
			}
			r.recordProjectStatus(ctx, projectID, final)
			break
		}
	}

	r.pool.Recall(projectID)
}

// recordProjectStatus persists the project's lifecycle status. Projects
// without a uuid identity (ad-hoc dashboard runs) have nothing to persist.
func (r *Runner) recordProjectStatus(ctx context.Context, projectID string, status domain.ProjectStatus) {
	if r.statuses == nil {
		return
	}
	id, err := uuid.Parse(projectID)
	if err != nil {
		return
	}
	if err := r.statuses.UpdateStatus(ctx, id, status); err != nil {
		log.Warn().Err(err).Str("project_id", projectID).Str("status", string(status)).Msg("workflow: project status update failed")
	}
}

func (r *Runner) newRunState(projectID string) *domain.WorkflowRun {
	steps := make([]*domain.StepView, 0, len(r.catalog))
	agents := make([]*domain.AgentView, 0, len(r.catalog))
	seen := make(map[string]struct{})

	for _, spec := range r.catalog {
		steps = append(steps, &domain.StepView{Name: spec.Name, Agent: spec.Agent, Status: domain.StepPending})
		if _, ok := seen[spec.Agent]; !ok {
			seen[spec.Agent] = struct{}{}
			view := &domain.AgentView{ID: spec.Agent, Status: domain.StepPending}
			if prof, found := r.pool.Profile(spec.Agent); found {
				view.Name = prof.Name
				view.Role = prof.Role
			}
			agents = append(agents, view)
		}
	}

	return &domain.WorkflowRun{
		ProjectID: projectID,
		Status:    domain.WorkflowRunning,
		Steps:     steps,
		Agents:    agents,
		StartedAt: time.Now(),
	}
}

// applyEvent folds one relay event into the run's view projection.
func applyEvent(state *domain.WorkflowRun, ev domain.Event) error {
	switch ev.Type {
	case domain.EventStepStarted:
		p, err := payloadAs[domain.StepStartedPayload](ev)
		if err != nil {
			return err
		}
		step := stepAt(state, p.StepIndex)
		if step == nil {
			return fmt.Errorf("workflow: step index %d out of range", p.StepIndex)
		}
		if err := step.Transition(domain.StepActive); err != nil {
			return err
		}
		state.CurrentStep = p.StepIndex
		if a := agentByID(state, step.Agent); a != nil {
			if err := a.Transition(domain.StepActive); err != nil {
				return err
			}
		}
		state.Logs = append(state.Logs, "step started: "+step.Name)

	case domain.EventStepProgress:
		p, err := payloadAs[domain.StepProgressPayload](ev)
		if err != nil {
			return err
		}
		step := stepAt(state, p.StepIndex)
		if step == nil {
			return fmt.Errorf("workflow: step index %d out of range", p.StepIndex)
		}
		step.AdvanceProgress(p.Progress)

	case domain.EventStepCompleted:
		p, err := payloadAs[domain.StepCompletedPayload](ev)
		if err != nil {
			return err
		}
		step := stepAt(state, p.StepIndex)
		if step == nil {
			return fmt.Errorf("workflow: step index %d out of range", p.StepIndex)
		}
		if err := step.Transition(domain.StepCompleted); err != nil {
			return err
		}
		if a := agentByID(state, step.Agent); a != nil {
			if err := a.Transition(domain.StepCompleted); err != nil {
				return err
			}
		}
		state.Logs = append(state.Logs, "step completed: "+step.Name)

	case domain.EventAgentStatusUpdate:
		p, err := payloadAs[domain.AgentStatusPayload](ev)
		if err != nil {
			return err
		}
		a := agentByID(state, p.AgentID)
		if a == nil {
			return fmt.Errorf("workflow: unknown agent %q", p.AgentID)
		}
		if p.Status != a.Status {
			if err := a.Transition(p.Status); err != nil {
				return err
			}
		}
		a.AdvanceProgress(p.Progress)

	case domain.EventWorkflowCompleted:
		state.Status = domain.WorkflowCompleted
		state.Logs = append(state.Logs, "workflow completed")

	case domain.EventWorkflowError:
		state.Status = domain.WorkflowError
		if step := stepAt(state, state.CurrentStep); step != nil && !step.Status.Terminal() {
			_ = step.Transition(domain.StepError)
		}

	default:
		// Relay-only kinds carry no projection state.
	}

	return nil
}

func isLive(s domain.WorkflowStatus) bool {
	return s == domain.WorkflowRunning || s == domain.WorkflowPaused
}

func stepAt(state *domain.WorkflowRun, idx int) *domain.StepView {
	if idx < 0 || idx >= len(state.Steps) {
		return nil
	}
	return state.Steps[idx]
}

func agentByID(state *domain.WorkflowRun, id string) *domain.AgentView {
	for _, a := range state.Agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func agentIDs(catalog []StepSpec) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, spec := range catalog {
		if _, ok := seen[spec.Agent]; !ok {
			seen[spec.Agent] = struct{}{}
			ids = append(ids, spec.Agent)
		}
	}
	return ids
}

// payloadAs converts an event payload to its typed form. Simulated events
// carry the struct directly; live events arrive as decoded JSON maps, so
// the conversion goes through a marshal round-trip.
func payloadAs[T any](ev domain.Event) (T, error) {
	var out T
	if typed, ok := ev.Payload.(T); ok {
		return typed, nil
	}
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return out, fmt.Errorf("workflow: encode payload: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("workflow: decode %s payload: %w", ev.Type, err)
	}
	return out, nil
}

func cloneRun(state *domain.WorkflowRun) *domain.WorkflowRun {
	out := &domain.WorkflowRun{
		ProjectID:   state.ProjectID,
		Status:      state.Status,
		CurrentStep: state.CurrentStep,
		StartedAt:   state.StartedAt,
		Steps:       make([]*domain.StepView, len(state.Steps)),
		Agents:      make([]*domain.AgentView, len(state.Agents)),
		Logs:        append([]string(nil), state.Logs...),
	}
	for i, s := range state.Steps {
		copied := *s
		out.Steps[i] = &copied
	}
	for i, a := range state.Agents {
		copied := *a
		out.Agents[i] = &copied
	}
	return out
}
