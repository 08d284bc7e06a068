package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitkit/missionctl/internal/agent"
	"github.com/orbitkit/missionctl/internal/domain"
	"github.com/orbitkit/missionctl/internal/workflow"
)

// --- fakes ---

// chanSource feeds a test-controlled event stream to the runner.
type chanSource struct {
	ch chan domain.Event
}

func newChanSource() *chanSource {
	return &chanSource{ch: make(chan domain.Event, 32)}
}

func (s *chanSource) Events(ctx context.Context, _ string) (<-chan domain.Event, error) {
	out := make(chan domain.Event, 32)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-s.ch:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBroadcaster) BroadcastToProject(_ context.Context, _ string, ev domain.Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return 1
}

func (b *recordingBroadcaster) recorded() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Event, len(b.events))
	copy(out, b.events)
	return out
}

func (b *recordingBroadcaster) types() []domain.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.EventType, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Type)
	}
	return out
}

func testCatalog() []workflow.StepSpec {
	return []workflow.StepSpec{
		{Name: "planning", Agent: "pm"},
		{Name: "development", Agent: "dev"},
	}
}

// ---------------------------------------------------------------------------
// Start / relay.
// ---------------------------------------------------------------------------

func TestRunner_StartRelaysAndProjects(t *testing.T) {
	t.Parallel()

	src := newChanSource()
	bc := &recordingBroadcaster{}
	runner := workflow.NewRunner(src, bc, agent.NewPool(), testCatalog(), nil)
	t.Cleanup(runner.Shutdown)

	_, err := runner.Start(context.Background(), "proj-42")
	require.NoError(t, err)

	src.ch <- domain.NewStepStarted("proj-42", 0, &domain.StepView{Name: "planning", Agent: "pm"})
	src.ch <- domain.NewStepProgress("proj-42", 0, "planning", 50)
	src.ch <- domain.NewStepCompleted("proj-42", 0, "planning")
	src.ch <- domain.NewEvent(domain.EventWorkflowCompleted, "proj-42", nil)

	require.Eventually(t, func() bool {
		run, statusErr := runner.Status("proj-42")
		return statusErr == nil && run.Status == domain.WorkflowCompleted
	}, 2*time.Second, 10*time.Millisecond)

	run, err := runner.Status("proj-42")
	require.NoError(t, err)
	assert.Equal(t, domain.StepCompleted, run.Steps[0].Status)
	assert.Equal(t, 100, run.Steps[0].Progress)
	assert.Equal(t, domain.StepPending, run.Steps[1].Status)

	types := bc.types()
	assert.Equal(t, []domain.EventType{
		domain.EventWorkflowStarted,
		domain.EventStepStarted,
		domain.EventStepProgress,
		domain.EventStepCompleted,
		domain.EventWorkflowCompleted,
	}, types)
}

func TestRunner_StartTwice(t *testing.T) {
	t.Parallel()

	src := newChanSource()
	runner := workflow.NewRunner(src, &recordingBroadcaster{}, agent.NewPool(), testCatalog(), nil)
	t.Cleanup(runner.Shutdown)

	_, err := runner.Start(context.Background(), "proj-1")
	require.NoError(t, err)

	_, err = runner.Start(context.Background(), "proj-1")
	assert.ErrorIs(t, err, workflow.ErrAlreadyRunning)

	// A second project is independent.
	_, err = runner.Start(context.Background(), "proj-2")
	require.NoError(t, err)
	assert.Equal(t, 2, runner.ActiveRuns())
}

func TestRunner_RestartAfterCompletion(t *testing.T) {
	t.Parallel()

	src := newChanSource()
	runner := workflow.NewRunner(src, &recordingBroadcaster{}, agent.NewPool(), testCatalog(), nil)
	t.Cleanup(runner.Shutdown)

	_, err := runner.Start(context.Background(), "proj-1")
	require.NoError(t, err)

	src.ch <- domain.NewEvent(domain.EventWorkflowCompleted, "proj-1", nil)

	require.Eventually(t, func() bool {
		run, statusErr := runner.Status("proj-1")
		return statusErr == nil && run.Status == domain.WorkflowCompleted
	}, 2*time.Second, 10*time.Millisecond)

	_, err = runner.Start(context.Background(), "proj-1")
	require.NoError(t, err)
}

// ---------------------------------------------------------------------------
// Terminal-state rejection.
// ---------------------------------------------------------------------------

func TestRunner_RejectedEventNotRelayed(t *testing.T) {
	t.Parallel()

	src := newChanSource()
	bc := &recordingBroadcaster{}
	runner := workflow.NewRunner(src, bc, agent.NewPool(), testCatalog(), nil)
	t.Cleanup(runner.Shutdown)

	_, err := runner.Start(context.Background(), "proj-1")
	require.NoError(t, err)

	src.ch <- domain.NewStepStarted("proj-1", 0, &domain.StepView{Name: "planning", Agent: "pm"})
	src.ch <- domain.NewStepCompleted("proj-1", 0, "planning")
	// Reactivating a completed step must be rejected and not relayed.
	src.ch <- domain.NewStepStarted("proj-1", 0, &domain.StepView{Name: "planning", Agent: "pm"})
	src.ch <- domain.NewStepProgress("proj-1", 1, "development", 10)

	require.Eventually(t, func() bool {
		return len(bc.recorded()) == 4 // started + 2 step events + trailing progress
	}, 2*time.Second, 10*time.Millisecond)

	run, err := runner.Status("proj-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepCompleted, run.Steps[0].Status)

	for _, ev := range bc.recorded()[3:] {
		assert.NotEqual(t, domain.EventStepStarted, ev.Type)
	}
}

// ---------------------------------------------------------------------------
// Pause / Stop.
// ---------------------------------------------------------------------------

func TestRunner_PauseDropsEvents(t *testing.T) {
	t.Parallel()

	src := newChanSource()
	bc := &recordingBroadcaster{}
	runner := workflow.NewRunner(src, bc, agent.NewPool(), testCatalog(), nil)
	t.Cleanup(runner.Shutdown)

	_, err := runner.Start(context.Background(), "proj-1")
	require.NoError(t, err)

	require.NoError(t, runner.Pause(context.Background(), "proj-1"))

	src.ch <- domain.NewStepStarted("proj-1", 0, &domain.StepView{Name: "planning", Agent: "pm"})

	// Give the consumer a moment; the event must be dropped, not queued.
	time.Sleep(50 * time.Millisecond)

	run, err := runner.Status("proj-1")
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowPaused, run.Status)
	assert.Equal(t, domain.StepPending, run.Steps[0].Status)

	types := bc.types()
	assert.Equal(t, []domain.EventType{domain.EventWorkflowStarted, domain.EventWorkflowPaused}, types)
}

func TestRunner_Stop(t *testing.T) {
	t.Parallel()

	src := newChanSource()
	bc := &recordingBroadcaster{}
	pool := agent.NewPool()
	runner := workflow.NewRunner(src, bc, pool, testCatalog(), nil)
	t.Cleanup(runner.Shutdown)

	_, err := runner.Start(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 2, pool.ActiveCount())

	require.NoError(t, runner.Stop(context.Background(), "proj-1"))

	_, err = runner.Status("proj-1")
	assert.ErrorIs(t, err, workflow.ErrRunNotFound)
	assert.Equal(t, 0, pool.ActiveCount())
	assert.Equal(t, 0, runner.ActiveRuns())

	types := bc.types()
	assert.Equal(t, domain.EventWorkflowStopped, types[len(types)-1])
}

func TestRunner_PauseStopUnknownProject(t *testing.T) {
	t.Parallel()

	runner := workflow.NewRunner(newChanSource(), &recordingBroadcaster{}, agent.NewPool(), testCatalog(), nil)
	t.Cleanup(runner.Shutdown)

	assert.ErrorIs(t, runner.Pause(context.Background(), "ghost"), workflow.ErrRunNotFound)
	assert.ErrorIs(t, runner.Stop(context.Background(), "ghost"), workflow.ErrRunNotFound)

	_, err := runner.Status("ghost")
	assert.ErrorIs(t, err, workflow.ErrRunNotFound)
}

// ---------------------------------------------------------------------------
// Live-shaped payloads (decoded JSON maps instead of typed structs).
// ---------------------------------------------------------------------------

func TestRunner_AppliesDecodedPayloads(t *testing.T) {
	t.Parallel()

	src := newChanSource()
	runner := workflow.NewRunner(src, &recordingBroadcaster{}, agent.NewPool(), testCatalog(), nil)
	t.Cleanup(runner.Shutdown)

	_, err := runner.Start(context.Background(), "proj-1")
	require.NoError(t, err)

	started, err := domain.DecodeEvent([]byte(`{"type":"step_started","project_id":"proj-1","payload":{"step_index":0,"step":"planning","agent":"pm"}}`))
	require.NoError(t, err)
	progress, err := domain.DecodeEvent([]byte(`{"type":"step_progress","project_id":"proj-1","payload":{"step_index":0,"step":"planning","progress":75}}`))
	require.NoError(t, err)

	src.ch <- started
	src.ch <- progress

	require.Eventually(t, func() bool {
		run, statusErr := runner.Status("proj-1")
		return statusErr == nil && run.Steps[0].Progress == 75
	}, 2*time.Second, 10*time.Millisecond)

	run, err := runner.Status("proj-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepActive, run.Steps[0].Status)
}

// ---------------------------------------------------------------------------
// Run context lifetime.
// ---------------------------------------------------------------------------

// ctxTrackingSource records the context handed to each Events call so tests
// can observe when a run's context is released.
type ctxTrackingSource struct {
	inner *chanSource

	mu   sync.Mutex
	ctxs []context.Context
}

func (s *ctxTrackingSource) Events(ctx context.Context, projectID string) (<-chan domain.Event, error) {
	s.mu.Lock()
	s.ctxs = append(s.ctxs, ctx)
	s.mu.Unlock()
	return s.inner.Events(ctx, projectID)
}

func (s *ctxTrackingSource) ctxAt(i int) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctxs[i]
}

func TestRunner_ReleasesRunContext(t *testing.T) {
	t.Parallel()

	src := &ctxTrackingSource{inner: newChanSource()}
	runner := workflow.NewRunner(src, &recordingBroadcaster{}, agent.NewPool(), testCatalog(), nil)
	t.Cleanup(runner.Shutdown)

	_, err := runner.Start(context.Background(), "proj-1")
	require.NoError(t, err)

	src.inner.ch <- domain.NewEvent(domain.EventWorkflowCompleted, "proj-1", nil)

	// Natural completion must release the run's context, or a live
	// source's subscription would stay open forever.
	require.Eventually(t, func() bool {
		return src.ctxAt(0).Err() != nil
	}, 2*time.Second, 10*time.Millisecond)

	// Restarting the project hands the new run a fresh, live context.
	_, err = runner.Start(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.NoError(t, src.ctxAt(1).Err())

	runner.Shutdown()
	assert.Error(t, src.ctxAt(1).Err())
}

// ---------------------------------------------------------------------------
// Project status recording.
// ---------------------------------------------------------------------------

type recordingStatusRecorder struct {
	mu       sync.Mutex
	statuses []domain.ProjectStatus
}

func (r *recordingStatusRecorder) UpdateStatus(_ context.Context, _ uuid.UUID, status domain.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *recordingStatusRecorder) recorded() []domain.ProjectStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ProjectStatus, len(r.statuses))
	copy(out, r.statuses)
	return out
}

func TestRunner_RecordsProjectStatus(t *testing.T) {
	t.Parallel()

	t.Run("completed", func(t *testing.T) {
		t.Parallel()

		projectID := uuid.New().String()
		src := newChanSource()
		rec := &recordingStatusRecorder{}
		runner := workflow.NewRunner(src, &recordingBroadcaster{}, agent.NewPool(), testCatalog(), rec)
		t.Cleanup(runner.Shutdown)

		_, err := runner.Start(context.Background(), projectID)
		require.NoError(t, err)

		src.ch <- domain.NewEvent(domain.EventWorkflowCompleted, projectID, nil)

		require.Eventually(t, func() bool {
			return len(rec.recorded()) == 2
		}, 2*time.Second, 10*time.Millisecond)

		assert.Equal(t, []domain.ProjectStatus{domain.ProjectStatusRunning, domain.ProjectStatusComplete}, rec.recorded())
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()

		projectID := uuid.New().String()
		src := newChanSource()
		rec := &recordingStatusRecorder{}
		runner := workflow.NewRunner(src, &recordingBroadcaster{}, agent.NewPool(), testCatalog(), rec)
		t.Cleanup(runner.Shutdown)

		_, err := runner.Start(context.Background(), projectID)
		require.NoError(t, err)

		src.ch <- domain.NewWorkflowError(projectID, "agent crashed")

		require.Eventually(t, func() bool {
			return len(rec.recorded()) == 2
		}, 2*time.Second, 10*time.Millisecond)

		assert.Equal(t, []domain.ProjectStatus{domain.ProjectStatusRunning, domain.ProjectStatusError}, rec.recorded())
	})

	t.Run("non_uuid_project_skipped", func(t *testing.T) {
		t.Parallel()

		src := newChanSource()
		rec := &recordingStatusRecorder{}
		runner := workflow.NewRunner(src, &recordingBroadcaster{}, agent.NewPool(), testCatalog(), rec)
		t.Cleanup(runner.Shutdown)

		_, err := runner.Start(context.Background(), "proj-demo")
		require.NoError(t, err)

		src.ch <- domain.NewEvent(domain.EventWorkflowCompleted, "proj-demo", nil)

		require.Eventually(t, func() bool {
			run, statusErr := runner.Status("proj-demo")
			return statusErr == nil && run.Status == domain.WorkflowCompleted
		}, 2*time.Second, 10*time.Millisecond)

		assert.Empty(t, rec.recorded())
	})
}

// ---------------------------------------------------------------------------
// Agent view profiles.
// ---------------------------------------------------------------------------

func TestRunner_AgentViewsCarryProfiles(t *testing.T) {
	t.Parallel()

	runner := workflow.NewRunner(newChanSource(), &recordingBroadcaster{}, agent.NewPool(), testCatalog(), nil)
	t.Cleanup(runner.Shutdown)

	run, err := runner.Start(context.Background(), "proj-1")
	require.NoError(t, err)

	require.Len(t, run.Agents, 2)
	assert.Equal(t, "pm", run.Agents[0].ID)
	assert.Equal(t, "PROJECT MANAGER", run.Agents[0].Name)
	assert.Equal(t, "Mission Coordinator", run.Agents[0].Role)
	assert.Equal(t, "dev", run.Agents[1].ID)
	assert.Equal(t, "CORE DEVELOPER", run.Agents[1].Name)
	assert.Equal(t, "Code Implementation Specialist", run.Agents[1].Role)
}
