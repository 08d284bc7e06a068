package v1_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/orbitkit/missionctl/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	projects domain.ProjectRepository
}

func (m *mockDataStore) Projects() domain.ProjectRepository { return m.projects }

// ---------------------------------------------------------------------------
// Mock ProjectRepository
// ---------------------------------------------------------------------------

type mockProjectRepo struct {
	createFunc       func(ctx context.Context, p *domain.Project) error
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	listFunc         func(ctx context.Context) ([]*domain.Project, error)
	updateStatusFunc func(ctx context.Context, id uuid.UUID, status domain.ProjectStatus) error
	deleteFunc       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	return m.createFunc(ctx, p)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	return m.listFunc(ctx)
}

func (m *mockProjectRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProjectStatus) error {
	return m.updateStatusFunc(ctx, id, status)
}

func (m *mockProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock WorkflowRunner
// ---------------------------------------------------------------------------

type mockRunner struct {
	startFunc  func(ctx context.Context, projectID string) (*domain.WorkflowRun, error)
	pauseFunc  func(ctx context.Context, projectID string) error
	stopFunc   func(ctx context.Context, projectID string) error
	statusFunc func(projectID string) (*domain.WorkflowRun, error)
	active     int
}

func (m *mockRunner) Start(ctx context.Context, projectID string) (*domain.WorkflowRun, error) {
	return m.startFunc(ctx, projectID)
}

func (m *mockRunner) Pause(ctx context.Context, projectID string) error {
	return m.pauseFunc(ctx, projectID)
}

func (m *mockRunner) Stop(ctx context.Context, projectID string) error {
	return m.stopFunc(ctx, projectID)
}

func (m *mockRunner) Status(projectID string) (*domain.WorkflowRun, error) {
	return m.statusFunc(projectID)
}

func (m *mockRunner) ActiveRuns() int { return m.active }

// ---------------------------------------------------------------------------
// Recording Broadcaster
// ---------------------------------------------------------------------------

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBroadcaster) BroadcastAll(_ context.Context, ev domain.Event) int {
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
