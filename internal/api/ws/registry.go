package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/orbitkit/missionctl/internal/domain"
)

// Conn is one live real-time client session. The transport layer creates a
// Conn on accept; the Registry owns it from Register until Deregister (or
// until a send on it fails).
type Conn interface {
	ID() uuid.UUID
	Send(ctx context.Context, ev domain.Event) error
	Close(reason string) error
}

// Stats is a point-in-time snapshot of registry occupancy.
type Stats struct {
	TotalConnections     int            `json:"total_connections"`
	ProjectSubscriptions int            `json:"project_subscriptions"`
	SubscribersByProject map[string]int `json:"subscribers_by_project"`
}

// Registry tracks every live connection and, per project, the subset of
// connections subscribed to that project's events. It is the single
// process-wide mutable resource for real-time state; all mutation goes
// through its methods, guarded by one mutex.
//
// Contract decisions:
//   - Registering an already-registered connection is an idempotent no-op.
//   - Subscribing an unregistered connection is a silent no-op.
//
// Delivery is fire-and-forget, at-most-once: a send failure deregisters
// that connection and never aborts the rest of a broadcast.
type Registry struct {
	mu          sync.Mutex
	conns       map[uuid.UUID]Conn
	subs        map[string]map[uuid.UUID]Conn
	memberships map[uuid.UUID]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:       make(map[uuid.UUID]Conn),
		subs:        make(map[string]map[uuid.UUID]Conn),
		memberships: make(map[uuid.UUID]map[string]struct{}),
	}
}

// Register adds a connection to the all-connections set.
func (r *Registry) Register(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID()]; ok {
		return
	}
	r.conns[conn.ID()] = conn
	r.memberships[conn.ID()] = make(map[string]struct{})

	log.Debug().Str("conn_id", conn.ID().String()).Int("total", len(r.conns)).Msg("ws: connection registered")
}

// Deregister removes a connection from the all-connections set and from
// every project subscriber set. A connection that is already absent is a
// no-op, not an error.
func (r *Registry) Deregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deregisterLocked(conn.ID())
}

func (r *Registry) deregisterLocked(id uuid.UUID) {
	if _, ok := r.conns[id]; !ok {
		return
	}
	delete(r.conns, id)

	for projectID := range r.memberships[id] {
		delete(r.subs[projectID], id)
		if len(r.subs[projectID]) == 0 {
			delete(r.subs, projectID)
		}
	}
	delete(r.memberships, id)

	log.Debug().Str("conn_id", id.String()).Int("remaining", len(r.conns)).Msg("ws: connection deregistered")
}

// Subscribe adds the connection to projectID's subscriber set, creating the
// set on first use. Unregistered connections are ignored.
func (r *Registry) Subscribe(conn Conn, projectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID()]; !ok {
		return
	}
	if r.subs[projectID] == nil {
		r.subs[projectID] = make(map[uuid.UUID]Conn)
	}
	r.subs[projectID][conn.ID()] = conn
	r.memberships[conn.ID()][projectID] = struct{}{}

	log.Debug().Str("conn_id", conn.ID().String()).Str("project_id", projectID).Msg("ws: subscribed")
}

// Unsubscribe removes the connection from projectID's subscriber set;
// no-op if absent.
func (r *Registry) Unsubscribe(conn Conn, projectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subs[projectID]; ok {
		delete(sub, conn.ID())
		if len(sub) == 0 {
			delete(r.subs, projectID)
		}
	}
	if m, ok := r.memberships[conn.ID()]; ok {
		delete(m, projectID)
	}
}

// BroadcastAll sends the event to every registered connection and returns
// the number of successful deliveries. Connections whose send fails are
// deregistered as a side effect.
func (r *Registry) BroadcastAll(ctx context.Context, ev domain.Event) int {
	r.mu.Lock()
	recipients := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		recipients = append(recipients, c)
	}
	r.mu.Unlock()

	return r.deliver(ctx, recipients, ev)
}

// BroadcastToProject sends the event to the subscriber set of projectID.
// A project with no subscribers is a successful no-op returning zero.
func (r *Registry) BroadcastToProject(ctx context.Context, projectID string, ev domain.Event) int {
	r.mu.Lock()
	sub := r.subs[projectID]
	recipients := make([]Conn, 0, len(sub))
	for _, c := range sub {
		recipients = append(recipients, c)
	}
	r.mu.Unlock()

	return r.deliver(ctx, recipients, ev)
}

// deliver sends outside the lock so a slow socket cannot stall mutations.
// A failed send is isolated: it is logged, the connection is dropped, and
// delivery continues to the remaining recipients.
func (r *Registry) deliver(ctx context.Context, recipients []Conn, ev domain.Event) int {
	delivered := 0
	var failed []Conn

	for _, c := range recipients {
		if err := c.Send(ctx, ev); err != nil {
			log.Warn().Err(err).Str("conn_id", c.ID().String()).Str("event", string(ev.Type)).Msg("ws: send failed, dropping connection")
			failed = append(failed, c)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		r.mu.Lock()
		for _, c := range failed {
			r.deregisterLocked(c.ID())
		}
		r.mu.Unlock()
	}

	return delivered
}

// Stats returns connection counts for the system-status surface.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	byProject := make(map[string]int, len(r.subs))
	for projectID, sub := range r.subs {
		byProject[projectID] = len(sub)
	}
	return Stats{
		TotalConnections:     len(r.conns),
		ProjectSubscriptions: len(r.subs),
		SubscribersByProject: byProject,
	}
}

// CloseAll closes every connection and empties the registry. Used on
// process shutdown.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.conns = make(map[uuid.UUID]Conn)
	r.subs = make(map[string]map[uuid.UUID]Conn)
	r.memberships = make(map[uuid.UUID]map[string]struct{})
	r.mu.Unlock()

	for _, c := range conns {
		if err := c.Close(reason); err != nil {
			log.Debug().Err(err).Str("conn_id", c.ID().String()).Msg("ws: close on shutdown")
		}
	}

	log.Info().Int("closed", len(conns)).Msg("ws: all connections closed")
}
