package ws

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/orbitkit/missionctl/internal/domain"
)

// Hub accepts WebSocket connections and hands them to the registry. The
// read loop handles the small inbound vocabulary (ping, subscribe,
// unsubscribe); everything outbound flows through the registry's broadcast
// operations.
type Hub struct {
	registry *Registry
}

func NewHub(registry *Registry) *Hub {
	return &Hub{registry: registry}
}

// Registry exposes the hub's registry for wiring into broadcasters.
func (h *Hub) Registry() *Registry { return h.registry }

// clientMessage is the inbound message shape from dashboard clients.
type clientMessage struct {
	Type      string `json:"type"` // "ping", "subscribe", "unsubscribe"
	ProjectID string `json:"project_id,omitempty"`
}

// ServeRealtime handles the dashboard's real-time channel. The connection
// is registered for its lifetime and deregistered on any exit path.
func (h *Hub) ServeRealtime(w http.ResponseWriter, r *http.Request) {
	sock, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer sock.CloseNow()

	ctx := r.Context()
	conn := newWSConn(sock)

	h.registry.Register(conn)
	defer h.registry.Deregister(conn)

	if err := conn.Send(ctx, domain.NewConnectionEstablished(conn.ID().String())); err != nil {
		log.Debug().Err(err).Msg("websocket welcome write")
		return
	}

	for {
		_, data, err := sock.Read(ctx)
		if err != nil {
			// Normal closure and context cancellation both land here;
			// deregistration is the deferred cleanup either way.
			log.Debug().Err(err).Str("conn_id", conn.ID().String()).Msg("websocket read closed")
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Str("conn_id", conn.ID().String()).Msg("websocket: malformed client message")
			continue
		}

		switch msg.Type {
		case "ping":
			if err := conn.Send(ctx, domain.NewEvent(domain.EventPong, "", nil)); err != nil {
				return
			}
		case "subscribe":
			if msg.ProjectID == "" {
				continue
			}
			h.registry.Subscribe(conn, msg.ProjectID)
			if err := conn.Send(ctx, domain.NewSubscriptionConfirmed(msg.ProjectID)); err != nil {
				return
			}
		case "unsubscribe":
			if msg.ProjectID == "" {
				continue
			}
			h.registry.Unsubscribe(conn, msg.ProjectID)
			if err := conn.Send(ctx, domain.NewSubscriptionRemoved(msg.ProjectID)); err != nil {
				return
			}
		default:
			log.Debug().Str("type", msg.Type).Msg("websocket: unknown client message type")
		}
	}
}
