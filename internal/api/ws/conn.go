package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/orbitkit/missionctl/internal/domain"
)

// writeTimeout bounds how long one send may block on a slow client.
const writeTimeout = 10 * time.Second

// wsConn adapts a coder/websocket connection to the registry's Conn
// interface. Writes are serialized; the socket read side stays with the
// hub's handler goroutine.
type wsConn struct {
	id      uuid.UUID
	sock    *websocket.Conn
	writeMu sync.Mutex
}

func newWSConn(sock *websocket.Conn) *wsConn {
	return &wsConn{id: uuid.New(), sock: sock}
}

func (c *wsConn) ID() uuid.UUID { return c.id }

func (c *wsConn) Send(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("ws.wsConn.Send: marshal: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := c.sock.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("ws.wsConn.Send: %w", err)
	}
	return nil
}

func (c *wsConn) Close(reason string) error {
	if err := c.sock.Close(websocket.StatusNormalClosure, reason); err != nil {
		return fmt.Errorf("ws.wsConn.Close: %w", err)
	}
	return nil
}
