package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the per-connection outbound send timeout required by
	// the Dispatcher's contract: a write that doesn't complete within it
	// gets the client dropped rather than stalling a broadcast.
	writeWait = 5 * time.Second

	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8192
)

// HubInterface is the subset of Hub a Client needs, so tests can swap in a
// fake registry without pulling in the real one.
type HubInterface interface {
	SendToUser(code, userID string, event Event)
	BroadcastToSession(code string, event Event)
	BroadcastToHosts(code string, event Event)
	BroadcastToParticipants(code string, event Event)
	GetRegisterChan() chan *Client
	GetUnregisterChan() chan *Client
}

// SessionHub is the subset of RedisHub the application layer (wsapi,
// admin) depends on: HubInterface plus Subscribe, the call needed before a
// newly-upgraded connection can receive cross-instance fan-out, and
// OnDisconnect, which registers the callback run when a client is removed.
// Both Hub (a no-op Subscribe, local-only) and RedisHub satisfy it, so
// tests can exercise the application layer against a plain Hub with no
// Redis dependency.
type SessionHub interface {
	HubInterface
	Subscribe(code string)
	OnDisconnect(fn DisconnectFunc)
}

// MessageHandler processes one decoded inbound Envelope for a Client. It
// is implemented by the application layer (internal/wsapi), kept out of
// this package to avoid a dependency cycle with the game/store logic.
type MessageHandler interface {
	HandleMessage(ctx context.Context, c *Client, msg Envelope)
}

// Client is one duplex message channel for a (session code, user) pair.
type Client struct {
	ID      string
	Code    string
	UserID  string
	IsHost  bool
	Conn    *websocket.Conn
	Send    chan []byte
	Hub     HubInterface
	Handler MessageHandler
	Ctx     context.Context
	Cancel  context.CancelFunc
}

// ReadPump reads inbound frames until the connection closes, dispatching
// each decoded Envelope to the Client's MessageHandler. An unknown or
// malformed message is logged and ignored, never fatal to the connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.GetUnregisterChan() <- c
		c.Cancel()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			logger.Printf("client %s sent malformed message: %v", c.ID, err)
			continue
		}
		if envelope.Type == InboundPing {
			c.sendEvent(Event{Type: EventPong, Payload: map[string]int64{"time": time.Now().Unix()}})
			continue
		}
		c.Handler.HandleMessage(c.Ctx, c, envelope)
	}
}

// WritePump drains Send, batching whatever is queued into a single
// websocket message, and sends transport-level pings on pingPeriod.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.Ctx.Done():
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) sendEvent(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Printf("marshal event for client %s: %v", c.ID, err)
		return
	}
	select {
	case c.Send <- payload:
	default:
		logger.Printf("client %s send buffer full, dropping", c.ID)
	}
}
