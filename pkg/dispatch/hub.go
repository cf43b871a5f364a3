// Package dispatch implements the Dispatcher: the message-channel registry
// that multiplexes per-session broadcasts over long-lived duplex
// connections. Grounded on the teacher's pkg/websocket (Hub, RedisHub,
// Client), generalized from quiz-UUID keying to session-code keying and
// from a creator/participant split to an explicit host/participant role
// on each registered Client.
package dispatch

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

var logger = log.New(log.Writer(), "[dispatch] ", log.LstdFlags)

// DisconnectFunc is notified once a client is fully removed from the
// registry: ReadPump's own teardown, or a forced drop after a full send
// buffer. It never fires when a second connection simply displaces the
// first for the same (session, user) pair, since that user is still
// connected through the new one.
type DisconnectFunc func(code, userID string)

// Hub is the in-process connection registry for one frontend instance.
type Hub struct {
	mu           sync.Mutex
	clients      map[string]map[string]*Client // code -> userID -> Client
	register     chan *Client
	unregister   chan *Client
	onDisconnect DisconnectFunc
}

// NewHub returns an empty Hub. Call Run in its own goroutine to start
// draining Register/Unregister.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[string]*Client),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
	}
}

func (h *Hub) GetRegisterChan() chan *Client   { return h.register }
func (h *Hub) GetUnregisterChan() chan *Client { return h.unregister }

// OnDisconnect registers fn to run whenever a client is actually removed
// from the registry, letting the application layer keep a participant's
// persisted connectivity flag in sync with the registry's own view of it.
func (h *Hub) OnDisconnect(fn DisconnectFunc) {
	h.onDisconnect = fn
}

// Subscribe is a no-op on a plain Hub: a single instance already sees
// every client registered to it, so there is no cross-instance fan-out to
// attach. RedisHub overrides this to bridge in pub/sub.
func (h *Hub) Subscribe(code string) {}

// Run drains Register/Unregister until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.registerClient(c)
		case c := <-h.unregister:
			h.unregisterClient(c)
		}
	}
}

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	byUser, ok := h.clients[c.Code]
	if !ok {
		byUser = make(map[string]*Client)
		h.clients[c.Code] = byUser
	}
	// A second channel for the same (session, user) displaces the first.
	if existing, ok := byUser[c.UserID]; ok && existing != c {
		close(existing.Send)
		existing.Cancel()
	}
	byUser[c.UserID] = c
}

func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	removed := false
	byUser, ok := h.clients[c.Code]
	if ok {
		if current, ok := byUser[c.UserID]; ok && current == c {
			delete(byUser, c.UserID)
			closeQuietly(c)
			removed = true
		}
		if len(byUser) == 0 {
			delete(h.clients, c.Code)
		}
	}
	h.mu.Unlock()

	if removed && h.onDisconnect != nil {
		h.onDisconnect(c.Code, c.UserID)
	}
}

func closeQuietly(c *Client) {
	defer func() { recover() }()
	close(c.Send)
}

// SendToUser delivers event to exactly one (session, user) channel, if
// connected. A full send buffer drops the client rather than blocking.
func (h *Hub) SendToUser(code, userID string, event Event) {
	h.mu.Lock()
	client, ok := h.clientLocked(code, userID)
	h.mu.Unlock()
	if !ok {
		return
	}
	h.deliver(client, event)
}

// BroadcastToSession sends event to every connected client (host and
// participants) in the session.
func (h *Hub) BroadcastToSession(code string, event Event) {
	h.broadcast(code, event, func(*Client) bool { return true })
}

// BroadcastToHosts sends event only to clients registered as the host.
func (h *Hub) BroadcastToHosts(code string, event Event) {
	h.broadcast(code, event, func(c *Client) bool { return c.IsHost })
}

// BroadcastToParticipants sends event only to clients registered as
// participants (not the host).
func (h *Hub) BroadcastToParticipants(code string, event Event) {
	h.broadcast(code, event, func(c *Client) bool { return !c.IsHost })
}

func (h *Hub) broadcast(code string, event Event, include func(*Client) bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Printf("marshal event for session %s: %v", code, err)
		return
	}

	h.mu.Lock()
	byUser, ok := h.clients[code]
	targets := make([]*Client, 0, len(byUser))
	if ok {
		for _, c := range byUser {
			if include(c) {
				targets = append(targets, c)
			}
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		h.deliverRaw(c, payload)
	}
}

func (h *Hub) clientLocked(code, userID string) (*Client, bool) {
	byUser, ok := h.clients[code]
	if !ok {
		return nil, false
	}
	c, ok := byUser[userID]
	return c, ok
}

func (h *Hub) deliver(c *Client, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Printf("marshal event for client %s: %v", c.ID, err)
		return
	}
	h.deliverRaw(c, payload)
}

// deliverRaw is the non-blocking send every broadcast primitive funnels
// through: a client whose buffer is full is disconnected immediately
// rather than allowed to stall the rest of the broadcast, which is the 5s
// send-timeout requirement expressed as an instant drop-on-full-buffer
// (the hard wall-clock ceiling is additionally enforced by the Client's
// own SetWriteDeadline on the wire).
func (h *Hub) deliverRaw(c *Client, payload []byte) {
	select {
	case c.Send <- payload:
	default:
		logger.Printf("client %s buffer full, disconnecting", c.ID)
		h.unregister <- c
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, byUser := range h.clients {
		for _, c := range byUser {
			c.Cancel()
		}
	}
}
