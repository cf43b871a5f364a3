package dispatch

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisHub wraps a Hub with a Redis pub/sub bridge so a broadcast issued by
// any frontend instance reaches every subscriber across every instance,
// required because SessionStore itself is shared across instances.
// Grounded on the teacher's RedisHub.
type RedisHub struct {
	*Hub
	client     *redis.Client
	ctx        context.Context
	instanceID string

	subMu      sync.Mutex
	subscribed map[string]bool
}

// NewRedisHub wraps client for multi-instance fan-out. ctx scopes every
// publish and subscription this hub issues; callers cancel it on shutdown.
func NewRedisHub(ctx context.Context, client *redis.Client) *RedisHub {
	return &RedisHub{Hub: NewHub(), client: client, ctx: ctx, instanceID: uuid.New().String()}
}

func (h *RedisHub) InstanceID() string { return h.instanceID }

func channelName(code string) string { return "session:" + code + ":events" }

type wireEvent struct {
	Event      Event  `json:"event"`
	Scope      string `json:"scope"`
	InstanceID string `json:"instance_id"`
}

const (
	scopeSession      = "session"
	scopeHosts        = "hosts"
	scopeParticipants = "participants"
)

// Subscribe starts forwarding every event published for code to this
// instance's local Hub. Only the first call for a given code subscribes;
// later calls for the same code are no-ops.
func (h *RedisHub) Subscribe(code string) {
	h.subMu.Lock()
	if h.subscribed[code] {
		h.subMu.Unlock()
		return
	}
	if h.subscribed == nil {
		h.subscribed = make(map[string]bool)
	}
	h.subscribed[code] = true
	h.subMu.Unlock()

	pubsub := h.client.Subscribe(h.ctx, channelName(code))
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-h.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload == "" {
					continue
				}
				var w wireEvent
				if err := json.Unmarshal([]byte(msg.Payload), &w); err != nil {
					logger.Printf("decode pub/sub event for %s: %v", code, err)
					continue
				}
				switch w.Scope {
				case scopeHosts:
					h.Hub.BroadcastToHosts(code, w.Event)
				case scopeParticipants:
					h.Hub.BroadcastToParticipants(code, w.Event)
				default:
					h.Hub.BroadcastToSession(code, w.Event)
				}
			}
		}
	}()
}

func (h *RedisHub) publish(code, scope string, event Event) {
	payload, err := json.Marshal(wireEvent{Event: event, Scope: scope, InstanceID: h.instanceID})
	if err != nil {
		logger.Printf("marshal pub/sub event for %s: %v", code, err)
		return
	}
	if err := h.client.Publish(h.ctx, channelName(code), payload).Err(); err != nil {
		logger.Printf("publish event for %s: %v", code, err)
	}
}

// BroadcastToSession publishes event to every instance subscribed to code,
// which locally fans it out to every connected client in the session.
func (h *RedisHub) BroadcastToSession(code string, event Event) {
	h.publish(code, scopeSession, event)
}

// BroadcastToHosts publishes event restricted to host connections.
func (h *RedisHub) BroadcastToHosts(code string, event Event) {
	h.publish(code, scopeHosts, event)
}

// BroadcastToParticipants publishes event restricted to participant
// connections.
func (h *RedisHub) BroadcastToParticipants(code string, event Event) {
	h.publish(code, scopeParticipants, event)
}

// SendToUser delivers event directly if the user's connection is local to
// this instance; a true cross-instance personal send would need a
// per-user routing table, out of scope since reconnect logic already
// resends a full snapshot on (re)join.
func (h *RedisHub) SendToUser(code, userID string, event Event) {
	h.Hub.SendToUser(code, userID, event)
}
