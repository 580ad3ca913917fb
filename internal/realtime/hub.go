package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60

	sendBuffer = 64
)

// Events carried on live topics. Both carry the full current snapshot.
const (
	EventCampaignUpdated = "campaign_updated"
	EventWebinarUpdated  = "webinar_updated"
)

// CampaignTopic is the live topic for a campaign's membership.
func CampaignTopic(id uuid.UUID) string { return "campaign:" + id.String() }

// WebinarTopic is the live topic for a webinar's RSVP list.
func WebinarTopic(id uuid.UUID) string { return "webinar:" + id.String() }

// Hub maintains topic -> set of connections and broadcasts messages.
// With a Redis bridge configured, Publish goes through Redis so every
// instance (this one included) broadcasts exactly once.
type Hub struct {
	topics   map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per topic
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishTopicEvent(topic, event string, payload []byte) error
}

// RedisSubscriber subscribes to topic channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeTopic(topic string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics:   make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to its topic. The first client on a topic starts
// the Redis subscription; the subscribe round-trip runs without the lock.
func (h *Hub) Register(c *Client) {
	topic := c.Topic
	h.mu.Lock()
	first := h.topics[topic] == nil
	if first {
		h.topics[topic] = make(map[string]*Client)
	}
	h.topics[topic][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client subscribed", zap.String("client_id", c.ID), zap.String("topic", topic))

	if !first || h.redisSub == nil {
		return
	}
	cancel, err := h.redisSub.SubscribeTopic(topic, func(event string, payload []byte) {
		h.Broadcast(topic, event, json.RawMessage(payload))
	})
	if err != nil {
		h.logger.Warn("redis subscribe failed", zap.String("topic", topic), zap.Error(err))
		return
	}

	// The topic may have emptied, or another first client may have
	// subscribed, while we were waiting on Redis.
	h.mu.Lock()
	_, active := h.topics[topic]
	_, subscribed := h.subs[topic]
	keep := active && !subscribed
	if keep {
		h.subs[topic] = cancel
	}
	h.mu.Unlock()
	if !keep {
		cancel()
	}
}

// Unregister removes a client. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.topics[c.Topic]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.topics, c.Topic)
			if cancel, ok := h.subs[c.Topic]; ok {
				cancel()
				delete(h.subs, c.Topic)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client unsubscribed", zap.String("client_id", c.ID), zap.String("topic", c.Topic))
}

// Broadcast sends a message to all local clients of a topic.
func (h *Hub) Broadcast(topic, event string, payload any) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("marshal broadcast payload", zap.String("event", event), zap.Error(err))
			return
		}
	}
	msg := WSMessage{Event: event, Topic: topic, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.topics[topic] {
		select {
		case c.send <- msg:
		default:
			// slow consumer; it will pick up the next snapshot
		}
	}
}

// Publish delivers an event to every subscriber of topic on every instance.
func (h *Hub) Publish(topic, event string, payload any) {
	if h.redis == nil {
		h.Broadcast(topic, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal publish payload", zap.String("event", event), zap.Error(err))
		return
	}
	if err := h.redis.PublishTopicEvent(topic, event, data); err != nil {
		h.logger.Warn("redis publish failed, broadcasting locally", zap.String("topic", topic), zap.Error(err))
		h.Broadcast(topic, event, json.RawMessage(data))
	}
}

// SubscriberCount returns the number of local clients on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
