package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kashsbd/awlam-backend/internal/logger"
	"go.uber.org/zap"
)

// Sink receives encoded frames for one subscriber. Send must not block; it
// returns false when the frame was dropped.
type Sink interface {
	Send(data []byte) bool
}

// Subscriber identifies one registered connection. UserID is the tag
// supplied at connect time and is only used by callers for filtering.
type Subscriber struct {
	ID        string
	Namespace string
	UserID    string
}

type Metrics struct {
	ActiveSubscribers atomic.Int64
	MessagesSent      atomic.Int64
	MessagesDropped   atomic.Int64
}

// Hub is the subscriber registry and delivery point for every namespace.
// Delivery is fire-and-forget: only subscribers connected at the time of the
// call receive a frame.
type Hub struct {
	mu      sync.RWMutex
	sinks   map[string]map[string]Sink // namespace -> subscriber id -> sink
	tags    map[string]Subscriber
	metrics *Metrics
}

func NewHub() *Hub {
	return &Hub{
		sinks:   make(map[string]map[string]Sink),
		tags:    make(map[string]Subscriber),
		metrics: &Metrics{},
	}
}

// Subscribe registers sink under namespace with the given user tag.
func (h *Hub) Subscribe(namespace, userID string, sink Sink) Subscriber {
	sub := Subscriber{
		ID:        namespace + "_" + uuid.New().String(),
		Namespace: namespace,
		UserID:    userID,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sinks[namespace]; !ok {
		h.sinks[namespace] = make(map[string]Sink)
	}
	h.sinks[namespace][sub.ID] = sink
	h.tags[sub.ID] = sub
	h.metrics.ActiveSubscribers.Add(1)

	logger.Log.Debug("subscriber connected",
		zap.String("namespace", namespace),
		zap.String("user_id", userID),
		zap.Int64("active", h.metrics.ActiveSubscribers.Load()),
	)
	return sub
}

// Unsubscribe removes sub. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sinks, ok := h.sinks[sub.Namespace]
	if !ok {
		return
	}
	if _, ok := sinks[sub.ID]; !ok {
		return
	}
	delete(sinks, sub.ID)
	delete(h.tags, sub.ID)
	if len(sinks) == 0 {
		delete(h.sinks, sub.Namespace)
	}
	h.metrics.ActiveSubscribers.Add(-1)
}

// Subscribers returns a snapshot of the subscribers of namespace.
func (h *Hub) Subscribers(namespace string) []Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := make([]Subscriber, 0, len(h.sinks[namespace]))
	for id := range h.sinks[namespace] {
		subs = append(subs, h.tags[id])
	}
	return subs
}

// Broadcast delivers event to every subscriber currently connected to
// namespace and returns how many frames were accepted.
func (h *Hub) Broadcast(namespace, event string, payload interface{}) int {
	data, err := json.Marshal(NewMessage(event, payload))
	if err != nil {
		logger.Log.Error("failed to encode broadcast", zap.String("event", event), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, sink := range h.sinks[namespace] {
		if h.send(sink, data) {
			sent++
		}
	}
	return sent
}

// DeliverTo unicasts event to one subscriber. It returns false when the
// subscriber is gone or its buffer is full.
func (h *Hub) DeliverTo(sub Subscriber, event string, payload interface{}) bool {
	h.mu.RLock()
	sink, ok := h.sinks[sub.Namespace][sub.ID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	data, err := json.Marshal(NewMessage(event, payload))
	if err != nil {
		logger.Log.Error("failed to encode message", zap.String("event", event), zap.Error(err))
		return false
	}
	return h.send(sink, data)
}

func (h *Hub) send(sink Sink, data []byte) bool {
	if sink.Send(data) {
		h.metrics.MessagesSent.Add(1)
		return true
	}
	h.metrics.MessagesDropped.Add(1)
	return false
}

// MetricsSnapshot is a point-in-time copy of the hub counters.
type MetricsSnapshot struct {
	ActiveSubscribers int64 `json:"active_subscribers"`
	MessagesSent      int64 `json:"messages_sent"`
	MessagesDropped   int64 `json:"messages_dropped"`
}

func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		ActiveSubscribers: h.metrics.ActiveSubscribers.Load(),
		MessagesSent:      h.metrics.MessagesSent.Load(),
		MessagesDropped:   h.metrics.MessagesDropped.Load(),
	}
}
