package realtime

import "time"

// Namespaces a client can subscribe to.
const (
	// NamespaceCounters carries "<type>::reacted" and "<type>::commented".
	NamespaceCounters = "counters"
	// NamespaceNotifications carries "noti::created" to the tagged user.
	NamespaceNotifications = "notifications"
)

// EventNotificationCreated is emitted on NamespaceNotifications.
const EventNotificationCreated = "noti::created"

// Message is the frame written to subscribers.
type Message struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewMessage(event string, payload interface{}) *Message {
	return &Message{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}
