// Package push delivers notifications to devices through an external push
// gateway addressed by opaque registration ids.
package push

import "context"

// Message is one push notification addressed to many registrations.
type Message struct {
	Title    string
	Body     string
	IconURL  string
	ImageURL string
	Data     map[string]string

	// NotificationID and Kind identify the stored notification that caused
	// the push. They are used for receipts only.
	NotificationID string
	Kind           string
}

// Result summarizes one dispatch.
type Result struct {
	SuccessCount int
	FailureCount int
}

// Gateway sends a message to a set of registration ids. Errors are
// reported to the caller; no retry is performed.
type Gateway interface {
	Send(ctx context.Context, registrations []string, msg Message) (*Result, error)
}

// Noop is used when no push credentials are configured.
type Noop struct{}

func (Noop) Send(_ context.Context, registrations []string, _ Message) (*Result, error) {
	return &Result{}, nil
}
