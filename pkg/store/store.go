// Package store holds the event sink implementations receiving normalized
// packet records. Sinks are best-effort collaborators: a failed write is the
// caller's to report, never to retry forever.
package store

import "context"

// Event is the flat row shape every sink accepts.
type Event struct {
	Type        string `json:"type"`
	SenderID    string `json:"sender_id"`
	SenderLabel string `json:"sender_label"`
	DestID      string `json:"dest_id"`
	PayloadJSON string `json:"payload"`
}

// EventSink persists gateway events.
type EventSink interface {
	Write(ctx context.Context, event Event) error
	Close() error
}

// Discard is the sink used when event logging is disabled.
type Discard struct{}

func (Discard) Write(ctx context.Context, event Event) error { return nil }

func (Discard) Close() error { return nil }
