package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes events as JSON messages under a subject prefix, one
// subject per packet kind, e.g. "meshgate.events.text_message_app".
type NATSSink struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewNATSSink(url string, subjectPrefix string) (*NATSSink, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSSink{
		conn:          conn,
		subjectPrefix: subjectPrefix,
	}, nil
}

func (s *NATSSink) Write(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return s.conn.Publish(s.subject(event), data)
}

// subject derives the per-kind subject from the event type.
func (s *NATSSink) subject(event Event) string {
	kind := strings.ToLower(event.Type)
	if kind == "" {
		kind = "unknown"
	}
	return s.subjectPrefix + "." + kind
}

func (s *NATSSink) Close() error {
	s.conn.Close()
	return nil
}
