package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectNaming(t *testing.T) {
	sink := &NATSSink{subjectPrefix: "meshgate.events"}

	assert.Equal(t, "meshgate.events.text_message_app", sink.subject(Event{Type: "TEXT_MESSAGE_APP"}))
	assert.Equal(t, "meshgate.events.position_app", sink.subject(Event{Type: "POSITION_APP"}))
	assert.Equal(t, "meshgate.events.unknown", sink.subject(Event{}))
}
