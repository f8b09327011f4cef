package bot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/midoluz/meshgate/pkg/store"
	"github.com/midoluz/meshgate/pkg/types"
)

type fakeSink struct {
	mutex  sync.Mutex
	events []store.Event
	fail   error
}

func (s *fakeSink) Write(ctx context.Context, event store.Event) error {
	if s.fail != nil {
		return s.fail
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSink) Close() error {
	return nil
}

func (s *fakeSink) snapshot() []store.Event {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]store.Event(nil), s.events...)
}

func TestConvertRecord(t *testing.T) {
	event := convertRecord(Record{
		Kind:        KindTextMessage,
		SenderID:    types.NodeId(0x11223344),
		SenderLabel: "NODO",
		DestID:      types.Broadcast,
		Payload:     map[string]any{"text": "hola"},
	})

	assert.Equal(t, "TEXT_MESSAGE_APP", event.Type)
	assert.Equal(t, "11223344", event.SenderID)
	assert.Equal(t, "NODO", event.SenderLabel)
	assert.Equal(t, "ffffffff", event.DestID)

	var payload map[string]any
	assert.NoError(t, json.Unmarshal([]byte(event.PayloadJSON), &payload))
	assert.Equal(t, map[string]any{"text": "hola"}, payload)
}

func TestRecorderWritesAsynchronously(t *testing.T) {
	sink := &fakeSink{}
	recorder := NewRecorder(sink, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go recorder.Run(ctx)

	recorder.Record(Record{
		Kind:     KindPosition,
		SenderID: types.NodeId(1),
		DestID:   types.Broadcast,
		Payload:  map[string]any{"latitude": -34.6},
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(sink.snapshot()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	events := sink.snapshot()
	assert.Len(t, events, 1)
	assert.Equal(t, "POSITION_APP", events[0].Type)
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	// No Run goroutine, so nothing drains the queue
	recorder := NewRecorder(&fakeSink{}, 1)

	record := Record{Kind: KindTextMessage, Payload: map[string]any{}}

	// Second Record must return instead of blocking
	recorder.Record(record)
	recorder.Record(record)
}

func TestRecorderSurvivesSinkFailure(t *testing.T) {
	sink := &fakeSink{fail: errors.New("db gone")}
	recorder := NewRecorder(sink, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go recorder.Run(ctx)

	recorder.Record(Record{Kind: KindTextMessage, Payload: map[string]any{}})
	recorder.Record(Record{Kind: KindTextMessage, Payload: map[string]any{}})

	// Failures are logged and dropped; the recorder keeps draining
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sink.snapshot())
}
