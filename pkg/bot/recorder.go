package bot

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/midoluz/meshgate/pkg/store"
)

// Recorder hands normalized records to the event sink. Persistence is
// best-effort and asynchronous: the ingestion loop enqueues and moves on,
// sink failures are reported to the operator and the event is dropped.
type Recorder struct {
	sink  store.EventSink
	queue chan store.Event
}

func NewRecorder(sink store.EventSink, queueDepth int) *Recorder {
	return &Recorder{
		sink:  sink,
		queue: make(chan store.Event, queueDepth),
	}
}

// Run drains the queue until the context is cancelled. Meant to run on its
// own goroutine.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-r.queue:
			if err := r.sink.Write(ctx, event); err != nil {
				log.With("type", event.Type, "err", err).Error("DB ERROR")
			}
		}
	}
}

// Record converts and enqueues one record. A full queue drops the event
// rather than stalling packet ingestion.
func (r *Recorder) Record(record Record) {
	select {
	case r.queue <- convertRecord(record):
	default:
		log.With("type", record.Kind.String()).Warn("Event queue full, event dropped")
	}
}

func convertRecord(record Record) store.Event {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		// The classifier emits only JSON-safe values
		payload = []byte("{}")
	}

	return store.Event{
		Type:        record.Kind.String(),
		SenderID:    record.SenderID.Hex(),
		SenderLabel: record.SenderLabel,
		DestID:      record.DestID.Hex(),
		PayloadJSON: string(payload),
	}
}
