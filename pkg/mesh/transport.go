package mesh

import (
	"context"
	"errors"

	pb "buf.build/gen/go/meshtastic/protobufs/protocolbuffers/go/meshtastic"
)

// ErrInvalidFrame indicates a received frame that does not decode into a
// client API message.
var ErrInvalidFrame = errors.New("invalid frame format")

// Transport moves client API frames between this process and the radio
// hardware, whatever the physical link is.
type Transport interface {
	// SendToRadio sends a frame to the radio.
	SendToRadio(ctx context.Context, frame *pb.ToRadio) error
	// ReceiveFromRadio blocks until the next frame arrives from the radio.
	ReceiveFromRadio(ctx context.Context) (*pb.FromRadio, error)
	// Close releases the underlying link.
	Close() error
}
