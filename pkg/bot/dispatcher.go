package bot

import (
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/midoluz/meshgate/pkg/types"
)

// Origin tags where a send request came from. Used for observability only.
type Origin string

const (
	OriginCommandReply Origin = "command-reply"
	OriginREST         Origin = "rest"
)

// Request is one unit of outbound work. Exactly one of Channel and
// Destination must be set.
type Request struct {
	Text        string
	Channel     *uint32
	Destination *types.NodeId
	Origin      Origin
}

// TextSender is the transport's send capability consumed by the dispatcher.
type TextSender interface {
	Connected() bool
	SendText(text string, channel uint32, destination types.NodeId) error
}

// Dispatcher is the single choke point for every transmission onto the
// mesh. All callers, the command interpreter and the REST ingress alike, go
// through Send; the mutex guarantees at most one send in flight, ordered by
// arrival.
type Dispatcher struct {
	sender        TextSender
	maxTextLength int

	mutex sync.Mutex
}

func NewDispatcher(sender TextSender, maxTextLength int) *Dispatcher {
	return &Dispatcher{
		sender:        sender,
		maxTextLength: maxTextLength,
	}
}

// Send validates the request and performs the transmission. Oversize or
// ambiguous requests are rejected before anything reaches the transport;
// transport failures come back as typed errors and never crash the
// dispatcher.
func (d *Dispatcher) Send(request Request) error {
	if err := d.validate(request); err != nil {
		return err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.sender.Connected() {
		return &types.NotConnectedError{}
	}

	var err error
	if request.Destination != nil {
		err = d.sender.SendText(request.Text, 0, *request.Destination)
	} else {
		err = d.sender.SendText(request.Text, *request.Channel, types.Broadcast)
	}

	if err != nil {
		log.With("origin", string(request.Origin), "err", err).Error("Mesh send failed")
		return err
	}

	log.With(
		"origin", string(request.Origin),
		"chars", utf8.RuneCountInString(request.Text),
	).Debug("Sent text to mesh")

	return nil
}

func (d *Dispatcher) validate(request Request) error {
	if request.Text == "" {
		return &types.InvalidRequestError{Reason: "empty message"}
	}

	if utf8.RuneCountInString(request.Text) > d.maxTextLength {
		return &types.InvalidRequestError{Reason: "message exceeds maximum length"}
	}

	if (request.Channel == nil) == (request.Destination == nil) {
		return &types.InvalidRequestError{Reason: "exactly one of channel and destination must be set"}
	}

	return nil
}

// MaxTextLength reports the outbound text bound enforced by this dispatcher.
func (d *Dispatcher) MaxTextLength() int {
	return d.maxTextLength
}
