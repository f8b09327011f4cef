package bot

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/midoluz/meshgate/pkg/types"
)

type sentText struct {
	text        string
	channel     uint32
	destination types.NodeId
}

type fakeSender struct {
	mutex     sync.Mutex
	connected bool
	fail      error
	sent      []sentText

	inFlight   atomic.Bool
	overlapped atomic.Bool
}

func (s *fakeSender) Connected() bool {
	return s.connected
}

func (s *fakeSender) SendText(text string, channel uint32, destination types.NodeId) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.overlapped.Store(true)
	}
	defer s.inFlight.Store(false)

	if s.fail != nil {
		return s.fail
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sent = append(s.sent, sentText{text: text, channel: channel, destination: destination})
	return nil
}

func TestSendDirect(t *testing.T) {
	sender := &fakeSender{connected: true}
	dispatcher := NewDispatcher(sender, 200)

	destination := types.NodeId(0x11223344)
	err := dispatcher.Send(Request{
		Text:        "hola",
		Destination: &destination,
		Origin:      OriginCommandReply,
	})

	assert.NoError(t, err)
	assert.Equal(t, []sentText{{text: "hola", channel: 0, destination: destination}}, sender.sent)
}

func TestSendBroadcast(t *testing.T) {
	sender := &fakeSender{connected: true}
	dispatcher := NewDispatcher(sender, 200)

	channel := uint32(2)
	err := dispatcher.Send(Request{
		Text:    "aviso",
		Channel: &channel,
		Origin:  OriginREST,
	})

	assert.NoError(t, err)
	assert.Equal(t, []sentText{{text: "aviso", channel: 2, destination: types.Broadcast}}, sender.sent)
}

func TestSendRejectsEmptyText(t *testing.T) {
	dispatcher := NewDispatcher(&fakeSender{connected: true}, 200)

	channel := uint32(0)
	err := dispatcher.Send(Request{Channel: &channel})

	var invalid *types.InvalidRequestError
	assert.ErrorAs(t, err, &invalid)
}

func TestSendRejectsOversizeText(t *testing.T) {
	sender := &fakeSender{connected: true}
	dispatcher := NewDispatcher(sender, 200)

	channel := uint32(0)
	err := dispatcher.Send(Request{
		Text:    strings.Repeat("a", 201),
		Channel: &channel,
	})

	var invalid *types.InvalidRequestError
	assert.ErrorAs(t, err, &invalid)
	assert.Empty(t, sender.sent)

	// 200 runes is within the bound even when it is more than 200 bytes
	err = dispatcher.Send(Request{
		Text:    strings.Repeat("ñ", 200),
		Channel: &channel,
	})
	assert.NoError(t, err)
}

func TestSendRejectsAmbiguousTarget(t *testing.T) {
	dispatcher := NewDispatcher(&fakeSender{connected: true}, 200)

	var invalid *types.InvalidRequestError

	err := dispatcher.Send(Request{Text: "hola"})
	assert.ErrorAs(t, err, &invalid)

	channel := uint32(0)
	destination := types.NodeId(1)
	err = dispatcher.Send(Request{Text: "hola", Channel: &channel, Destination: &destination})
	assert.ErrorAs(t, err, &invalid)
}

func TestSendWhenNotConnected(t *testing.T) {
	sender := &fakeSender{connected: false}
	dispatcher := NewDispatcher(sender, 200)

	channel := uint32(0)
	err := dispatcher.Send(Request{Text: "hola", Channel: &channel})

	var notConnected *types.NotConnectedError
	assert.ErrorAs(t, err, &notConnected)
	assert.Empty(t, sender.sent)
}

func TestSendPropagatesTransportError(t *testing.T) {
	cause := errors.New("radio unreachable")
	sender := &fakeSender{connected: true, fail: cause}
	dispatcher := NewDispatcher(sender, 200)

	channel := uint32(0)
	err := dispatcher.Send(Request{Text: "hola", Channel: &channel})

	assert.ErrorIs(t, err, cause)
}

func TestSendSerializesConcurrentCallers(t *testing.T) {
	sender := &fakeSender{connected: true}
	dispatcher := NewDispatcher(sender, 200)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			channel := uint32(0)
			_ = dispatcher.Send(Request{Text: "concurrente", Channel: &channel})
		}()
	}
	wg.Wait()

	assert.False(t, sender.overlapped.Load())
	assert.Len(t, sender.sent, 32)
}
