package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/midoluz/meshgate/pkg/schedule"
	"github.com/midoluz/meshgate/pkg/types"
)

type fakeMessages []string

func (m fakeMessages) Messages(ctx context.Context) []string {
	return m
}

type fakeStatus string

func (s fakeStatus) Status(ctx context.Context) string {
	return string(s)
}

func newTestInterpreter(t *testing.T, sender *fakeSender, outage fakeMessages, demand, transit fakeStatus, pacing time.Duration) *Interpreter {
	t.Helper()

	runner := schedule.NewRunner()
	go runner.Run()
	t.Cleanup(runner.Stop)

	dispatcher := NewDispatcher(sender, 200)
	return NewInterpreter(outage, demand, transit, dispatcher, runner, "/", pacing)
}

func waitForSent(t *testing.T, sender *fakeSender, count int) []sentText {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		sender.mutex.Lock()
		sent := append([]sentText(nil), sender.sent...)
		sender.mutex.Unlock()

		if len(sent) >= count {
			return sent
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("expected %d sent messages", count)
	return nil
}

func TestIsCommand(t *testing.T) {
	in := newTestInterpreter(t, &fakeSender{connected: true}, nil, "", "", time.Millisecond)

	assert.True(t, in.IsCommand("/ping"))
	assert.True(t, in.IsCommand("/whatever"))
	assert.False(t, in.IsCommand("hola /ping"))
	assert.False(t, in.IsCommand("ping"))
}

func TestHandlePing(t *testing.T) {
	sender := &fakeSender{connected: true}
	in := newTestInterpreter(t, sender, nil, "", "", time.Millisecond)

	in.Handle("/ping", types.NodeId(0x11223344))

	sent := waitForSent(t, sender, 1)
	assert.Equal(t, "pong", sent[0].text)
	assert.Equal(t, types.NodeId(0x11223344), sent[0].destination)
	assert.Equal(t, uint32(0), sent[0].channel)
}

func TestHandleMatchesSubstringCaseInsensitive(t *testing.T) {
	sender := &fakeSender{connected: true}
	in := newTestInterpreter(t, sender, nil, "", "", time.Millisecond)

	in.Handle("/PING por favor", types.NodeId(1))

	sent := waitForSent(t, sender, 1)
	assert.Equal(t, "pong", sent[0].text)
}

func TestHandleFirstMatchWins(t *testing.T) {
	sender := &fakeSender{connected: true}
	in := newTestInterpreter(t, sender, nil, "", fakeStatus("🚇12:00 | A:OK"), time.Millisecond)

	// subte is checked before ping, so only the subte reply goes out
	in.Handle("/subte /ping", types.NodeId(1))

	time.Sleep(50 * time.Millisecond)
	sent := waitForSent(t, sender, 1)
	assert.Len(t, sent, 1)
	assert.Equal(t, "🚇12:00 | A:OK", sent[0].text)
}

func TestHandleDemand(t *testing.T) {
	sender := &fakeSender{connected: true}
	in := newTestInterpreter(t, sender, nil, fakeStatus("Demanda 12:00 | Hoy:18000MW | Est:19000MW"), "", time.Millisecond)

	in.Handle("/demanda", types.NodeId(1))

	sent := waitForSent(t, sender, 1)
	assert.Equal(t, "Demanda 12:00 | Hoy:18000MW | Est:19000MW", sent[0].text)
}

func TestHandleOutageSequencePaced(t *testing.T) {
	sender := &fakeSender{connected: true}
	messages := fakeMessages{"EN | Flores 120@18:30", "ES | Lanus 80@19:00", "Sin cortes reportados"}
	pacing := 60 * time.Millisecond
	in := newTestInterpreter(t, sender, messages, "", "", pacing)

	start := time.Now()
	in.Handle("/cortes", types.NodeId(1))

	sent := waitForSent(t, sender, 3)
	elapsed := time.Since(start)

	assert.Equal(t, "EN | Flores 120@18:30", sent[0].text)
	assert.Equal(t, "ES | Lanus 80@19:00", sent[1].text)
	assert.Equal(t, "Sin cortes reportados", sent[2].text)

	// Two pacing intervals must have elapsed for three messages
	assert.GreaterOrEqual(t, elapsed, 2*pacing)
}

func TestHandleTruncatesOversizeReply(t *testing.T) {
	sender := &fakeSender{connected: true}
	in := newTestInterpreter(t, sender, nil, fakeStatus(strings.Repeat("x", 500)), "", time.Millisecond)

	in.Handle("/demanda", types.NodeId(1))

	sent := waitForSent(t, sender, 1)
	assert.Equal(t, strings.Repeat("x", 200), sent[0].text)
}

func TestHandleUnknownCommandIsSilent(t *testing.T) {
	sender := &fakeSender{connected: true}
	in := newTestInterpreter(t, sender, nil, "", "", time.Millisecond)

	in.Handle("/clima", types.NodeId(1))

	time.Sleep(50 * time.Millisecond)
	sender.mutex.Lock()
	defer sender.mutex.Unlock()
	assert.Empty(t, sender.sent)
}

func TestHandleDisconnectedTransportDropsReply(t *testing.T) {
	sender := &fakeSender{connected: false}
	in := newTestInterpreter(t, sender, nil, "", "", time.Millisecond)

	// Must not panic or block
	in.Handle("/ping", types.NodeId(1))

	time.Sleep(50 * time.Millisecond)
	sender.mutex.Lock()
	defer sender.mutex.Unlock()
	assert.Empty(t, sender.sent)
}
