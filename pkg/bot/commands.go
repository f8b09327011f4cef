package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/midoluz/meshgate/pkg/providers"
	"github.com/midoluz/meshgate/pkg/schedule"
	"github.com/midoluz/meshgate/pkg/types"
)

// Interpreter recognizes the command grammar embedded in text messages and
// produces replies. Matching is substring containment on the lower-cased
// text; the first matching command in the order below wins, and only one
// command executes per message.
type Interpreter struct {
	outage  providers.MessageProvider
	demand  providers.StatusProvider
	transit providers.StatusProvider

	dispatcher *Dispatcher
	runner     *schedule.Runner

	prefix string
	pacing time.Duration
}

func NewInterpreter(
	outage providers.MessageProvider,
	demand providers.StatusProvider,
	transit providers.StatusProvider,
	dispatcher *Dispatcher,
	runner *schedule.Runner,
	prefix string,
	pacing time.Duration,
) *Interpreter {
	return &Interpreter{
		outage:     outage,
		demand:     demand,
		transit:    transit,
		dispatcher: dispatcher,
		runner:     runner,
		prefix:     prefix,
		pacing:     pacing,
	}
}

// IsCommand reports whether a trimmed message text invokes the grammar.
func (in *Interpreter) IsCommand(text string) bool {
	return strings.HasPrefix(text, in.prefix)
}

// Handle executes the first matching command and issues its replies to the
// sender. It blocks for the duration of the provider call and must not run
// on the packet ingestion goroutine.
func (in *Interpreter) Handle(text string, sender types.NodeId) {
	lowered := strings.ToLower(text)

	switch {
	case strings.Contains(lowered, in.prefix+"cortes"):
		messages := in.outage.Messages(context.Background())
		in.replySequence(messages, sender)

	case strings.Contains(lowered, in.prefix+"demanda"):
		in.reply(in.demand.Status(context.Background()), sender)

	case strings.Contains(lowered, in.prefix+"subte"):
		reply := in.transit.Status(context.Background())
		log.With("to", sender.String()).Info("Respuesta Subte: " + reply)
		in.reply(reply, sender)

	case strings.Contains(lowered, in.prefix+"ping"):
		in.reply("pong", sender)
	}
}

// reply sends a single message back to the sender. Delivery failures are
// logged and the reply is dropped; a disconnected transport never takes the
// ingestion loop down.
func (in *Interpreter) reply(text string, sender types.NodeId) {
	destination := sender
	err := in.dispatcher.Send(Request{
		Text:        in.truncate(text),
		Destination: &destination,
		Origin:      OriginCommandReply,
	})
	if err != nil {
		log.With("to", sender.String(), "err", err).Warn("Command reply dropped")
	}
}

// replySequence paces a multi-message reply so successive transmissions
// respect the transport's airtime constraints. The pacing belongs to the
// sequence; the dispatcher itself neither delays nor reorders.
func (in *Interpreter) replySequence(messages []string, sender types.NodeId) {
	now := time.Now()
	total := len(messages)

	for i, message := range messages {
		text := message
		index := i

		in.runner.At(func() {
			log.With("to", sender.String()).
				Info(fmt.Sprintf("Respuesta (%d/%d): %s", index+1, total, text))
			in.reply(text, sender)
		}, now.Add(time.Duration(index)*in.pacing))
	}
}

func (in *Interpreter) truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= in.dispatcher.MaxTextLength() {
		return text
	}
	return string(runes[:in.dispatcher.MaxTextLength()])
}
