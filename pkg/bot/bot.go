// Package bot implements the classification and dispatch core of the
// gateway: every packet observed on the mesh is normalized and logged, text
// messages starting with the command prefix are interpreted, and all
// outbound sends funnel through a single dispatcher.
package bot

import (
	"fmt"

	"github.com/charmbracelet/log"
	pb "buf.build/gen/go/meshtastic/protobufs/protocolbuffers/go/meshtastic"
)

// Bot wires the classifier, the event recorder and the command interpreter
// behind a single packet handler.
type Bot struct {
	classifier  *Classifier
	directory   *Directory
	recorder    *Recorder
	interpreter *Interpreter
}

func New(classifier *Classifier, directory *Directory, recorder *Recorder, interpreter *Interpreter) *Bot {
	return &Bot{
		classifier:  classifier,
		directory:   directory,
		recorder:    recorder,
		interpreter: interpreter,
	}
}

// OnPacket is the packet-arrival callback registered with the mesh
// transport. It runs on the single ingestion goroutine; nothing in here may
// block on the transport, a provider or the sink.
func (b *Bot) OnPacket(packet *pb.MeshPacket) {
	defer func() {
		if r := recover(); r != nil {
			log.With("err", r).Error("Error procesando paquete")
		}
	}()

	record := b.classifier.Classify(packet)

	b.logTraffic(record)
	b.recorder.Record(record)

	if record.Kind != KindTextMessage {
		return
	}

	text, _ := record.Payload["text"].(string)
	if b.interpreter.IsCommand(text) {
		// Provider lookups take seconds; keep them off the ingestion loop
		go b.interpreter.Handle(text, record.SenderID)
	}
}

// logTraffic prints the operator's one-line-per-packet view.
func (b *Bot) logTraffic(record Record) {
	peers := log.With(
		"from", record.SenderLabel,
		"to", b.directory.Resolve(record.DestID),
	)

	switch record.Kind {
	case KindTextMessage:
		peers.Info(fmt.Sprintf("%-14s Msg: %v", "Text Message", record.Payload["text"]))
	case KindPosition:
		peers.Info(fmt.Sprintf("%-14s Lat: %v, Lon: %v, Alt: %vm", "Position",
			record.Payload["latitude"], record.Payload["longitude"], record.Payload["altitude"]))
	case KindNodeInfo:
		peers.Info(fmt.Sprintf("%-14s Name: %v | HW: %v", "Node Info",
			record.Payload["longName"], record.Payload["hwModel"]))
	case KindTelemetry:
		peers.Info(fmt.Sprintf("%-14s Volt: %vV, Bat: %v%%", "Telemetry",
			record.Payload["voltage"], record.Payload["batteryLevel"]))
	case KindRouting:
		peers.Info(fmt.Sprintf("%-14s Mesh routing packet", "Routing"))
	case KindRangeTest:
		peers.Info(fmt.Sprintf("%-14s Range test packet", "Range Test"))
	case KindDetectionSensor:
		peers.Warn(fmt.Sprintf("%-14s SENSOR TRIGGERED", "Sensor Alert"))
	case KindAdmin:
		peers.Info(fmt.Sprintf("%-14s Admin config packet", "Admin"))
	default:
		peers.Info(fmt.Sprintf("%-14s %v", "Unknown", record.Payload["raw"]))
	}
}
