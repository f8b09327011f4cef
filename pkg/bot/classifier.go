package bot

import (
	"encoding/base64"
	"strings"

	pb "buf.build/gen/go/meshtastic/protobufs/protocolbuffers/go/meshtastic"
	"google.golang.org/protobuf/proto"

	"github.com/midoluz/meshgate/pkg/types"
)

// Record is the normalized form of one observed packet. The payload holds
// only JSON-safe values: nil, bool, numbers, strings and nested maps/slices
// thereof. Anything that cannot be represented that way is stringified at
// classification time.
type Record struct {
	Kind        Kind
	SenderID    types.NodeId
	SenderLabel string
	DestID      types.NodeId
	Payload     map[string]any
}

// Classifier turns raw mesh packets into Records. Classification never
// fails: malformed payload fields degrade to nil and unknown structures to a
// string rendering.
type Classifier struct {
	directory *Directory
}

func NewClassifier(directory *Directory) *Classifier {
	return &Classifier{directory: directory}
}

// Classify produces the normalized record for a packet. It is a pure read;
// routing the record to the event log or the command interpreter is the
// caller's job.
func (c *Classifier) Classify(packet *pb.MeshPacket) Record {
	sender := types.NodeId(packet.From)
	dest := types.NodeId(packet.To)

	record := Record{
		Kind:        KindUnknown,
		SenderID:    sender,
		SenderLabel: c.directory.Resolve(sender),
		DestID:      dest,
	}

	decoded, ok := packet.PayloadVariant.(*pb.MeshPacket_Decoded)
	if !ok {
		// Encrypted or empty payload, keep an opaque rendering
		record.Payload = map[string]any{"raw": packet.String()}
		return record
	}

	data := decoded.Decoded
	record.Kind = KindOfPort(data.Portnum)

	switch record.Kind {
	case KindTextMessage:
		record.Payload = map[string]any{
			"text": strings.TrimSpace(string(data.Payload)),
		}

	case KindPosition:
		record.Payload = positionPayload(data.Payload)

	case KindNodeInfo:
		record.Payload = nodeInfoPayload(data.Payload)

	case KindTelemetry:
		record.Payload = telemetryPayload(data.Payload)

	case KindRouting, KindRangeTest, KindDetectionSensor, KindAdmin:
		record.Payload = map[string]any{"raw": data.String()}

	default:
		// Explicit catch-all: ports this gateway does not parse are still
		// logged, as a string rendering
		record.Payload = map[string]any{"raw": data.String()}
	}

	return record
}

// positionPayload extracts the fixed position fields. Optional fields the
// sender did not report stay nil; a reported zero and a missing value are
// different things.
func positionPayload(payload []byte) map[string]any {
	fields := map[string]any{
		"latitude":        nil,
		"longitude":       nil,
		"altitude":        nil,
		"satellite_count": nil,
		"pdop":            nil,
	}

	position := &pb.Position{}
	if err := proto.Unmarshal(payload, position); err != nil {
		return fields
	}

	if position.LatitudeI != nil {
		fields["latitude"] = float64(*position.LatitudeI) * 1e-7
	}
	if position.LongitudeI != nil {
		fields["longitude"] = float64(*position.LongitudeI) * 1e-7
	}
	if position.Altitude != nil {
		fields["altitude"] = int(*position.Altitude)
	}

	// Plain proto3 fields carry no presence bit; zero means unreported
	if position.SatsInView != 0 {
		fields["satellite_count"] = int(position.SatsInView)
	}
	if position.PDOP != 0 {
		fields["pdop"] = int(position.PDOP)
	}

	return fields
}

// nodeInfoPayload passes the user info structure through, byte fields and
// enums resolved to strings.
func nodeInfoPayload(payload []byte) map[string]any {
	user := &pb.User{}
	if err := proto.Unmarshal(payload, user); err != nil {
		return map[string]any{}
	}

	return map[string]any{
		"id":         user.Id,
		"longName":   user.LongName,
		"shortName":  user.ShortName,
		"macaddr":    base64.StdEncoding.EncodeToString(user.Macaddr),
		"hwModel":    user.HwModel.String(),
		"role":       user.Role.String(),
		"isLicensed": user.IsLicensed,
		"publicKey":  base64.StdEncoding.EncodeToString(user.PublicKey),
	}
}

// telemetryPayload extracts the device metrics sub-structure. Other
// telemetry variants (environment, power, ...) are not parsed.
func telemetryPayload(payload []byte) map[string]any {
	telemetry := &pb.Telemetry{}
	if err := proto.Unmarshal(payload, telemetry); err != nil {
		return map[string]any{}
	}

	variant, ok := telemetry.Variant.(*pb.Telemetry_DeviceMetrics)
	if !ok || variant.DeviceMetrics == nil {
		return map[string]any{}
	}

	metrics := variant.DeviceMetrics
	fields := map[string]any{
		"batteryLevel":       nil,
		"voltage":            nil,
		"channelUtilization": nil,
		"airUtilTx":          nil,
		"uptimeSeconds":      nil,
	}

	if metrics.BatteryLevel != nil {
		fields["batteryLevel"] = int(*metrics.BatteryLevel)
	}
	if metrics.Voltage != nil {
		fields["voltage"] = float64(*metrics.Voltage)
	}
	if metrics.ChannelUtilization != nil {
		fields["channelUtilization"] = float64(*metrics.ChannelUtilization)
	}
	if metrics.AirUtilTx != nil {
		fields["airUtilTx"] = float64(*metrics.AirUtilTx)
	}
	if metrics.UptimeSeconds != nil {
		fields["uptimeSeconds"] = int(*metrics.UptimeSeconds)
	}

	return fields
}
