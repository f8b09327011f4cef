package bot

import (
	pb "buf.build/gen/go/meshtastic/protobufs/protocolbuffers/go/meshtastic"
)

// Kind is the application category of a packet. The classifier maps every
// known application port onto one of these; anything else is Unknown.
type Kind int

const (
	KindTextMessage Kind = iota
	KindPosition
	KindNodeInfo
	KindTelemetry
	KindRouting
	KindRangeTest
	KindDetectionSensor
	KindAdmin
	KindUnknown
)

// KindOfPort maps an application port number to a Kind.
func KindOfPort(port pb.PortNum) Kind {
	switch port {
	case pb.PortNum_TEXT_MESSAGE_APP:
		return KindTextMessage
	case pb.PortNum_POSITION_APP:
		return KindPosition
	case pb.PortNum_NODEINFO_APP:
		return KindNodeInfo
	case pb.PortNum_TELEMETRY_APP:
		return KindTelemetry
	case pb.PortNum_ROUTING_APP:
		return KindRouting
	case pb.PortNum_RANGE_TEST_APP:
		return KindRangeTest
	case pb.PortNum_DETECTION_SENSOR_APP:
		return KindDetectionSensor
	case pb.PortNum_ADMIN_APP:
		return KindAdmin
	default:
		return KindUnknown
	}
}

// String returns the event type stored in sink rows. Known kinds keep the
// Meshtastic port names so existing consumers of the eventos table keep
// working.
func (k Kind) String() string {
	switch k {
	case KindTextMessage:
		return "TEXT_MESSAGE_APP"
	case KindPosition:
		return "POSITION_APP"
	case KindNodeInfo:
		return "NODEINFO_APP"
	case KindTelemetry:
		return "TELEMETRY_APP"
	case KindRouting:
		return "ROUTING_APP"
	case KindRangeTest:
		return "RANGE_TEST_APP"
	case KindDetectionSensor:
		return "DETECTION_SENSOR_APP"
	case KindAdmin:
		return "ADMIN_APP"
	default:
		return "UNKNOWN"
	}
}
