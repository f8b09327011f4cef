package mesh

import (
	"context"
	"crypto/rand"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	pb "buf.build/gen/go/meshtastic/protobufs/protocolbuffers/go/meshtastic"
	"google.golang.org/protobuf/proto"
)

// MQTTConfig describes the broker attachment of an MQTTTransport.
type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	// RootTopic is the Meshtastic uplink root, usually "msh/<region>".
	RootTopic string `yaml:"root_topic"`
	// ChannelName and GatewayID identify the envelope this gateway
	// publishes under.
	ChannelName string `yaml:"channel_name"`
	GatewayID   string `yaml:"gateway_id"`
}

// MQTTTransport attaches the gateway to the mesh through a broker instead of
// a local device. Mesh packets travel wrapped in ServiceEnvelope messages on
// the standard uplink topics.
type MQTTTransport struct {
	config MQTTConfig

	client   mqtt.Client
	messages chan mqtt.Message
	local    chan *pb.FromRadio
}

// NewMQTTTransport connects to the broker and subscribes to every envelope
// under the root topic.
func NewMQTTTransport(config MQTTConfig) (*MQTTTransport, error) {
	mt := &MQTTTransport{
		config:   config,
		messages: make(chan mqtt.Message, 16),
		local:    make(chan *pb.FromRadio, 1),
	}

	randomId := make([]byte, 4)
	_, _ = rand.Read(randomId)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.BrokerURL)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetClientID(fmt.Sprintf("meshgate-%x", randomId))
	opts.SetOrderMatters(false)

	mt.client = mqtt.NewClient(opts)

	token := mt.client.Connect()
	<-token.Done()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect MQTT: %w", err)
	}

	token = mt.client.Subscribe(config.RootTopic+"/2/e/#", 0, func(_ mqtt.Client, message mqtt.Message) {
		mt.messages <- message
	})
	<-token.Done()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to subscribe to topic: %w", err)
	}

	return mt, nil
}

func (mt *MQTTTransport) SendToRadio(ctx context.Context, frame *pb.ToRadio) error {
	switch payload := frame.PayloadVariant.(type) {
	case *pb.ToRadio_Packet:
		return mt.sendEnvelope(payload.Packet)
	case *pb.ToRadio_WantConfigId:
		// A broker holds no device state. Complete the handshake locally
		// with an empty configuration.
		mt.local <- &pb.FromRadio{
			PayloadVariant: &pb.FromRadio_ConfigCompleteId{
				ConfigCompleteId: payload.WantConfigId,
			},
		}
		return nil
	default:
		return nil
	}
}

func (mt *MQTTTransport) sendEnvelope(packet *pb.MeshPacket) error {
	envelope := &pb.ServiceEnvelope{
		Packet:    packet,
		ChannelId: mt.config.ChannelName,
		GatewayId: mt.config.GatewayID,
	}

	data, err := proto.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	topic := fmt.Sprintf("%s/2/e/%s/%s", mt.config.RootTopic, mt.config.ChannelName, mt.config.GatewayID)
	token := mt.client.Publish(topic, 0, false, data)
	<-token.Done()
	return token.Error()
}

func (mt *MQTTTransport) ReceiveFromRadio(ctx context.Context) (*pb.FromRadio, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame := <-mt.local:
		return frame, nil
	case message := <-mt.messages:
		envelope := &pb.ServiceEnvelope{}
		if err := proto.Unmarshal(message.Payload(), envelope); err != nil {
			return nil, ErrInvalidFrame
		}

		return &pb.FromRadio{
			PayloadVariant: &pb.FromRadio_Packet{
				Packet: envelope.GetPacket(),
			},
		}, nil
	}
}

func (mt *MQTTTransport) Close() error {
	if mt.client != nil && mt.client.IsConnected() {
		mt.client.Disconnect(1000)
	}
	return nil
}
