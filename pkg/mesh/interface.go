package mesh

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	pb "buf.build/gen/go/meshtastic/protobufs/protocolbuffers/go/meshtastic"
	"google.golang.org/protobuf/proto"

	"github.com/midoluz/meshgate/pkg/types"
)

const defaultHopLimit = 3

// PacketHandler receives every mesh packet observed on the transport.
// Handlers are invoked one at a time from a single goroutine.
type PacketHandler func(packet *pb.MeshPacket)

// Interface is a live session with the mesh: it owns the transport, keeps a
// snapshot of the device's node table and provides the text send primitive.
type Interface struct {
	transport Transport

	nodeNum   uint32
	connected atomic.Bool

	nodesMutex sync.RWMutex
	nodes      map[types.NodeId]*pb.User
}

// Connect performs the client API configuration handshake: it requests the
// device state and drains frames until the device signals completion,
// seeding the node table along the way.
func Connect(ctx context.Context, transport Transport) (*Interface, error) {
	iface := &Interface{
		transport: transport,
		nodes:     make(map[types.NodeId]*pb.User),
	}

	configId := rand.Uint32()
	err := transport.SendToRadio(ctx, &pb.ToRadio{
		PayloadVariant: &pb.ToRadio_WantConfigId{
			WantConfigId: configId,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request configuration: %w", err)
	}

	for {
		frame, err := transport.ReceiveFromRadio(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}

		switch payload := frame.PayloadVariant.(type) {
		case *pb.FromRadio_MyInfo:
			iface.nodeNum = payload.MyInfo.MyNodeNum
		case *pb.FromRadio_NodeInfo:
			if payload.NodeInfo.User != nil {
				iface.nodes[types.NodeId(payload.NodeInfo.Num)] = payload.NodeInfo.User
			}
		case *pb.FromRadio_ConfigCompleteId:
			if payload.ConfigCompleteId == configId {
				iface.connected.Store(true)

				log.With(
					"node", types.NodeId(iface.nodeNum).String(),
					"known_nodes", len(iface.nodes),
				).Info("Connected to mesh")

				return iface, nil
			}
		default:
			// Config frames we do not track (channels, metadata, queue
			// status). Ignore them.
		}
	}
}

// Run reads packets until the context is cancelled or the transport fails.
// The handler is called from this goroutine only, one packet at a time.
// Stream transports block in the read with no context plumbing; closing the
// interface unblocks them.
func (i *Interface) Run(ctx context.Context, handler PacketHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := i.transport.ReceiveFromRadio(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			i.connected.Store(false)
			return fmt.Errorf("mesh receive failed: %w", err)
		}

		switch payload := frame.PayloadVariant.(type) {
		case *pb.FromRadio_NodeInfo:
			if payload.NodeInfo.User != nil {
				i.storeNode(types.NodeId(payload.NodeInfo.Num), payload.NodeInfo.User)
			}
		case *pb.FromRadio_Packet:
			i.observeNodeInfo(payload.Packet)
			handler(payload.Packet)
		default:
			// Log records, queue status and other frames are not packets.
		}
	}
}

// observeNodeInfo keeps the node table fresh from NODEINFO traffic so label
// resolution does not depend on the startup snapshot alone.
func (i *Interface) observeNodeInfo(packet *pb.MeshPacket) {
	decoded, ok := packet.PayloadVariant.(*pb.MeshPacket_Decoded)
	if !ok || decoded.Decoded.Portnum != pb.PortNum_NODEINFO_APP {
		return
	}

	user := &pb.User{}
	if err := proto.Unmarshal(decoded.Decoded.Payload, user); err != nil {
		return
	}

	i.storeNode(types.NodeId(packet.From), user)
}

func (i *Interface) storeNode(id types.NodeId, user *pb.User) {
	i.nodesMutex.Lock()
	defer i.nodesMutex.Unlock()
	i.nodes[id] = user
}

// ShortName returns the display name of a node from the table snapshot.
// A miss is not an error; the table may be stale or incomplete.
func (i *Interface) ShortName(id types.NodeId) (string, bool) {
	i.nodesMutex.RLock()
	defer i.nodesMutex.RUnlock()

	user, ok := i.nodes[id]
	if !ok || user.ShortName == "" {
		return "", false
	}
	return user.ShortName, true
}

func (i *Interface) Connected() bool {
	return i.connected.Load()
}

func (i *Interface) NodeNum() types.NodeId {
	return types.NodeId(i.nodeNum)
}

// SendText transmits a text message either to a channel (destination must be
// the broadcast sentinel) or directly to a node.
func (i *Interface) SendText(text string, channel uint32, destination types.NodeId) error {
	if !i.connected.Load() {
		return &types.NotConnectedError{}
	}

	packet := &pb.MeshPacket{
		From:     i.nodeNum,
		To:       uint32(destination),
		Channel:  channel,
		Id:       rand.Uint32(),
		WantAck:  false,
		HopLimit: defaultHopLimit,
		PayloadVariant: &pb.MeshPacket_Decoded{
			Decoded: &pb.Data{
				Portnum: pb.PortNum_TEXT_MESSAGE_APP,
				Payload: []byte(text),
			},
		},
	}

	err := i.transport.SendToRadio(context.Background(), &pb.ToRadio{
		PayloadVariant: &pb.ToRadio_Packet{
			Packet: packet,
		},
	})
	if err != nil {
		i.connected.Store(false)
		return &types.SendError{Cause: err}
	}

	return nil
}

func (i *Interface) Close() error {
	i.connected.Store(false)
	return i.transport.Close()
}
