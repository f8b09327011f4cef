package mesh

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	pb "buf.build/gen/go/meshtastic/protobufs/protocolbuffers/go/meshtastic"
	"go.bug.st/serial"
	"google.golang.org/protobuf/proto"
)

const (
	// Framing of the Meshtastic client API stream protocol.
	frameStart1 = 0x94
	frameStart2 = 0xc3

	maxFrameLen = 512

	defaultTCPPort  = "4403"
	defaultBaudRate = 115200
)

// StreamTransport speaks the framed client API protocol over any byte
// stream, a TCP connection or a serial port.
type StreamTransport struct {
	stream io.ReadWriteCloser

	readMutex  sync.Mutex
	writeMutex sync.Mutex
}

// NewTCPTransport connects to a device's client API over TCP. The default
// port 4403 is assumed when the address carries none.
func NewTCPTransport(address string) (*StreamTransport, error) {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, defaultTCPPort)
	}

	conn, err := net.DialTimeout("tcp", address, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	return &StreamTransport{stream: conn}, nil
}

// NewSerialTransport opens the device's client API on a local serial port
// with the standard 115200 baud rate.
func NewSerialTransport(portName string) (*StreamTransport, error) {
	mode := &serial.Mode{
		BaudRate: defaultBaudRate,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	return &StreamTransport{stream: port}, nil
}

// NewStreamTransport wraps an already open byte stream.
func NewStreamTransport(stream io.ReadWriteCloser) *StreamTransport {
	return &StreamTransport{stream: stream}
}

func (st *StreamTransport) ReceiveFromRadio(ctx context.Context) (*pb.FromRadio, error) {
	st.readMutex.Lock()
	buf, err := st.readFrame()
	st.readMutex.Unlock()
	if err != nil {
		return nil, err
	}

	frame := &pb.FromRadio{}
	if err := proto.Unmarshal(buf, frame); err != nil {
		return nil, ErrInvalidFrame
	}
	return frame, nil
}

// readFrame scans the stream for the two start bytes, then reads the
// big-endian length and the payload. Garbage between frames (device debug
// output shares the serial line) is skipped.
func (st *StreamTransport) readFrame() ([]byte, error) {
	header := make([]byte, 4)

	for {
		if _, err := io.ReadFull(st.stream, header[:1]); err != nil {
			return nil, err
		}
		if header[0] != frameStart1 {
			continue
		}

		if _, err := io.ReadFull(st.stream, header[1:2]); err != nil {
			return nil, err
		}
		if header[1] != frameStart2 {
			continue
		}

		if _, err := io.ReadFull(st.stream, header[2:]); err != nil {
			return nil, err
		}

		frameLen := int(binary.BigEndian.Uint16(header[2:4]))
		if frameLen > maxFrameLen {
			continue
		}

		data := make([]byte, frameLen)
		_, err := io.ReadFull(st.stream, data)
		return data, err
	}
}

func (st *StreamTransport) SendToRadio(ctx context.Context, frame *pb.ToRadio) error {
	buf, err := proto.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	st.writeMutex.Lock()
	defer st.writeMutex.Unlock()
	return st.writeFrame(buf)
}

func (st *StreamTransport) writeFrame(data []byte) error {
	if len(data) > maxFrameLen {
		return fmt.Errorf("frame too long (%d bytes)", len(data))
	}

	header := []byte{frameStart1, frameStart2, 0, 0}
	binary.BigEndian.PutUint16(header[2:4], uint16(len(data)))

	if _, err := st.stream.Write(header); err != nil {
		return err
	}

	_, err := st.stream.Write(data)
	return err
}

func (st *StreamTransport) Close() error {
	return st.stream.Close()
}
