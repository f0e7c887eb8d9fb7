package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"gocv.io/x/gocv"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// packetSize is the largest datagram the cameras send.
const packetSize = 2048

// assembler rebuilds JPEG frames from datagrams, one buffer per sender. A datagram
// starting with the JPEG header begins a frame; one ending with the footer completes it.
type assembler struct {
	buffers map[string]*bytes.Buffer
}

func newAssembler() *assembler {
	return &assembler{buffers: make(map[string]*bytes.Buffer)}
}

func (a *assembler) feed(sender string, data []byte) ([]byte, bool) {
	buf, ok := a.buffers[sender]
	if !ok {
		buf = new(bytes.Buffer)
		a.buffers[sender] = buf
	}

	if bytes.HasPrefix(data, jpegHeader) {
		buf.Reset()
	} else if buf.Len() == 0 {
		// Mid-frame datagram without a start; wait for the next header.
		return nil, false
	}
	buf.Write(data)

	if !bytes.HasSuffix(data, jpegFooter) {
		return nil, false
	}
	frame := make([]byte, buf.Len())
	copy(frame, buf.Bytes())
	buf.Reset()
	return frame, true
}

// UDPSource receives JPEG frames pushed by network cameras. Only the newest complete
// frame is kept; the detection loop never sees a backlog.
type UDPSource struct {
	conn   *net.UDPConn
	logger *logger.Logger
	frames chan []byte
	once   sync.Once
}

func ListenUDP(port int, logger *logger.Logger) (*UDPSource, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP port %d: %w", port, err)
	}

	s := &UDPSource{
		conn:   conn,
		logger: logger,
		frames: make(chan []byte, 1),
	}
	go s.receive()
	logger.Info("UDP camera source listening on port %d", port)
	return s, nil
}

func (s *UDPSource) receive() {
	packet := make([]byte, packetSize)
	frames := newAssembler()

	for {
		n, remote, err := s.conn.ReadFromUDP(packet)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.frames)
				return
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		frame, ok := frames.feed(remote.IP.String(), packet[:n])
		if !ok {
			continue
		}
		s.offer(frame)
	}
}

// offer replaces any frame still waiting.
func (s *UDPSource) offer(frame []byte) {
	select {
	case <-s.frames:
	default:
	}
	select {
	case s.frames <- frame:
	default:
	}
}

func (s *UDPSource) Next(ctx context.Context) (gocv.Mat, error) {
	for {
		select {
		case <-ctx.Done():
			return gocv.Mat{}, ctx.Err()
		case data, ok := <-s.frames:
			if !ok {
				return gocv.Mat{}, io.EOF
			}
			mat, err := gocv.IMDecode(data, gocv.IMReadColor)
			if err != nil {
				s.logger.Warning("Dropping undecodable frame (%d bytes): %v", len(data), err)
				continue
			}
			if mat.Empty() {
				mat.Close()
				s.logger.Warning("Dropping empty frame (%d bytes)", len(data))
				continue
			}
			return mat, nil
		}
	}
}

func (s *UDPSource) Close() error {
	var err error
	s.once.Do(func() { err = s.conn.Close() })
	return err
}
