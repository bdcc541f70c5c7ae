package viiperapi

import (
	"bufio"
	"context"
	"encoding"
	"fmt"
	"io"
	"net"
	"sync"
)

// Stream is the long-lived connection to one device: input frames go out,
// device feedback comes back.
type Stream struct {
	BusID uint32
	DevID string

	conn net.Conn

	mu     sync.Mutex
	closed bool
}

// OpenStream connects to bus/{busID}/{devID}. The device must already exist.
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (*Stream, error) {
	if c.transport.mock != nil {
		return nil, fmt.Errorf("stream connections not supported with mock transport")
	}
	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(conn, "bus/%d/%s\x00", busID, devID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	return &Stream{BusID: busID, DevID: devID, conn: conn}, nil
}

// WriteBinary marshals v and writes it as one frame.
func (s *Stream) WriteBinary(v encoding.BinaryMarshaler) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return net.ErrClosed
	}
	_, err = s.conn.Write(data)
	return err
}

// ReadFrames reads fixed-size frames until the stream fails or is closed and
// hands each to fn. It returns nil when the stream was closed locally or by the peer.
func (s *Stream) ReadFrames(size int, fn func([]byte)) error {
	r := bufio.NewReader(s.conn)
	buf := make([]byte, size)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if s.isClosed() || err == io.EOF {
				return nil
			}
			return err
		}
		fn(buf)
	}
}

func (s *Stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close closes the connection. Safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
