package udp

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	applog "caraudio/internal/log"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("udp sender closed")

const writeTimeout = 50 * time.Millisecond

// SenderStats counts what a UDPSender has written.
type SenderStats struct {
	Packets uint64
	Bytes   uint64
	Errors  uint64
}

// UDPSender writes status packets to one destination. It is safe for
// concurrent use.
type UDPSender struct {
	target *net.UDPAddr

	mu    sync.Mutex
	conn  *net.UDPConn // nil once closed
	buf   bytes.Buffer
	stats SenderStats
}

// NewUDPSender connects a sender to target ("host:port").
func NewUDPSender(target string) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve status target %q: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial status target %q: %w", target, err)
	}
	applog.Infof("UDPSender: Sending status to %s", addr)
	return &UDPSender{target: addr, conn: conn}, nil
}

// Target returns the resolved destination.
func (s *UDPSender) Target() *net.UDPAddr {
	return s.target
}

// Send encodes pkt and writes it as a single datagram.
func (s *UDPSender) Send(pkt Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrSenderClosed
	}

	s.buf.Reset()
	if err := pkt.encode(&s.buf); err != nil {
		s.stats.Errors++
		return err
	}
	// A full socket buffer must not hold up the publisher.
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	n, err := s.conn.Write(s.buf.Bytes())
	if err != nil {
		s.stats.Errors++
		return fmt.Errorf("failed to send packet %d to %s: %w", pkt.Sequence, s.target, err)
	}
	s.stats.Packets++
	s.stats.Bytes += uint64(n)
	return nil
}

// Stats returns the counters so far.
func (s *UDPSender) Stats() SenderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close releases the socket. Later calls are no-ops.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	st := s.stats
	applog.Infof("UDPSender: Closing %s after %d packets (%d bytes, %d errors)", s.target, st.Packets, st.Bytes, st.Errors)
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close status socket: %w", err)
	}
	return nil
}

var _ interface{ Close() error } = (*UDPSender)(nil)
