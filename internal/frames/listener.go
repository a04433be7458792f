package frames

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/banshee-data/plank.report/internal/monitoring"
)

// Handler receives each successfully decoded frame.
type Handler func(Frame)

// Stats counts datagrams seen by a listener or capture replay.
type Stats struct {
	Packets uint64
	Frames  uint64
	Dropped uint64
}

type counters struct {
	packets atomic.Uint64
	frames  atomic.Uint64
	dropped atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Packets: c.packets.Load(),
		Frames:  c.frames.Load(),
		Dropped: c.dropped.Load(),
	}
}

// handle decodes one payload and hands it on, counting the outcome.
func (c *counters) handle(payload []byte, h Handler) error {
	c.packets.Add(1)
	f, err := Decode(payload)
	if err != nil {
		c.dropped.Add(1)
		return err
	}
	c.frames.Add(1)
	if h != nil {
		h(f)
	}
	return nil
}

// UDPListenerConfig configures a UDPListener.
type UDPListenerConfig struct {
	// Address is the host:port to bind, e.g. ":9555".
	Address string
	// RcvBuf is the socket receive buffer size; zero leaves the OS default.
	RcvBuf int
	// Sockets creates the socket; nil uses RealUDPSocketFactory.
	Sockets UDPSocketFactory
	Handler Handler
}

// UDPListener receives one frame per datagram.
type UDPListener struct {
	cfg   UDPListenerConfig
	stats counters
}

// NewUDPListener returns a listener; call Start to begin receiving.
func NewUDPListener(cfg UDPListenerConfig) *UDPListener {
	if cfg.Sockets == nil {
		cfg.Sockets = RealUDPSocketFactory{}
	}
	return &UDPListener{cfg: cfg}
}

// Stats returns packet counters so far.
func (l *UDPListener) Stats() Stats {
	return l.stats.snapshot()
}

// Start receives datagrams until ctx is cancelled. Undecodable datagrams are
// logged and counted as dropped.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := l.cfg.Sockets.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	defer conn.Close()

	if l.cfg.RcvBuf > 0 {
		if err := conn.SetReadBuffer(l.cfg.RcvBuf); err != nil {
			monitoring.Logf("Warning: failed to set UDP receive buffer size to %d: %v", l.cfg.RcvBuf, err)
		}
	}
	monitoring.Logf("UDP frame listener started on %s", conn.LocalAddr())

	buffer := make([]byte, 64*1024)
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("UDP frame listener stopping: %v", ctx.Err())
			return ctx.Err()
		default:
		}

		// A short deadline lets the loop notice cancellation.
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			monitoring.Logf("UDP read error: %v", err)
			continue
		}
		if err := l.stats.handle(buffer[:n], l.cfg.Handler); err != nil {
			monitoring.Logf("Dropping frame from %v: %v", from, err)
		}
	}
}
