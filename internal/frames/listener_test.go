package frames

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/plank.report/internal/monitoring"
)

func muteLogs(t *testing.T) {
	t.Helper()
	prev := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = prev })
}

func TestUDPListener_DeliversFrames(t *testing.T) {
	muteLogs(t)
	sock := NewMockUDPSocket(
		[]byte(`{"ts": 10, "keypoints": [{"joint": "neck", "x": 0.5, "y": 0.4, "confidence": 0.9}]}`),
		[]byte(`not a frame`),
		[]byte(`{"ts": 20, "keypoints": [{"joint": "root", "x": 0.2, "y": 0.4, "confidence": 0.9}]}`),
	)
	got := make(chan Frame, 4)
	l := NewUDPListener(UDPListenerConfig{
		Address: "127.0.0.1:9555",
		RcvBuf:  1 << 16,
		Sockets: &MockUDPSocketFactory{Socket: sock},
		Handler: func(f Frame) { got <- f },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	for _, want := range []int64{10, 20} {
		select {
		case f := <-got:
			assert.Equal(t, want, f.TS)
		case <-time.After(2 * time.Second):
			t.Fatalf("frame ts=%d not delivered", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}

	assert.Equal(t, Stats{Packets: 3, Frames: 2, Dropped: 1}, l.Stats())
	assert.True(t, sock.Closed())
	assert.Equal(t, 1<<16, sock.ReadBufferSize())
}

func TestUDPListener_ListenError(t *testing.T) {
	muteLogs(t)
	l := NewUDPListener(UDPListenerConfig{
		Address: "127.0.0.1:9555",
		Sockets: &MockUDPSocketFactory{Err: errors.New("address in use")},
	})
	err := l.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
}

func TestUDPListener_BadAddress(t *testing.T) {
	l := NewUDPListener(UDPListenerConfig{Address: "not-an-address:port"})
	require.Error(t, l.Start(context.Background()))
}

func TestUDPListener_ReadErrorsAreSurvivable(t *testing.T) {
	muteLogs(t)
	sock := NewMockUDPSocket([]byte(`{"ts": 5, "keypoints": [{"joint": "neck", "x": 0, "y": 0, "confidence": 1}]}`))
	sock.FailNextRead(errors.New("transient"))
	got := make(chan Frame, 1)
	l := NewUDPListener(UDPListenerConfig{
		Address: "127.0.0.1:0",
		Sockets: &MockUDPSocketFactory{Socket: sock},
		Handler: func(f Frame) { got <- f },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Start(ctx)

	select {
	case f := <-got:
		assert.Equal(t, int64(5), f.TS)
	case <-time.After(2 * time.Second):
		t.Fatal("frame after read error not delivered")
	}
}

func TestUDPListener_ClosedSocketStops(t *testing.T) {
	muteLogs(t)
	sock := NewMockUDPSocket()
	sock.FailNextRead(net.ErrClosed)
	l := NewUDPListener(UDPListenerConfig{
		Address: "127.0.0.1:0",
		Sockets: &MockUDPSocketFactory{Socket: sock},
	})
	err := l.Start(context.Background())
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestUDPListener_RealSocket(t *testing.T) {
	muteLogs(t)
	// Find a free port, then release it for the listener.
	probe, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	addr := probe.LocalAddr().String()
	require.NoError(t, probe.Close())

	got := make(chan Frame, 1)
	l := NewUDPListener(UDPListenerConfig{Address: addr, Handler: func(f Frame) { got <- f }})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Start(ctx)

	conn, err := net.Dial("udp", addr)
	require.NoError(t, err)
	defer conn.Close()

	payload := []byte(`{"ts": 99, "keypoints": [{"joint": "neck", "x": 0, "y": 0, "confidence": 1}]}`)
	deadline := time.After(3 * time.Second)
	for {
		_, _ = conn.Write(payload)
		select {
		case f := <-got:
			assert.Equal(t, int64(99), f.TS)
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("no frame received over UDP")
		}
	}
}
