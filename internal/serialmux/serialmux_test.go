package serialmux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvLine(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		require.True(t, ok, "channel closed")
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
		return ""
	}
}

func TestSerialMux_MonitorFansOut(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	_, a := mux.Subscribe()
	_, b := mux.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	port.AddReadData([]byte("{\"ts\":1}\nOK\n"))
	assert.Equal(t, `{"ts":1}`, recvLine(t, a))
	assert.Equal(t, "OK", recvLine(t, a))
	assert.Equal(t, `{"ts":1}`, recvLine(t, b))
	assert.Equal(t, "OK", recvLine(t, b))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not stop on cancel")
	}
}

func TestSerialMux_MonitorEndsAtEOF(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = false
	port.AddReadData([]byte("one\n"))
	mux := NewSerialMux(port)
	require.NoError(t, mux.Monitor(context.Background()))
}

func TestSerialMux_MonitorReturnsReadError(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	boom := errors.New("device unplugged")

	done := make(chan error, 1)
	go func() { done <- mux.Monitor(context.Background()) }()
	port.FailRead(boom)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return the read error")
	}
}

func TestSerialMux_SlowSubscriberDoesNotBlock(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	_, slow := mux.Subscribe()
	_, fast := mux.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	// slow is never drained; fast keeps receiving once slow's buffer is full.
	for i := 0; i < 3*cap(slow); i++ {
		port.AddReadData([]byte(fmt.Sprintf("line %d\n", i)))
		assert.Equal(t, fmt.Sprintf("line %d", i), recvLine(t, fast))
	}
	assert.Equal(t, cap(slow), len(slow))
	assert.Equal(t, "line 0", <-slow)

	select {
	case err := <-done:
		t.Fatalf("Monitor returned early: %v", err)
	default:
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSerialMux_SendCommand(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	require.NoError(t, mux.SendCommand("CUE ENTER"))
	require.NoError(t, mux.SendCommand("CUE EXIT\n"))
	assert.Equal(t, "CUE ENTER\nCUE EXIT\n", port.GetWrittenData())

	port.WriteError = errors.New("write failed")
	assert.Error(t, mux.SendCommand("X"))

	port.ShortWrite = true
	assert.ErrorIs(t, mux.SendCommand("X"), ErrWriteFailed)
}

func TestSerialMux_Initialize(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	require.NoError(t, mux.Initialize("STREAM ON", "FORMAT JSON"))
	assert.Equal(t, "STREAM ON\nFORMAT JSON\n", port.GetWrittenData())

	port.WriteError = errors.New("nope")
	err := mux.Initialize("STREAM ON")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STREAM ON")
}

func TestSerialMux_UnsubscribeAndClose(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	id, a := mux.Subscribe()
	_, b := mux.Subscribe()
	mux.Unsubscribe(id)
	_, ok := <-a
	assert.False(t, ok)
	mux.Unsubscribe(id)

	port.CloseError = errors.New("close failed")
	assert.Error(t, mux.Close())
	_, ok = <-b
	assert.False(t, ok)
	assert.True(t, port.Closed)
}

// localHostRequest creates an httptest request that appears to come from
// localhost, which tsweb requires for debug routes.
func localHostRequest(method, path string, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "127.0.0.1:12345"
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req
}

func TestAttachAdminRoutes_SendCommandAPI(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	tests := []struct {
		name   string
		method string
		form   url.Values
		status int
	}{
		{"valid command", http.MethodPost, url.Values{"command": {"CUE ENTER"}}, http.StatusOK},
		{"empty command", http.MethodPost, url.Values{"command": {"  "}}, http.StatusBadRequest},
		{"wrong method", http.MethodGet, nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			httpMux.ServeHTTP(rec, localHostRequest(tt.method, "/debug/send-command-api", tt.form.Encode()))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, "CUE ENTER\n", port.GetWrittenData())
}

func TestAttachAdminRoutes_Tail(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	srv := httptest.NewServer(httpMux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/debug/tail", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	first, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": ping\n", first)

	port.AddReadData([]byte("# hello\n"))
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			assert.Equal(t, "data: # hello\n", line)
			break
		}
	}
}
