package api

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/banshee-data/plank.report/internal/session"
	"github.com/banshee-data/plank.report/internal/testutil"
)

func dialHoldService(t *testing.T, sess *session.Session) HoldServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	RegisterHoldServiceServer(gs, NewGRPCService(sess))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewHoldServiceClient(conn)
}

func TestWatch(t *testing.T) {
	_, sess := newTestServer(t)
	client := dialHoldService(t, sess)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := client.Watch(ctx, &emptypb.Empty{})
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"state":            "idle",
		"transition":       "none",
		"duration_seconds": 0.0,
		"duration":         "00:00",
	}, first.AsMap())

	sess.HandleFrame(testutil.PlankKeypoints())
	sess.Tick()
	sess.Tick()
	sess.Tick()

	entered, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "entered", entered.Fields["transition"].GetStringValue())
	assert.Equal(t, "holding", entered.Fields["state"].GetStringValue())
	assert.Equal(t, 1.0, entered.Fields["duration_seconds"].GetNumberValue())

	exited, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "exited", exited.Fields["transition"].GetStringValue())
	assert.Equal(t, "idle", exited.Fields["state"].GetStringValue())
	assert.Equal(t, "00:02", exited.Fields["duration"].GetStringValue())

	sess.Stop(context.Background())
	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWatch_StoppedSessionSendsSnapshotOnly(t *testing.T) {
	_, sess := newTestServer(t)
	sess.HandleFrame(testutil.PlankKeypoints())
	sess.Tick()
	sess.Stop(context.Background())

	client := dialHoldService(t, sess)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := client.Watch(ctx, &emptypb.Empty{})
	require.NoError(t, err)

	msg, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "holding", msg.Fields["state"].GetStringValue())
	assert.Equal(t, "00:01", msg.Fields["duration"].GetStringValue())

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}
