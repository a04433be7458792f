package api

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/plank.report/internal/hold"
	"github.com/banshee-data/plank.report/internal/monitoring"
	"github.com/banshee-data/plank.report/internal/session"
	"github.com/banshee-data/plank.report/internal/units"
)

// Ensure GRPCService implements the gRPC interface.
var _ HoldServiceServer = (*GRPCService)(nil)

// GRPCService streams hold transitions of a session to presentation
// clients.
type GRPCService struct {
	session *session.Session
}

func NewGRPCService(s *session.Session) *GRPCService {
	return &GRPCService{session: s}
}

// Watch implements HoldServiceServer.
func (g *GRPCService) Watch(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	tracker := g.session.Tracker()
	id, events := tracker.Subscribe()
	defer tracker.Unsubscribe(id)

	st := g.session.Status()
	monitoring.Logf("[gRPC] Watch started: session=%s state=%s", st.ID, st.State)
	msg, err := holdStruct(st.State, hold.None, st.Duration)
	if err != nil {
		return err
	}
	if err := stream.Send(msg); err != nil {
		return err
	}
	if st.Stopped {
		return nil
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			msg, err := holdStruct(ev.State, ev.Transition, ev.Duration)
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				monitoring.Logf("[gRPC] Send error: %v", err)
				return err
			}
		}
	}
}

func holdStruct(state hold.State, tr hold.Transition, d time.Duration) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"state":            state.String(),
		"transition":       tr.String(),
		"duration_seconds": float64(units.Seconds(d)),
		"duration":         units.FormatDuration(d),
	})
}
