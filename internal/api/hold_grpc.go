package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// HoldService_Watch_FullMethodName is the fully qualified Watch method.
const HoldService_Watch_FullMethodName = "/plank.HoldService/Watch"

// HoldServiceServer is the server API for plank.HoldService.
type HoldServiceServer interface {
	// Watch streams the current hold status followed by one message per
	// transition.
	Watch(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// HoldServiceClient is the client API for plank.HoldService.
type HoldServiceClient interface {
	Watch(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type holdServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewHoldServiceClient(cc grpc.ClientConnInterface) HoldServiceClient {
	return &holdServiceClient{cc}
}

func (c *holdServiceClient) Watch(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &HoldService_ServiceDesc.Streams[0], HoldService_Watch_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// RegisterHoldServiceServer attaches srv to s.
func RegisterHoldServiceServer(s grpc.ServiceRegistrar, srv HoldServiceServer) {
	s.RegisterService(&HoldService_ServiceDesc, srv)
}

func _HoldService_Watch_Handler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(HoldServiceServer).Watch(m, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// HoldService_ServiceDesc describes plank.HoldService. The messages are the
// well-known Empty and Struct types, so no generated code is needed.
var HoldService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "plank.HoldService",
	HandlerType: (*HoldServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       _HoldService_Watch_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "plank/hold.proto",
}
