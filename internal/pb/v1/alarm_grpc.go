package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "boiler.v1.AlarmService"

// Full method names.
const (
	AlarmServiceGetStatusFullMethodName  = "/" + ServiceName + "/GetStatus"
	AlarmServiceSetStateFullMethodName   = "/" + ServiceName + "/SetState"
	AlarmServiceGetHistoryFullMethodName = "/" + ServiceName + "/GetHistory"
	AlarmServiceGetAuditFullMethodName   = "/" + ServiceName + "/GetAudit"
)

// AlarmServiceClient is the client API for AlarmService.
type AlarmServiceClient interface {
	// GetStatus returns the controller snapshot.
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	// SetState applies an operator command and returns the new snapshot.
	SetState(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// GetHistory returns history rows, oldest first.
	GetHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error)
	// GetAudit returns audit records, newest first.
	GetAudit(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
}

type alarmServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlarmServiceClient wraps a connection.
func NewAlarmServiceClient(cc grpc.ClientConnInterface) AlarmServiceClient {
	return &alarmServiceClient{cc: cc}
}

func (c *alarmServiceClient) GetStatus(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlarmServiceGetStatusFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmServiceClient) SetState(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlarmServiceSetStateFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmServiceClient) GetHistory(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, AlarmServiceGetHistoryFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmServiceClient) GetAudit(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, AlarmServiceGetAuditFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// AlarmServiceServer is the server API for AlarmService. Implementations
// must embed UnimplementedAlarmServiceServer.
type AlarmServiceServer interface {
	GetStatus(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	SetState(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetHistory(ctx context.Context, in *structpb.Struct) (*structpb.ListValue, error)
	GetAudit(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)
	mustEmbedUnimplementedAlarmServiceServer()
}

// UnimplementedAlarmServiceServer answers Unimplemented for every method.
type UnimplementedAlarmServiceServer struct{}

// GetStatus implements AlarmServiceServer.
func (UnimplementedAlarmServiceServer) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatus not implemented")
}

// SetState implements AlarmServiceServer.
func (UnimplementedAlarmServiceServer) SetState(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SetState not implemented")
}

// GetHistory implements AlarmServiceServer.
func (UnimplementedAlarmServiceServer) GetHistory(context.Context, *structpb.Struct) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetHistory not implemented")
}

// GetAudit implements AlarmServiceServer.
func (UnimplementedAlarmServiceServer) GetAudit(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAudit not implemented")
}

func (UnimplementedAlarmServiceServer) mustEmbedUnimplementedAlarmServiceServer() {}

// RegisterAlarmServiceServer registers srv on s.
func RegisterAlarmServiceServer(s grpc.ServiceRegistrar, srv AlarmServiceServer) {
	s.RegisterService(&AlarmServiceDesc, srv)
}

// unaryHandler adapts one typed method to grpc.MethodHandler.
func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(AlarmServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(AlarmServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AlarmServiceServer), ctx, req.(*Req))
		}

		return interceptor(ctx, in, info, handler)
	}
}

// AlarmServiceDesc describes AlarmService for grpc.Server.
var AlarmServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlarmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    unaryHandler(AlarmServiceGetStatusFullMethodName, AlarmServiceServer.GetStatus),
		},
		{
			MethodName: "SetState",
			Handler:    unaryHandler(AlarmServiceSetStateFullMethodName, AlarmServiceServer.SetState),
		},
		{
			MethodName: "GetHistory",
			Handler:    unaryHandler(AlarmServiceGetHistoryFullMethodName, AlarmServiceServer.GetHistory),
		},
		{
			MethodName: "GetAudit",
			Handler:    unaryHandler(AlarmServiceGetAuditFullMethodName, AlarmServiceServer.GetAudit),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "boiler/v1/alarm.proto",
}
