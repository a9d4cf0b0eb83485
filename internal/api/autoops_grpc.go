package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// AutoOpsServiceName is the fully qualified gRPC service name.
const AutoOpsServiceName = "autoops.v1.AutoOps"

const (
	runFlowMethod     = "/" + AutoOpsServiceName + "/RunFlow"
	clearCacheMethod  = "/" + AutoOpsServiceName + "/ClearCache"
	healthCheckMethod = "/" + AutoOpsServiceName + "/HealthCheck"
)

// AutoOpsServer is the server API for the AutoOps service.
type AutoOpsServer interface {
	RunFlow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearCache(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	HealthCheck(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// UnimplementedAutoOpsServer can be embedded to keep forward compatibility.
type UnimplementedAutoOpsServer struct{}

func (UnimplementedAutoOpsServer) RunFlow(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RunFlow not implemented")
}

func (UnimplementedAutoOpsServer) ClearCache(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ClearCache not implemented")
}

func (UnimplementedAutoOpsServer) HealthCheck(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method HealthCheck not implemented")
}

// RegisterAutoOpsServer attaches srv to the gRPC registrar.
func RegisterAutoOpsServer(s grpc.ServiceRegistrar, srv AutoOpsServer) {
	s.RegisterService(&AutoOpsServiceDesc, srv)
}

func runFlowHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AutoOpsServer).RunFlow(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: runFlowMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AutoOpsServer).RunFlow(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func clearCacheHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AutoOpsServer).ClearCache(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: clearCacheMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AutoOpsServer).ClearCache(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func healthCheckHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AutoOpsServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: healthCheckMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AutoOpsServer).HealthCheck(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// AutoOpsServiceDesc is the grpc.ServiceDesc for the AutoOps service.
var AutoOpsServiceDesc = grpc.ServiceDesc{
	ServiceName: AutoOpsServiceName,
	HandlerType: (*AutoOpsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunFlow", Handler: runFlowHandler},
		{MethodName: "ClearCache", Handler: clearCacheHandler},
		{MethodName: "HealthCheck", Handler: healthCheckHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "autoops/v1/autoops.proto",
}

// AutoOpsClient is the client API for the AutoOps service.
type AutoOpsClient interface {
	RunFlow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ClearCache(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	HealthCheck(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type autoOpsClient struct {
	cc grpc.ClientConnInterface
}

// NewAutoOpsClient wraps an established connection.
func NewAutoOpsClient(cc grpc.ClientConnInterface) AutoOpsClient {
	return &autoOpsClient{cc: cc}
}

func (c *autoOpsClient) RunFlow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, runFlowMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *autoOpsClient) ClearCache(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, clearCacheMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *autoOpsClient) HealthCheck(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, healthCheckMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
