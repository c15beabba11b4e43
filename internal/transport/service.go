package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "prism.v1.Diagnostics"

const (
	methodPing          = "/" + serviceName + "/Ping"
	methodListCallbacks = "/" + serviceName + "/ListCallbacks"
	methodSetSignal     = "/" + serviceName + "/SetSignal"
)

// DiagnosticsServer is the server API for the diagnostics service. Messages
// are protobuf well-known types, so no generated code is needed.
type DiagnosticsServer interface {
	Ping(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListCallbacks(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	SetSignal(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterDiagnosticsServer(s grpc.ServiceRegistrar, srv DiagnosticsServer) {
	s.RegisterService(&diagnosticsServiceDesc, srv)
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiagnosticsServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodPing}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiagnosticsServer).Ping(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func listCallbacksHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiagnosticsServer).ListCallbacks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListCallbacks}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiagnosticsServer).ListCallbacks(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func setSignalHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiagnosticsServer).SetSignal(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSetSignal}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiagnosticsServer).SetSignal(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var diagnosticsServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DiagnosticsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: pingHandler},
		{MethodName: "ListCallbacks", Handler: listCallbacksHandler},
		{MethodName: "SetSignal", Handler: setSignalHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "prism/v1/diagnostics.proto",
}
