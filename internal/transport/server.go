package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"prism/callback"
	"prism/internal/logging"
	"prism/proxy"
)

// Source is what the diagnostics service reads and drives; a
// pipeline.Runner satisfies it.
type Source interface {
	Describe() []proxy.Summary
	Set(ctx context.Context, ref callback.Ref, v any) error
	Values() (map[callback.Ref]any, error)
}

type Server struct {
	grpc *grpc.Server
	lis  net.Listener
}

func StartServer(port int, src Source) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return NewServer(lis, src), nil
}

// NewServer serves the diagnostics service on an existing listener.
func NewServer(lis net.Listener, src Source) *Server {
	s := &Server{
		grpc: grpc.NewServer(),
		lis:  lis,
	}
	RegisterDiagnosticsServer(s.grpc, &diagnostics{src: src})
	return s
}

func (s *Server) Addr() net.Addr { return s.lis.Addr() }

func (s *Server) Serve() error {
	logging.L().Info("diagnostics listening", "addr", s.lis.Addr().String())
	return s.grpc.Serve(s.lis)
}

func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

// ----- service ------------------------------------------------------------

type diagnostics struct {
	src Source
}

func (d *diagnostics) Ping(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "ok"})
}

func (d *diagnostics) ListCallbacks(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	var items []any
	if err := roundTrip(d.src.Describe(), &items); err != nil {
		return nil, status.Errorf(codes.Internal, "encode callbacks: %v", err)
	}
	return structpb.NewList(items)
}

func (d *diagnostics) SetSignal(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := in.GetFields()
	id, prop := f["component_id"].GetStringValue(), f["property"].GetStringValue()
	if id == "" || prop == "" {
		return nil, status.Error(codes.InvalidArgument, "component_id and property are required")
	}
	ref := callback.NewRef(id, prop)
	if err := d.src.Set(ctx, ref, f["value"].AsInterface()); err != nil {
		return nil, status.Errorf(codes.FailedPrecondition, "set %s: %v", ref, err)
	}
	logging.L().Debug("signal set over diagnostics", "ref", ref.String())

	vals, err := d.src.Values()
	if err != nil {
		return nil, status.Errorf(codes.Unimplemented, "values: %v", err)
	}
	byName := make(map[string]any, len(vals))
	for r, v := range vals {
		byName[r.String()] = v
	}
	var out map[string]any
	if err := roundTrip(byName, &out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode values: %v", err)
	}
	return structpb.NewStruct(out)
}

// roundTrip turns arbitrary Go values into the JSON shapes structpb accepts.
func roundTrip(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
