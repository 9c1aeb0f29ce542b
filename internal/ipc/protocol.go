package ipc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the control service registered on the runtime socket.
	ServiceName = "bingo.v1.Control"

	statusMethod = "/" + ServiceName + "/Status"
)

// StatusReply is the daemon snapshot returned by the Status RPC.
type StatusReply struct {
	State        string
	Device       string
	LastTrigger  time.Time
	Dispatches   int
	LastAction   string
	ContextTurns int
	Uptime       time.Duration
}

// StatusFunc produces the current snapshot for one Status call.
type StatusFunc func(context.Context) (StatusReply, error)

// controlServer is the handler type checked by grpc.Server.RegisterService.
type controlServer interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var controlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*controlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: statusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bingo/v1/control.proto",
}

func statusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controlServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: statusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(controlServer).Status(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func (r StatusReply) toStruct() (*structpb.Struct, error) {
	lastTrigger := ""
	if !r.LastTrigger.IsZero() {
		lastTrigger = r.LastTrigger.UTC().Format(time.RFC3339Nano)
	}
	return structpb.NewStruct(map[string]any{
		"state":         r.State,
		"device":        r.Device,
		"last_trigger":  lastTrigger,
		"dispatches":    r.Dispatches,
		"last_action":   r.LastAction,
		"context_turns": r.ContextTurns,
		"uptime_ms":     r.Uptime.Milliseconds(),
	})
}

func statusFromStruct(s *structpb.Struct) StatusReply {
	fields := s.GetFields()
	reply := StatusReply{
		State:        fields["state"].GetStringValue(),
		Device:       fields["device"].GetStringValue(),
		Dispatches:   int(fields["dispatches"].GetNumberValue()),
		LastAction:   fields["last_action"].GetStringValue(),
		ContextTurns: int(fields["context_turns"].GetNumberValue()),
		Uptime:       time.Duration(fields["uptime_ms"].GetNumberValue()) * time.Millisecond,
	}
	if raw := fields["last_trigger"].GetStringValue(); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			reply.LastTrigger = ts
		}
	}
	return reply
}
