package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type control struct {
	status StatusFunc
}

func (c control) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	reply, err := c.status(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := reply.toStruct()
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode status: %v", err))
	}
	return out, nil
}

// Serve runs the control plane on listener until ctx is cancelled.
func Serve(ctx context.Context, listener net.Listener, statusFn StatusFunc) error {
	if statusFn == nil {
		return errors.New("status handler is required")
	}

	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	server.RegisterService(&controlServiceDesc, control{status: statusFn})

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		healthServer.Shutdown()
		server.GracefulStop()
	}()

	err := server.Serve(listener)
	if ctx.Err() != nil {
		<-stopped
		return nil
	}
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve control plane: %w", err)
	}
	return nil
}
