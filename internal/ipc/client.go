package ipc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrNotRunning is returned when no daemon owns the socket.
var ErrNotRunning = errors.New("bingo is not running")

func dial(path string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient("unix://"+path, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial control socket %s: %w", path, err)
	}
	return conn, nil
}

// QueryStatus calls the Status RPC with a deadline.
func QueryStatus(ctx context.Context, path string, timeout time.Duration) (StatusReply, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return StatusReply{}, ErrNotRunning
	}

	conn, err := dial(path)
	if err != nil {
		return StatusReply{}, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, statusMethod, &emptypb.Empty{}, out); err != nil {
		if status.Code(err) == codes.Unavailable {
			return StatusReply{}, fmt.Errorf("%w: %v", ErrNotRunning, err)
		}
		return StatusReply{}, fmt.Errorf("query status: %w", err)
	}
	return statusFromStruct(out), nil
}

// Probe checks whether a responsive owner is currently serving on path.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	conn, err := dial(path)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err == nil {
		return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
	}
	if status.Code(err) == codes.Unavailable {
		return false, nil
	}
	return false, fmt.Errorf("probe socket: %w", err)
}
