// Package ipc is the runtime control plane: a gRPC service on a unix socket
// that doubles as the single-instance lock.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyRunning is matched by the error Acquire returns when another
// daemon answers on the socket.
var ErrAlreadyRunning = errors.New("bingo already running")

// RunningError describes the daemon that holds the socket. Status is zero
// when the daemon answered health checks but not the Status call.
type RunningError struct {
	Status StatusReply
}

func (e *RunningError) Error() string {
	if e.Status.State == "" {
		return ErrAlreadyRunning.Error()
	}
	parts := []string{"state " + e.Status.State}
	if e.Status.Device != "" {
		parts = append(parts, "device "+e.Status.Device)
	}
	if e.Status.Uptime > 0 {
		parts = append(parts, "up "+e.Status.Uptime.Round(time.Second).String())
	}
	return fmt.Sprintf("%s (%s)", ErrAlreadyRunning, strings.Join(parts, ", "))
}

func (e *RunningError) Unwrap() error { return ErrAlreadyRunning }

// RuntimeSocketPath is $XDG_RUNTIME_DIR/bingo.sock.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, "bingo.sock"), nil
}

// Acquire claims the control socket at path. A socket nobody answers on is a
// leftover from a crashed daemon: it is unlinked, onStale runs, and the claim
// is retried up to retries more times. A live daemon yields a *RunningError.
func Acquire(
	ctx context.Context,
	path string,
	timeout time.Duration,
	retries int,
	onStale func(context.Context) error,
) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		if err := claimStale(ctx, path, timeout); err != nil {
			return nil, err
		}
		if onStale != nil {
			_ = onStale(ctx)
		}

		if attempt >= retries {
			return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, retries)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
		}
	}
}

// claimStale removes the socket at path unless a daemon is serving on it.
func claimStale(ctx context.Context, path string, timeout time.Duration) error {
	alive, err := Probe(ctx, path, timeout)
	if alive {
		running := &RunningError{}
		if reply, err := QueryStatus(ctx, path, timeout); err == nil {
			running.Status = reply
		}
		return running
	}
	if err != nil {
		// Something accepted the connection but never answered; leave it alone.
		return fmt.Errorf("check existing socket %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
