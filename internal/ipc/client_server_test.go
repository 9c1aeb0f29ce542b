package ipc

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, socketPath string, fn StatusFunc) (context.CancelFunc, <-chan error) {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, fn)
	}()
	return cancel, serveDone
}

func TestQueryStatusRoundTrip(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "bingo.sock")
	lastTrigger := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	cancel, serveDone := startServer(t, socketPath, func(context.Context) (StatusReply, error) {
		return StatusReply{
			State:        "listening",
			Device:       "USB Mic (alsa_input.usb)",
			LastTrigger:  lastTrigger,
			Dispatches:   3,
			LastAction:   "open_site",
			ContextTurns: 2,
			Uptime:       90 * time.Second,
		}, nil
	})
	defer cancel()

	reply, err := QueryStatus(context.Background(), socketPath, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, "listening", reply.State)
	require.Equal(t, "USB Mic (alsa_input.usb)", reply.Device)
	require.True(t, lastTrigger.Equal(reply.LastTrigger))
	require.Equal(t, 3, reply.Dispatches)
	require.Equal(t, "open_site", reply.LastAction)
	require.Equal(t, 2, reply.ContextTurns)
	require.Equal(t, 90*time.Second, reply.Uptime)

	cancel()
	require.NoError(t, <-serveDone)
}

func TestQueryStatusHandlerError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "bingo.sock")
	cancel, serveDone := startServer(t, socketPath, func(context.Context) (StatusReply, error) {
		return StatusReply{}, errors.New("state unavailable")
	})

	_, err := QueryStatus(context.Background(), socketPath, 2*time.Second)
	require.Error(t, err)
	require.Contains(t, err.Error(), "state unavailable")
	require.NotErrorIs(t, err, ErrNotRunning)

	cancel()
	require.NoError(t, <-serveDone)
}

func TestQueryStatusNotRunning(t *testing.T) {
	_, err := QueryStatus(context.Background(), filepath.Join(t.TempDir(), "bingo.sock"), 200*time.Millisecond)
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestServeRequiresStatusFunc(t *testing.T) {
	listener, err := net.Listen("unix", filepath.Join(t.TempDir(), "bingo.sock"))
	require.NoError(t, err)
	defer listener.Close()

	require.Error(t, Serve(context.Background(), listener, nil))
}

func TestProbe(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "bingo.sock")
	cancel, serveDone := startServer(t, socketPath, func(context.Context) (StatusReply, error) {
		return StatusReply{State: "idle"}, nil
	})

	alive, probeErr := Probe(context.Background(), socketPath, 2*time.Second)
	require.NoError(t, probeErr)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-serveDone)

	alive, probeErr = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, probeErr)
	require.False(t, alive)
}

func TestStatusStructRoundTripKeepsZeroTrigger(t *testing.T) {
	out, err := StatusReply{State: "idle"}.toStruct()
	require.NoError(t, err)

	reply := statusFromStruct(out)
	require.Equal(t, "idle", reply.State)
	require.True(t, reply.LastTrigger.IsZero())
}
