package main

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

const helperEnv = "BINGO_MAIN_HELPER"

func TestMainPrintsUsage(t *testing.T) {
	output, err := runBingo(t, "--help")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "Usage:")
	require.Contains(t, string(output), "Start the assistant and listen for the wake word")
}

func TestMainVersion(t *testing.T) {
	output, err := runBingo(t, "version")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "bingo dev")
}

func TestMainStatusWithoutDaemon(t *testing.T) {
	output, err := runBingo(t, "status")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "not running")
}

func TestMainUsageErrorExitsTwo(t *testing.T) {
	output, err := runBingo(t, "listen")
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.ExitCode())
	require.Contains(t, string(output), "unknown command")
}

func TestShutdownSignalsIncludeHangup(t *testing.T) {
	require.Contains(t, shutdownSignals, os.Signal(syscall.SIGHUP))
	require.Contains(t, shutdownSignals, os.Signal(syscall.SIGTERM))
}

// TestMainHelperProcess runs main with the arguments after "--" when invoked
// by runBingo.
func TestMainHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	os.Args = append([]string{"bingo"}, args...)
	main()
}

// runBingo executes the binary in a subprocess with an isolated XDG tree.
func runBingo(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()

	home := t.TempDir()
	cmd := exec.Command(os.Args[0], append([]string{"-test.run=TestMainHelperProcess", "--"}, args...)...)
	cmd.Env = append(os.Environ(),
		helperEnv+"=1",
		"HOME="+home,
		"XDG_CONFIG_HOME="+home+"/config",
		"XDG_STATE_HOME="+home+"/state",
		"XDG_DATA_HOME="+home+"/data",
		"XDG_RUNTIME_DIR="+home+"/run",
	)
	return cmd.CombinedOutput()
}
