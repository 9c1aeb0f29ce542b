// Package app wires the CLI commands to the bingo runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/rbright/bingo/internal/audio"
	"github.com/rbright/bingo/internal/cli"
	"github.com/rbright/bingo/internal/config"
	"github.com/rbright/bingo/internal/doctor"
	"github.com/rbright/bingo/internal/ipc"
	"github.com/rbright/bingo/internal/logging"
	"github.com/rbright/bingo/internal/memory"
	"github.com/rbright/bingo/internal/version"
)

const statusTimeout = 500 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("bingo"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("bingo"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	for _, path := range loadEnvFiles(cfgLoaded.Path) {
		logger.Debug("loaded env file", "path", path)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandMemory:
		return r.commandMemory(cfgLoaded.Config)
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// loadEnvFiles reads .env from the working directory and next to the config
// file. Variables already set in the environment win; missing files are skipped.
func loadEnvFiles(configPath string) []string {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}

	var loaded []string
	seen := map[string]struct{}{}
	for _, path := range candidates {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		if err := godotenv.Load(abs); err != nil {
			continue
		}
		loaded = append(loaded, abs)
	}
	return loaded
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}

	reply, err := ipc.QueryStatus(ctx, socketPath, statusTimeout)
	if errors.Is(err, ipc.ErrNotRunning) {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	lastTrigger := "never"
	if !reply.LastTrigger.IsZero() {
		lastTrigger = reply.LastTrigger.Format(time.RFC3339)
	}
	lastAction := reply.LastAction
	if lastAction == "" {
		lastAction = "none"
	}
	fmt.Fprintf(r.Stdout, "state: %s\n", reply.State)
	fmt.Fprintf(r.Stdout, "device: %s\n", reply.Device)
	fmt.Fprintf(r.Stdout, "uptime: %s\n", reply.Uptime.Round(time.Second))
	fmt.Fprintf(r.Stdout, "last trigger: %s\n", lastTrigger)
	fmt.Fprintf(r.Stdout, "dispatches: %d\n", reply.Dispatches)
	fmt.Fprintf(r.Stdout, "last action: %s\n", lastAction)
	fmt.Fprintf(r.Stdout, "context turns: %d\n", reply.ContextTurns)
	return 0
}

func (r Runner) commandMemory(cfg config.Config) int {
	path, err := cfg.Memory.ResolvePath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(r.Stdout, "no memory file at %s\n", path)
		return 0
	}

	store, err := memory.Load(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	facts := store.Facts()
	name := facts.Name
	if name == "" {
		name = "(unset)"
	}
	note := facts.Note
	if note == "" {
		note = "(unset)"
	}
	fmt.Fprintf(r.Stdout, "path: %s\n", path)
	fmt.Fprintf(r.Stdout, "name: %s\n", name)
	fmt.Fprintf(r.Stdout, "note: %s\n", note)
	return 0
}
