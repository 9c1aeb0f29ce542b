// Package main is the bingo entrypoint: the voice assistant daemon and the
// commands that inspect it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/bingo/internal/app"
)

// shutdownSignals stop a running daemon cleanly. SIGHUP is included so
// closing the terminal that launched `bingo run` releases the control socket.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	return app.Execute(ctx, args, os.Stdout, os.Stderr)
}
