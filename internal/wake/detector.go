// Package wake runs the wake-word loop: frames in, debounced trigger events out.
package wake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/bingo/internal/audio"
	"github.com/rbright/bingo/internal/logging"
)

// Matcher inspects one frame and returns a keyword index, or -1 for no match.
type Matcher interface {
	Match(frame []byte) (int, error)
}

// Event is one accepted trigger.
type Event struct {
	Timestamp time.Time
	Keyword   int
}

// Handler runs one listen-and-dispatch cycle. It is invoked synchronously, so
// frames are not matched again until it returns.
type Handler func(ctx context.Context, event Event) error

// Detector owns the last-trigger timestamp and the frame loop.
type Detector struct {
	frames   audio.FrameSource
	matcher  Matcher
	cooldown time.Duration
	handler  Handler
	now      func() time.Time
	logger   *slog.Logger

	lastTrigger time.Time
	triggered   bool
}

// Option customizes a Detector.
type Option func(*Detector)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) { d.logger = logger }
}

// NewDetector wires a detector. cooldown is the minimum spacing between accepted triggers.
func NewDetector(frames audio.FrameSource, matcher Matcher, cooldown time.Duration, handler Handler, opts ...Option) *Detector {
	d := &Detector{
		frames:   frames,
		matcher:  matcher,
		cooldown: cooldown,
		handler:  handler,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.OrDiscard(d.logger)
	return d
}

// Run processes frames until ctx is cancelled or a frame read or match fails.
// Read and match failures are fatal and returned wrapped; a handler error is
// logged and the loop continues. Audio buffered while the handler ran is
// dropped before matching resumes.
func (d *Detector) Run(ctx context.Context) error {
	for {
		frame, err := d.frames.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read wake frame: %w", err)
		}

		index, err := d.matcher.Match(frame)
		if err != nil {
			return fmt.Errorf("match wake frame: %w", err)
		}
		if index < 0 {
			continue
		}

		event, ok := d.Accept(index)
		if !ok {
			d.logger.Debug("wake: ignored within cooldown", "keyword", index)
			continue
		}

		d.logger.Info("wake: triggered", "keyword", index)
		if err := d.handler(ctx, event); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, audio.ErrCaptureClosed) {
				return fmt.Errorf("wake handler: %w", err)
			}
			d.logger.Error("wake: dispatch failed", "error", err.Error())
		}
		// Frames captured while the handler ran hold the assistant's own replies.
		if dropped := d.frames.Discard(); dropped > 0 {
			d.logger.Debug("wake: discarded frames buffered during dispatch", "frames", dropped)
		}
	}
}

// Accept applies the cooldown to a match at the current time. The first match
// is always accepted; later ones need strictly more than cooldown since the
// previous accepted trigger.
func (d *Detector) Accept(keyword int) (Event, bool) {
	now := d.now()
	if d.triggered && now.Sub(d.lastTrigger) <= d.cooldown {
		return Event{}, false
	}
	d.lastTrigger = now
	d.triggered = true
	return Event{Timestamp: now, Keyword: keyword}, true
}

// LastTrigger returns the most recent accepted trigger time and whether one happened.
func (d *Detector) LastTrigger() (time.Time, bool) {
	return d.lastTrigger, d.triggered
}
