package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/bingo/internal/audio"
	"github.com/rbright/bingo/internal/logging"
	"github.com/rbright/bingo/internal/netprobe"
	"github.com/rbright/bingo/internal/transcript"
)

// Online transcribes one complete utterance (s16 mono PCM). Any error is a
// network or service failure; an empty transcript means unintelligible speech.
type Online interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// Offline opens streaming decoder sessions.
type Offline interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session is one stateful streaming decode. Accept feeds a frame and reports
// whether the decoder finalized an utterance; Text returns the finalized text.
type Session interface {
	Accept(frame []byte) (bool, error)
	Text() string
	Close() error
}

// Selector implements the online/offline strategy on top of one frame source.
type Selector struct {
	Frames      audio.FrameSource
	Probe       netprobe.Prober
	Online      Online
	Offline     Offline
	Endpointing Endpointing
	FrameBytes  int
	Logger      *slog.Logger

	// OnUtterance, when set, receives every PCM utterance captured for the online path.
	OnUtterance func(pcm []byte)
}

// Listen recognizes one utterance. The returned error is reserved for
// failures the caller cannot recover from by asking again: a closed frame
// source, a cancelled ctx, or a broken offline engine.
func (s *Selector) Listen(ctx context.Context, timeout time.Duration, phraseLimit time.Duration) (Result, error) {
	logger := s.logger()
	start := time.Now()

	if s.Online == nil || s.Probe == nil || !s.Probe.Reachable(ctx) {
		logger.Debug("recognition: offline only", "reason", "unreachable")
		result, err := s.listenOffline(ctx, nil, timeout)
		logResult(logger, result, err, start)
		return result, err
	}

	pcm, err := CaptureUtterance(ctx, s.Frames, s.Endpointing, timeout, phraseLimit)
	if err != nil {
		if errors.Is(err, ErrNoSpeech) {
			result := Result{Source: SourceOnline, Status: StatusTimeout}
			logResult(logger, result, nil, start)
			return result, nil
		}
		return Result{Source: SourceOnline}, fmt.Errorf("capture utterance: %w", err)
	}
	if s.OnUtterance != nil {
		s.OnUtterance(pcm)
	}

	text, err := s.Online.Transcribe(ctx, pcm)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Source: SourceOnline}, ctx.Err()
		}
		logger.Warn("recognition: online failed; falling back to offline",
			"status", string(StatusNetworkError),
			"error", err.Error(),
		)
		result, offlineErr := s.listenOffline(ctx, pcm, timeout)
		logResult(logger, result, offlineErr, start)
		return result, offlineErr
	}

	text = transcript.Assemble([]string{text})
	result := Result{Text: text, Source: SourceOnline, Status: StatusOK}
	if text == "" {
		result.Status = StatusUnintelligible
	}
	logResult(logger, result, nil, start)
	return result, nil
}

// listenOffline feeds replay (already captured audio) and then live frames
// into a fresh decoder session until it finalizes non-empty text or the
// wall-clock budget runs out.
func (s *Selector) listenOffline(ctx context.Context, replay []byte, budget time.Duration) (Result, error) {
	if s.Offline == nil {
		return Result{Source: SourceOffline}, errors.New("no offline recognizer configured")
	}

	deadline, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	session, err := s.Offline.NewSession(deadline)
	if err != nil {
		if ctx.Err() == nil && deadline.Err() != nil {
			return Result{Source: SourceOffline, Status: StatusTimeout}, nil
		}
		return Result{Source: SourceOffline}, fmt.Errorf("open offline session: %w", err)
	}
	defer session.Close()

	var segments []string
	accept := func(frame []byte) (bool, error) {
		final, err := session.Accept(frame)
		if err != nil {
			return false, fmt.Errorf("offline decode: %w", err)
		}
		if !final {
			return false, nil
		}
		text := strings.TrimSpace(session.Text())
		if text == "" {
			return false, nil
		}
		segments = append(segments, text)
		return true, nil
	}

	// A decoder still waiting when the budget runs out is a timeout, not a
	// broken engine.
	expired := func(err error) (Result, error) {
		if ctx.Err() == nil && deadline.Err() != nil {
			s.logger().Debug("recognition: offline budget exhausted", "error", err.Error())
			return Result{Source: SourceOffline, Status: StatusTimeout}, nil
		}
		return Result{Source: SourceOffline}, err
	}

	chunk := s.FrameBytes
	if chunk <= 0 {
		chunk = len(replay)
	}
	for len(replay) > 0 {
		n := min(chunk, len(replay))
		done, err := accept(replay[:n])
		if err != nil {
			return expired(err)
		}
		if done {
			return offlineResult(segments), nil
		}
		replay = replay[n:]
	}

	for {
		frame, err := s.Frames.ReadFrame(deadline)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return Result{Source: SourceOffline, Status: StatusTimeout}, nil
			}
			return Result{Source: SourceOffline}, err
		}
		done, err := accept(frame)
		if err != nil {
			return expired(err)
		}
		if done {
			return offlineResult(segments), nil
		}
	}
}

func (s *Selector) logger() *slog.Logger {
	return logging.OrDiscard(s.Logger)
}

func offlineResult(segments []string) Result {
	text := transcript.Assemble(segments)
	if text == "" {
		return Result{Source: SourceOffline, Status: StatusUnintelligible}
	}
	return Result{Text: text, Source: SourceOffline, Status: StatusOK}
}

func logResult(logger *slog.Logger, result Result, err error, start time.Time) {
	attrs := []any{
		"source", string(result.Source),
		"status", string(result.Status),
		"chars", len(result.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		logger.Error("recognition: failed", append(attrs, "error", err.Error())...)
		return
	}
	logger.Info("recognition: result", attrs...)
}
