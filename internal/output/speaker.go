package output

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/bingo/internal/audio"
	"github.com/rbright/bingo/internal/config"
	"github.com/rbright/bingo/internal/logging"
)

// PlayFunc renders mono s16 samples and blocks until playback drains.
type PlayFunc func(ctx context.Context, samples []int16, sampleRate int, mediaName string) error

// Speaker runs the configured speech command for each response.
//
// The text replaces every {text} in Argv; without one it is written to stdin.
// When PCMSampleRate is zero the command is expected to play audio itself.
// Otherwise its stdout is raw s16le mono PCM at that rate and is played
// through PulseAudio.
type Speaker struct {
	Argv          []string
	PCMSampleRate int
	Timeout       time.Duration
	Play          PlayFunc
	Logger        *slog.Logger
}

// NewSpeaker builds a speaker that plays through the default PulseAudio sink.
func NewSpeaker(argv []string, pcmSampleRate int, logger *slog.Logger) *Speaker {
	return &Speaker{
		Argv:          append([]string(nil), argv...),
		PCMSampleRate: pcmSampleRate,
		Timeout:       60 * time.Second,
		Play:          audio.Play,
		Logger:        logger,
	}
}

// Speak blocks until text has been spoken. Blank text is a no-op.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	argv, filled := fillPlaceholder(s.Argv, config.PlaceholderText, text)
	stdin := text
	if filled {
		stdin = ""
	}
	logging.OrDiscard(s.Logger).Debug("speak", "chars", len(text), "stdin", !filled)

	if s.PCMSampleRate <= 0 {
		if err := runCommandWithInput(ctx, argv, stdin); err != nil {
			return fmt.Errorf("speak: %w", err)
		}
		return nil
	}

	pcm, err := runCommandOutput(ctx, argv, stdin)
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	if s.Play == nil {
		return fmt.Errorf("speak: no playback configured")
	}
	if err := s.Play(ctx, audio.Int16s(pcm), s.PCMSampleRate, "bingo speech"); err != nil {
		return fmt.Errorf("play speech: %w", err)
	}
	return nil
}
