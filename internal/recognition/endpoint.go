package recognition

import (
	"context"
	"errors"
	"time"

	"github.com/rbright/bingo/internal/audio"
)

// ErrNoSpeech is returned when no frame crossed the energy threshold before the timeout.
var ErrNoSpeech = errors.New("no speech detected")

// Endpointing configures the energy-based utterance detector.
type Endpointing struct {
	// Threshold is the RMS level (int16 scale) above which a frame counts as speech.
	Threshold float64
	// Pause is the trailing silence that ends an utterance.
	Pause time.Duration
	// Preroll is audio kept from before speech onset.
	Preroll time.Duration
	// FrameDuration is the audio length of one frame from the source.
	FrameDuration time.Duration
}

// CaptureUtterance waits up to timeout for speech onset, then records until
// Pause of silence or phraseLimit of speech. Durations are measured in audio
// time; a wall-clock guard of timeout+phraseLimit bounds blocked reads.
func CaptureUtterance(ctx context.Context, frames audio.FrameSource, ep Endpointing, timeout time.Duration, phraseLimit time.Duration) ([]byte, error) {
	if ep.FrameDuration <= 0 {
		return nil, errors.New("endpointing frame duration must be > 0")
	}

	guard := timeout + phraseLimit + time.Second
	ctx, cancel := context.WithTimeout(ctx, guard)
	defer cancel()

	prerollFrames := int(ep.Preroll / ep.FrameDuration)
	var (
		preroll  [][]byte
		waited   time.Duration
		recorded []byte
		spoken   time.Duration
		silence  time.Duration
		started  bool
	)

	for {
		frame, err := frames.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
				if started {
					return recorded, nil
				}
				return nil, ErrNoSpeech
			}
			return nil, err
		}

		loud := audio.RMS(frame) > ep.Threshold

		if !started {
			if !loud {
				waited += ep.FrameDuration
				if timeout > 0 && waited >= timeout {
					return nil, ErrNoSpeech
				}
				if prerollFrames > 0 {
					preroll = append(preroll, frame)
					if len(preroll) > prerollFrames {
						preroll = preroll[1:]
					}
				}
				continue
			}
			started = true
			for _, earlier := range preroll {
				recorded = append(recorded, earlier...)
			}
			preroll = nil
		}

		recorded = append(recorded, frame...)
		spoken += ep.FrameDuration
		if loud {
			silence = 0
		} else {
			silence += ep.FrameDuration
		}

		if silence >= ep.Pause {
			return recorded, nil
		}
		if phraseLimit > 0 && spoken >= phraseLimit {
			return recorded, nil
		}
	}
}
