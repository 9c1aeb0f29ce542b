package audio

import (
	"context"
	"fmt"
	"time"
)

// Calibrate samples ambient noise for d and returns its mean frame RMS scaled by ratio,
// never below floor. It consumes frames from src for the whole window.
func Calibrate(ctx context.Context, src FrameSource, d time.Duration, frameDuration time.Duration, floor float64, ratio float64) (float64, error) {
	if d <= 0 || frameDuration <= 0 {
		return floor, nil
	}

	want := int(d / frameDuration)
	if want < 1 {
		want = 1
	}

	var sum float64
	for i := 0; i < want; i++ {
		frame, err := src.ReadFrame(ctx)
		if err != nil {
			return floor, fmt.Errorf("calibrate ambient noise: %w", err)
		}
		sum += RMS(frame)
	}

	threshold := sum / float64(want) * ratio
	if threshold < floor {
		threshold = floor
	}
	return threshold, nil
}
