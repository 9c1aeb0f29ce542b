// Package indicator surfaces assistant state: short audible cues and an
// optional desktop notification that follows the dispatch cycle.
package indicator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/bingo/internal/audio"
	"github.com/rbright/bingo/internal/config"
	"github.com/rbright/bingo/internal/fsm"
	"github.com/rbright/bingo/internal/logging"
)

const notifyTimeout = 400 * time.Millisecond

type stateNotice struct {
	summary   string
	timeoutMS int
}

// notices maps dispatch states to their notification. Idle closes it; states
// missing here leave it unchanged.
var notices = map[fsm.State]stateNotice{
	fsm.StateListening:   {summary: "Bingo is listening", timeoutMS: 30000},
	fsm.StateDispatching: {summary: "Bingo is working on it", timeoutMS: 30000},
	fsm.StateError:       {summary: "Bingo hit a problem", timeoutMS: 2500},
}

// Cues is the earcon player and state notifier used by the assistant.
type Cues struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger

	play     playFunc
	playFile fileFunc
	busctl   busctlFunc

	mu sync.Mutex

	notifyMu       sync.Mutex
	notificationID uint32
}

type (
	playFunc func(ctx context.Context, samples []int16, sampleRate int, mediaName string) error
	fileFunc func(ctx context.Context, path string) error
)

// New creates a cue player from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Cues {
	return &Cues{
		cfg:      cfg,
		logger:   logging.OrDiscard(logger),
		play:     audio.Play,
		playFile: playCueFile,
		busctl:   runBusctl,
	}
}

// Wake signals that the wake phrase was accepted.
func (c *Cues) Wake(ctx context.Context) {
	c.emit(ctx, cueWake)
}

// Error signals a failed command.
func (c *Cues) Error(ctx context.Context) {
	c.emit(ctx, cueError)
}

func (c *Cues) emit(ctx context.Context, kind cueKind) {
	if c == nil || !c.cfg.SoundEnable {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.emitCue(ctx, kind); err != nil {
		c.logger.Debug("indicator cue failed", "cue", kind.String(), "error", err.Error())
	}
}

// StateChanged keeps one replaceable desktop notification in step with the
// dispatch state. Failures are logged at debug level only.
func (c *Cues) StateChanged(ctx context.Context, state fsm.State) {
	if c == nil || !c.cfg.NotifyEnable {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if state == fsm.StateIdle {
		if c.notificationID == 0 {
			return
		}
		id := c.notificationID
		c.notificationID = 0
		if err := closeNotification(ctx, c.busctl, id); err != nil {
			c.logger.Debug("indicator notification failed", "state", string(state), "error", err.Error())
		}
		return
	}

	notice, ok := notices[state]
	if !ok {
		return
	}
	appName := c.cfg.NotifyAppName
	if appName == "" {
		appName = "bingo"
	}
	id, err := showNotification(ctx, c.busctl, appName, c.notificationID, notice.summary, notice.timeoutMS)
	if err != nil {
		c.logger.Debug("indicator notification failed", "state", string(state), "error", err.Error())
		return
	}
	c.notificationID = id
}
