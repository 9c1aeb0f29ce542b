// Package assistant owns the dispatch cycle: wake acknowledgement, command
// capture, resolution, and the spoken response.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/bingo/internal/audio"
	"github.com/rbright/bingo/internal/command"
	"github.com/rbright/bingo/internal/fsm"
	"github.com/rbright/bingo/internal/logging"
	"github.com/rbright/bingo/internal/memory"
	"github.com/rbright/bingo/internal/recognition"
	"github.com/rbright/bingo/internal/transcript"
	"github.com/rbright/bingo/internal/wake"
)

const replyMissedCommand = "Sorry, I couldn't hear that"

// Listener captures and recognizes one utterance.
type Listener interface {
	Listen(ctx context.Context, timeout time.Duration, phraseLimit time.Duration) (recognition.Result, error)
}

// Speaker blocks until text has been spoken.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Opener hands a URL to the desktop.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Responder produces the conversational fallback reply. ok is false when the
// reply is the degraded fixed answer.
type Responder interface {
	Respond(ctx context.Context, utterance string, history string, facts memory.Facts) (reply string, ok bool)
}

// Cues plays audible state cues.
type Cues interface {
	Wake(ctx context.Context)
	Error(ctx context.Context)
}

// StateObserver is told about every state the dispatch cycle enters.
type StateObserver interface {
	StateChanged(ctx context.Context, state fsm.State)
}

// Limits bounds one capture.
type Limits struct {
	Timeout     time.Duration
	PhraseLimit time.Duration
}

// Config holds the persona lines and capture limits.
type Config struct {
	Greeting string
	WakeAck  string
	Command  Limits
	Fact     Limits
}

// Deps are the collaborators the assistant drives.
type Deps struct {
	Listener  Listener
	Speaker   Speaker
	Opener    Opener
	Responder Responder
	Cues      Cues
	Observer  StateObserver
	Resolver  *command.Resolver
	Memory    *memory.Store
	Context   *memory.Context

	// Frames, when set, has its backlog discarded after each spoken prompt so
	// the assistant does not transcribe its own voice.
	Frames audio.FrameSource
	Logger *slog.Logger
}

// Status is a point-in-time snapshot for the control plane.
type Status struct {
	State        fsm.State
	LastTrigger  time.Time
	Dispatches   int
	LastAction   command.Kind
	ContextTurns int
}

// Assistant is the single owner of dispatch state. HandleWake runs on the
// detector goroutine; Status may be called from any goroutine. mu also guards
// the conversation context.
type Assistant struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	mu          sync.Mutex
	state       fsm.State
	lastTrigger time.Time
	dispatches  int
	lastAction  command.Kind
}

// New validates deps and returns an idle assistant.
func New(cfg Config, deps Deps) (*Assistant, error) {
	switch {
	case deps.Listener == nil:
		return nil, errors.New("assistant: listener is required")
	case deps.Speaker == nil:
		return nil, errors.New("assistant: speaker is required")
	case deps.Opener == nil:
		return nil, errors.New("assistant: opener is required")
	case deps.Responder == nil:
		return nil, errors.New("assistant: responder is required")
	case deps.Resolver == nil:
		return nil, errors.New("assistant: resolver is required")
	case deps.Memory == nil:
		return nil, errors.New("assistant: memory store is required")
	}
	if deps.Context == nil {
		deps.Context = memory.NewContext(2000)
	}

	return &Assistant{
		cfg:    cfg,
		deps:   deps,
		logger: logging.OrDiscard(deps.Logger),
		state:  fsm.StateIdle,
	}, nil
}

// Greet speaks the startup greeting once.
func (a *Assistant) Greet(ctx context.Context) error {
	if err := a.deps.Speaker.Speak(ctx, a.cfg.Greeting); err != nil {
		return fmt.Errorf("speak greeting: %w", err)
	}
	return nil
}

// Run greets and then drives detector until ctx ends or the audio stream fails.
func (a *Assistant) Run(ctx context.Context, detector *wake.Detector) error {
	if err := a.Greet(ctx); err != nil {
		a.logger.Warn("assistant: greeting failed", "error", err.Error())
	}
	// The greeting is still in the capture backlog; the wake matcher must not hear it.
	a.drain()
	return detector.Run(ctx)
}

// HandleWake runs one acknowledge, listen, dispatch cycle. It is a wake.Handler.
// Errors that mean the audio stream is gone are returned wrapped so the
// detector stops; recoverable command failures are answered aloud.
func (a *Assistant) HandleWake(ctx context.Context, event wake.Event) error {
	if err := a.begin(ctx, event); err != nil {
		return err
	}
	a.logger.Info("assistant: wake", "keyword", event.Keyword)

	if a.deps.Cues != nil {
		a.deps.Cues.Wake(ctx)
	}
	a.say(ctx, a.cfg.WakeAck)
	a.advance(ctx, fsm.EventAcknowledged)

	result, err := a.listen(ctx, a.cfg.Command)
	if err != nil {
		a.fail(ctx)
		if !fatal(ctx, err) {
			a.say(ctx, replyMissedCommand)
		}
		return fmt.Errorf("listen for command: %w", err)
	}
	if result.Empty() {
		a.logger.Info("assistant: nothing heard", "status", string(result.Status), "source", string(result.Source))
		a.advance(ctx, fsm.EventDone)
		return nil
	}

	a.advance(ctx, fsm.EventHeard)
	err = a.Dispatch(ctx, result.Text)
	if err != nil && fatal(ctx, err) {
		a.fail(ctx)
		return err
	}
	a.advance(ctx, fsm.EventDone)
	return err
}

// Dispatch normalizes and resolves text, then performs the action. The
// returned error is for logging; anything the user needs to hear has already
// been spoken.
func (a *Assistant) Dispatch(ctx context.Context, text string) error {
	action := a.deps.Resolver.Resolve(transcript.Normalize(text))
	a.record(action.Kind)
	a.logger.Info("assistant: dispatch", "kind", string(action.Kind), "target", action.Target)

	switch action.Kind {
	case command.KindRememberFact:
		return a.remember(ctx)
	case command.KindQueryName:
		a.say(ctx, NameReply(a.deps.Memory.Facts()))
		return nil
	case command.KindOpenSite:
		a.say(ctx, "Opening "+SiteName(action.Target))
		return a.open(ctx, action.URL)
	case command.KindPlaySong:
		a.say(ctx, "Playing "+action.Target)
		return a.open(ctx, action.URL)
	case command.KindSongNotFound:
		a.say(ctx, "I couldn't find that song")
		return nil
	default:
		return a.converse(ctx, action.Text)
	}
}

// Status returns a snapshot of dispatch state.
func (a *Assistant) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{
		State:        a.state,
		LastTrigger:  a.lastTrigger,
		Dispatches:   a.dispatches,
		LastAction:   a.lastAction,
		ContextTurns: a.deps.Context.Turns(),
	}
}

func (a *Assistant) converse(ctx context.Context, text string) error {
	a.mu.Lock()
	history := a.deps.Context.String()
	a.mu.Unlock()

	reply, ok := a.deps.Responder.Respond(ctx, text, history, a.deps.Memory.Facts())
	if ok {
		a.mu.Lock()
		a.deps.Context.Append(text, reply)
		a.mu.Unlock()
	}
	a.say(ctx, reply)
	return nil
}

func (a *Assistant) open(ctx context.Context, url string) error {
	if err := a.deps.Opener.Open(ctx, url); err != nil {
		if a.deps.Cues != nil {
			a.deps.Cues.Error(ctx)
		}
		return fmt.Errorf("open url: %w", err)
	}
	return nil
}

func (a *Assistant) listen(ctx context.Context, limits Limits) (recognition.Result, error) {
	a.drain()
	return a.deps.Listener.Listen(ctx, limits.Timeout, limits.PhraseLimit)
}

// drain drops captured audio that overlaps the assistant's own speech.
func (a *Assistant) drain() {
	if a.deps.Frames == nil {
		return
	}
	if dropped := a.deps.Frames.Discard(); dropped > 0 {
		a.logger.Debug("assistant: discarded buffered frames", "frames", dropped)
	}
}

// say speaks text; a speech failure is logged and does not abort the cycle.
func (a *Assistant) say(ctx context.Context, text string) {
	if err := a.deps.Speaker.Speak(ctx, text); err != nil {
		a.logger.Error("assistant: speak failed", "error", err.Error())
	}
}

func (a *Assistant) begin(ctx context.Context, event wake.Event) error {
	a.mu.Lock()
	if a.state == fsm.StateError {
		a.state, _ = fsm.Transition(a.state, fsm.EventReset)
	}
	next, err := fsm.Transition(a.state, fsm.EventWake)
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("assistant busy: %w", err)
	}
	a.state = next
	a.lastTrigger = event.Timestamp
	a.mu.Unlock()

	a.observe(ctx, next)
	return nil
}

func (a *Assistant) advance(ctx context.Context, event fsm.Event) {
	a.mu.Lock()
	next, err := fsm.Transition(a.state, event)
	if err != nil {
		a.mu.Unlock()
		a.logger.Warn("assistant: state transition rejected", "error", err.Error())
		return
	}
	changed := next != a.state
	a.state = next
	a.mu.Unlock()

	if changed {
		a.observe(ctx, next)
	}
}

// observe must be called without mu held.
func (a *Assistant) observe(ctx context.Context, state fsm.State) {
	if a.deps.Observer != nil {
		a.deps.Observer.StateChanged(ctx, state)
	}
}

func (a *Assistant) fail(ctx context.Context) {
	a.advance(ctx, fsm.EventFail)
	if a.deps.Cues != nil && ctx.Err() == nil {
		a.deps.Cues.Error(ctx)
	}
}

func (a *Assistant) record(kind command.Kind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatches++
	a.lastAction = kind
}

// fatal reports whether err means the cycle cannot continue at all.
func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, audio.ErrCaptureClosed)
}
