package assistant

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/bingo/internal/command"
	"github.com/rbright/bingo/internal/fsm"
	"github.com/rbright/bingo/internal/memory"
	"github.com/rbright/bingo/internal/recognition"
)

type listenCall struct {
	timeout     time.Duration
	phraseLimit time.Duration
}

type heard struct {
	result recognition.Result
	err    error
}

type scriptedListener struct {
	script []heard
	calls  []listenCall
}

func (l *scriptedListener) Listen(_ context.Context, timeout time.Duration, phraseLimit time.Duration) (recognition.Result, error) {
	l.calls = append(l.calls, listenCall{timeout: timeout, phraseLimit: phraseLimit})
	if len(l.script) == 0 {
		return recognition.Result{Source: recognition.SourceOffline, Status: recognition.StatusTimeout}, nil
	}
	next := l.script[0]
	l.script = l.script[1:]
	return next.result, next.err
}

func said(text string) heard {
	return heard{result: recognition.Result{Text: text, Source: recognition.SourceOnline, Status: recognition.StatusOK}}
}

func silence() heard {
	return heard{result: recognition.Result{Source: recognition.SourceOnline, Status: recognition.StatusTimeout}}
}

func failed(err error) heard {
	return heard{err: err}
}

type recordingSpeaker struct {
	lines []string
	err   error
}

func (s *recordingSpeaker) Speak(_ context.Context, text string) error {
	s.lines = append(s.lines, text)
	return s.err
}

type recordingOpener struct {
	urls []string
	err  error
}

func (o *recordingOpener) Open(_ context.Context, url string) error {
	o.urls = append(o.urls, url)
	return o.err
}

type fakeResponder struct {
	reply    string
	ok       bool
	prompts  []string
	contexts []string
	facts    []memory.Facts
}

func (r *fakeResponder) Respond(_ context.Context, utterance string, history string, facts memory.Facts) (string, bool) {
	r.prompts = append(r.prompts, utterance)
	r.contexts = append(r.contexts, history)
	r.facts = append(r.facts, facts)
	return r.reply, r.ok
}

type countingCues struct {
	wakes  int
	errors int
}

func (c *countingCues) Wake(context.Context)  { c.wakes++ }
func (c *countingCues) Error(context.Context) { c.errors++ }

type stateLog struct {
	states []fsm.State
}

func (l *stateLog) StateChanged(_ context.Context, state fsm.State) {
	l.states = append(l.states, state)
}

type discardCounter struct {
	discards int
}

func (d *discardCounter) ReadFrame(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (d *discardCounter) Discard() int {
	d.discards++
	return 0
}

type harness struct {
	assistant *Assistant
	listener  *scriptedListener
	speaker   *recordingSpeaker
	opener    *recordingOpener
	responder *fakeResponder
	cues      *countingCues
	observer  *stateLog
	frames    *discardCounter
	store     *memory.Store
	history   *memory.Context
	memPath   string
}

func testConfig() Config {
	return Config{
		Greeting: "Hey! I am Bingo. Say Bingo to wake me up.",
		WakeAck:  "Bingo active",
		Command:  Limits{Timeout: 5 * time.Second, PhraseLimit: 5 * time.Second},
		Fact:     Limits{Timeout: 8 * time.Second, PhraseLimit: 8 * time.Second},
	}
}

func newHarness(t *testing.T, script ...heard) *harness {
	t.Helper()
	return newHarnessAt(t, filepath.Join(t.TempDir(), "memory.json"), script...)
}

func newHarnessAt(t *testing.T, memPath string, script ...heard) *harness {
	t.Helper()

	store, err := memory.Load(memPath)
	require.NoError(t, err)

	h := &harness{
		listener:  &scriptedListener{script: script},
		speaker:   &recordingSpeaker{},
		opener:    &recordingOpener{},
		responder: &fakeResponder{reply: "Paris.", ok: true},
		cues:      &countingCues{},
		observer:  &stateLog{},
		frames:    &discardCounter{},
		store:     store,
		history:   memory.NewContext(2000),
		memPath:   memPath,
	}

	resolver := command.NewResolver(command.Options{
		Sites: command.NewTable(map[string]string{
			"open google":    "https://www.google.com/",
			"open youtube":   "https://www.youtube.com/",
			"open linkedin":  "https://in.linkedin.com/",
			"open instagram": "https://www.instagram.com/",
		}),
		Songs: command.NewTable(map[string]string{
			"believer":     "https://music.example/believer",
			"shape of you": "https://music.example/shape-of-you",
		}),
		SiteCutoff: 0.55,
		SongCutoff: 0.5,
	})

	h.assistant, err = New(testConfig(), Deps{
		Listener:  h.listener,
		Speaker:   h.speaker,
		Opener:    h.opener,
		Responder: h.responder,
		Cues:      h.cues,
		Observer:  h.observer,
		Resolver:  resolver,
		Memory:    store,
		Context:   h.history,
		Frames:    h.frames,
	})
	require.NoError(t, err)
	return h
}

var errBrokenDecoder = errors.New("decoder crashed")
