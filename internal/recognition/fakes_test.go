package recognition

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rbright/bingo/internal/audio"
)

// scriptedFrames yields frames in order, then blocks until ctx is done.
type scriptedFrames struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (s *scriptedFrames) ReadFrame(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, audio.ErrCaptureClosed
	}
	if len(s.frames) > 0 {
		frame := s.frames[0]
		s.frames = s.frames[1:]
		s.mu.Unlock()
		return frame, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *scriptedFrames) Discard() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.frames)
	s.frames = nil
	return n
}

func loudFrame() []byte  { return audio.Bytes([]int16{2000, -2000, 2000, -2000}) }
func quietFrame() []byte { return audio.Bytes([]int16{10, -10, 10, -10}) }

func repeat(frame func() []byte, n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = frame()
	}
	return out
}

type fakeProbe struct {
	reachable bool
	calls     int
}

func (p *fakeProbe) Reachable(context.Context) bool {
	p.calls++
	return p.reachable
}

type fakeOnline struct {
	text  string
	err   error
	calls int
	got   []byte
}

func (o *fakeOnline) Transcribe(_ context.Context, pcm []byte) (string, error) {
	o.calls++
	o.got = append([]byte(nil), pcm...)
	return o.text, o.err
}

// fakeOffline finalizes after finalAfter frames with text.
type fakeOffline struct {
	text       string
	finalAfter int
	openErr    error
	acceptErr  error
	// stall delays every Accept, like a decoder waiting on a slow server.
	stall time.Duration

	sessions int
	accepted int
	closed   int
}

func (o *fakeOffline) NewSession(context.Context) (Session, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	o.sessions++
	return &fakeSession{parent: o}, nil
}

type fakeSession struct {
	parent *fakeOffline
	seen   int
}

func (s *fakeSession) Accept([]byte) (bool, error) {
	if s.parent.stall > 0 {
		time.Sleep(s.parent.stall)
	}
	if s.parent.acceptErr != nil {
		return false, s.parent.acceptErr
	}
	s.seen++
	s.parent.accepted++
	return s.parent.finalAfter > 0 && s.seen >= s.parent.finalAfter, nil
}

func (s *fakeSession) Text() string { return s.parent.text }

func (s *fakeSession) Close() error {
	s.parent.closed++
	return nil
}

var errService = errors.New("503 service unavailable")
