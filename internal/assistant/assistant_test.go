package assistant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/bingo/internal/audio"
	"github.com/rbright/bingo/internal/command"
	"github.com/rbright/bingo/internal/fsm"
	"github.com/rbright/bingo/internal/memory"
	"github.com/rbright/bingo/internal/wake"
)

func wakeAt(ts time.Time) wake.Event {
	return wake.Event{Timestamp: ts}
}

func TestHandleWakeOpensFuzzyMatchedSite(t *testing.T) {
	h := newHarness(t, said("Open googl"))
	ts := time.Unix(1_700_000_000, 0)

	require.NoError(t, h.assistant.HandleWake(context.Background(), wakeAt(ts)))

	require.Equal(t, []string{"Bingo active", "Opening google"}, h.speaker.lines)
	require.Equal(t, []string{"https://www.google.com/"}, h.opener.urls)
	require.Equal(t, 1, h.cues.wakes)
	require.Equal(t, 1, h.frames.discards)
	require.Equal(t, []listenCall{{timeout: 5 * time.Second, phraseLimit: 5 * time.Second}}, h.listener.calls)

	status := h.assistant.Status()
	require.Equal(t, fsm.StateIdle, status.State)
	require.Equal(t, ts, status.LastTrigger)
	require.Equal(t, 1, status.Dispatches)
	require.Equal(t, command.KindOpenSite, status.LastAction)
}

func TestHandleWakeNothingHeardStaysQuiet(t *testing.T) {
	h := newHarness(t, silence())

	require.NoError(t, h.assistant.HandleWake(context.Background(), wakeAt(time.Now())))
	require.Equal(t, []string{"Bingo active"}, h.speaker.lines)
	require.Empty(t, h.opener.urls)
	require.Equal(t, 0, h.assistant.Status().Dispatches)
	require.Equal(t, fsm.StateIdle, h.assistant.Status().State)
}

func TestHandleWakeClosedCaptureIsFatalThenRecovers(t *testing.T) {
	h := newHarness(t, failed(audio.ErrCaptureClosed), said("what is my name"))

	err := h.assistant.HandleWake(context.Background(), wakeAt(time.Now()))
	require.ErrorIs(t, err, audio.ErrCaptureClosed)
	require.Equal(t, fsm.StateError, h.assistant.Status().State)
	require.Equal(t, 1, h.cues.errors)

	require.NoError(t, h.assistant.HandleWake(context.Background(), wakeAt(time.Now())))
	require.Equal(t, fsm.StateIdle, h.assistant.Status().State)
	require.Equal(t, "I don't know your name yet", h.speaker.lines[len(h.speaker.lines)-1])
}

func TestHandleWakeRecognizerFailureApologizes(t *testing.T) {
	h := newHarness(t, failed(errBrokenDecoder), said("open youtube"))

	err := h.assistant.HandleWake(context.Background(), wakeAt(time.Now()))
	require.ErrorIs(t, err, errBrokenDecoder)
	require.Equal(t, []string{"Bingo active", "Sorry, I couldn't hear that"}, h.speaker.lines)
	require.Equal(t, 1, h.cues.errors)
	require.Equal(t, fsm.StateError, h.assistant.Status().State)

	require.NoError(t, h.assistant.HandleWake(context.Background(), wakeAt(time.Now())))
	require.Equal(t, []string{"https://www.youtube.com/"}, h.opener.urls)
}

func TestHandleWakeClosedCaptureStaysSilent(t *testing.T) {
	h := newHarness(t, failed(audio.ErrCaptureClosed))

	require.Error(t, h.assistant.HandleWake(context.Background(), wakeAt(time.Now())))
	require.Equal(t, []string{"Bingo active"}, h.speaker.lines)
}

func TestHandleWakeReportsEveryState(t *testing.T) {
	h := newHarness(t, said("remember that"), said("My name is Alex."), silence(), failed(errBrokenDecoder))
	ctx := context.Background()

	require.NoError(t, h.assistant.HandleWake(ctx, wakeAt(time.Now())))
	require.Equal(t, []fsm.State{
		fsm.StateAcknowledging,
		fsm.StateListening,
		fsm.StateDispatching,
		fsm.StateListening,
		fsm.StateDispatching,
		fsm.StateIdle,
	}, h.observer.states)

	h.observer.states = nil
	require.NoError(t, h.assistant.HandleWake(ctx, wakeAt(time.Now())))
	require.Equal(t, []fsm.State{fsm.StateAcknowledging, fsm.StateListening, fsm.StateIdle}, h.observer.states)

	h.observer.states = nil
	require.Error(t, h.assistant.HandleWake(ctx, wakeAt(time.Now())))
	require.Equal(t, []fsm.State{fsm.StateAcknowledging, fsm.StateListening, fsm.StateError}, h.observer.states)
}

func TestSpeechFailureDoesNotAbortCycle(t *testing.T) {
	h := newHarness(t, said("open youtube"))
	h.speaker.err = fmt.Errorf("espeak-ng missing")

	require.NoError(t, h.assistant.HandleWake(context.Background(), wakeAt(time.Now())))
	require.Equal(t, []string{"https://www.youtube.com/"}, h.opener.urls)
}

func TestDispatchActions(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		spoken []string
		opened []string
	}{
		{name: "site", text: "open instagram", spoken: []string{"Opening instagram"}, opened: []string{"https://www.instagram.com/"}},
		{name: "song", text: "play beliver", spoken: []string{"Playing believer"}, opened: []string{"https://music.example/believer"}},
		{name: "song not found", text: "play something else entirely", spoken: []string{"I couldn't find that song"}},
		{name: "name unknown", text: "What's my name?", spoken: []string{"I don't know your name yet"}},
		{name: "conversational", text: "what is the capital of france", spoken: []string{"Paris."}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.assistant.Dispatch(context.Background(), tc.text))
			require.Equal(t, tc.spoken, h.speaker.lines)
			if tc.opened == nil {
				require.Empty(t, h.opener.urls)
			} else {
				require.Equal(t, tc.opened, h.opener.urls)
			}
		})
	}
}

func TestDispatchOpenFailurePlaysErrorCue(t *testing.T) {
	h := newHarness(t)
	h.opener.err = fmt.Errorf("xdg-open: no handler")

	err := h.assistant.Dispatch(context.Background(), "open google")
	require.ErrorContains(t, err, "open url")
	require.Equal(t, 1, h.cues.errors)
	require.Equal(t, []string{"Opening google"}, h.speaker.lines)
}

func TestConversationalSuccessAppendsContext(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.SetName("Alex"))

	require.NoError(t, h.assistant.Dispatch(context.Background(), "What is the capital of France?"))
	require.NoError(t, h.assistant.Dispatch(context.Background(), "and of spain"))

	require.Equal(t, []string{"what is the capital of france", "and of spain"}, h.responder.prompts)
	require.Equal(t, "", h.responder.contexts[0])
	require.Equal(t, "\nUser: what is the capital of france\nAssistant: Paris.", h.responder.contexts[1])
	require.Equal(t, "Alex", h.responder.facts[0].Name)
	require.Equal(t, 2, h.assistant.Status().ContextTurns)
}

func TestStatusIsSafeDuringConversation(t *testing.T) {
	h := newHarness(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 50 {
			_ = h.assistant.Dispatch(context.Background(), "tell me a joke")
		}
	}()

	for {
		select {
		case <-done:
			require.Equal(t, 50, h.assistant.Status().ContextTurns)
			return
		default:
			status := h.assistant.Status()
			require.LessOrEqual(t, status.ContextTurns, status.Dispatches)
		}
	}
}

func TestConversationalFallbackLeavesContextUntouched(t *testing.T) {
	h := newHarness(t)
	h.responder.reply = "AI brain is currently offline."
	h.responder.ok = false

	require.NoError(t, h.assistant.Dispatch(context.Background(), "tell me a joke"))
	require.Equal(t, []string{"AI brain is currently offline."}, h.speaker.lines)
	require.Equal(t, 0, h.history.Len())
}

func TestRememberNamePersists(t *testing.T) {
	h := newHarness(t, said("remember that"), said("My name is Alex."))

	require.NoError(t, h.assistant.HandleWake(context.Background(), wakeAt(time.Now())))
	require.Equal(t, []string{
		"Bingo active",
		"Okay, tell me the full sentence",
		"Got it. I will remember your name is Alex",
	}, h.speaker.lines)
	require.Equal(t, []listenCall{
		{timeout: 5 * time.Second, phraseLimit: 5 * time.Second},
		{timeout: 8 * time.Second, phraseLimit: 8 * time.Second},
	}, h.listener.calls)
	require.Equal(t, 2, h.frames.discards)
	require.Equal(t, fsm.StateIdle, h.assistant.Status().State)

	reloaded, err := memory.Load(h.memPath)
	require.NoError(t, err)
	require.Equal(t, memory.Facts{Name: "Alex"}, reloaded.Facts())

	require.NoError(t, h.assistant.Dispatch(context.Background(), "what is my name"))
	require.Equal(t, "Your name is Alex", h.speaker.lines[len(h.speaker.lines)-1])
}

func TestRememberNoteKeepsSentence(t *testing.T) {
	h := newHarness(t, said("please remember that"), said("the spare key is under the mat"))

	require.NoError(t, h.assistant.HandleWake(context.Background(), wakeAt(time.Now())))
	require.Equal(t, "I have remembered that", h.speaker.lines[len(h.speaker.lines)-1])

	reloaded, err := memory.Load(h.memPath)
	require.NoError(t, err)
	require.Equal(t, memory.Facts{Note: "the spare key is under the mat"}, reloaded.Facts())
}

func TestRememberFollowUpFailureLeavesMemoryUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		followUp heard
	}{
		{name: "timeout", followUp: silence()},
		{name: "decoder error", followUp: failed(errBrokenDecoder)},
		{name: "name missing", followUp: said("my name is")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, said("remember that"), tc.followUp)

			require.NoError(t, h.assistant.HandleWake(context.Background(), wakeAt(time.Now())))
			require.Equal(t, "I couldn't hear the full sentence", h.speaker.lines[len(h.speaker.lines)-1])
			require.True(t, h.store.Facts().Empty())

			_, err := os.Stat(h.memPath)
			require.True(t, os.IsNotExist(err))
			require.Equal(t, fsm.StateIdle, h.assistant.Status().State)
		})
	}
}

func TestRememberFollowUpClosedCaptureIsFatal(t *testing.T) {
	h := newHarness(t, said("remember that"), failed(audio.ErrCaptureClosed))

	err := h.assistant.HandleWake(context.Background(), wakeAt(time.Now()))
	require.ErrorIs(t, err, audio.ErrCaptureClosed)
	require.True(t, h.store.Facts().Empty())
	require.Equal(t, fsm.StateError, h.assistant.Status().State)
}

func TestRememberSaveFailureApologizes(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	h := newHarnessAt(t, filepath.Join(blocker, "memory.json"), said("remember that"), said("my name is Sam"))
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	err := h.assistant.HandleWake(context.Background(), wakeAt(time.Now()))
	require.ErrorContains(t, err, "remember fact")
	require.Equal(t, "Sorry, I couldn't save that", h.speaker.lines[len(h.speaker.lines)-1])
	require.True(t, h.store.Facts().Empty())
	require.Equal(t, 1, h.cues.errors)
	require.Equal(t, fsm.StateIdle, h.assistant.Status().State)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		text string
		name string
		ok   bool
	}{
		{text: "My name is Alex", name: "Alex", ok: true},
		{text: "hello, my name is Mary Jane.", name: "Mary Jane", ok: true},
		{text: "MY NAME IS ALEX", name: "Alex", ok: true},
		{text: "my name is", name: "", ok: true},
		{text: "the name is bond", ok: false},
	}
	for _, tc := range tests {
		name, ok := SplitName(tc.text)
		require.Equal(t, tc.ok, ok, tc.text)
		require.Equal(t, tc.name, name, tc.text)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(testConfig(), Deps{})
	require.ErrorContains(t, err, "listener is required")
}

func TestGreet(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.assistant.Greet(context.Background()))
	require.Equal(t, []string{"Hey! I am Bingo. Say Bingo to wake me up."}, h.speaker.lines)
}
