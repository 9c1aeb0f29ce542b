package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/bingo/internal/fsm"
	"github.com/rbright/bingo/internal/memory"
	"github.com/rbright/bingo/internal/transcript"
)

const (
	promptFullSentence = "Okay, tell me the full sentence"
	replyMissedFact    = "I couldn't hear the full sentence"
	replyNotSaved      = "Sorry, I couldn't save that"
	replyNoteSaved     = "I have remembered that"
)

// remember runs the follow-up capture. Memory is only touched once a usable
// sentence was heard, and confirmation is only spoken after it was saved.
func (a *Assistant) remember(ctx context.Context) error {
	a.say(ctx, promptFullSentence)
	a.advance(ctx, fsm.EventFollowUp)

	result, err := a.listen(ctx, a.cfg.Fact)
	a.advance(ctx, fsm.EventHeard)
	if err != nil {
		if fatal(ctx, err) {
			return fmt.Errorf("listen for fact: %w", err)
		}
		a.logger.Warn("assistant: fact capture failed", "error", err.Error())
		a.say(ctx, replyMissedFact)
		return nil
	}
	if result.Empty() {
		a.logger.Info("assistant: fact not heard", "status", string(result.Status))
		a.say(ctx, replyMissedFact)
		return nil
	}

	name, isName := SplitName(result.Text)
	if isName && name == "" {
		a.say(ctx, replyMissedFact)
		return nil
	}
	if isName {
		err = a.deps.Memory.SetName(name)
	} else {
		err = a.deps.Memory.SetNote(transcript.Clean(result.Text))
	}
	if err != nil {
		a.logger.Error("assistant: remember failed", "error", err.Error())
		if a.deps.Cues != nil {
			a.deps.Cues.Error(ctx)
		}
		a.say(ctx, replyNotSaved)
		return fmt.Errorf("remember fact: %w", err)
	}

	if isName {
		a.say(ctx, "Got it. I will remember your name is "+name)
	} else {
		a.say(ctx, replyNoteSaved)
	}
	return nil
}

// SplitName finds "my name is" in text and returns the words after it with
// the speaker's casing preserved.
func SplitName(text string) (string, bool) {
	words := strings.Fields(text)
	for i := 0; i+3 <= len(words); i++ {
		if transcript.Normalize(strings.Join(words[i:i+3], " ")) == "my name is" {
			return transcript.Clean(strings.Join(words[i+3:], " ")), true
		}
	}
	return "", false
}

// NameReply answers "what is my name".
func NameReply(facts memory.Facts) string {
	if facts.Name == "" {
		return "I don't know your name yet"
	}
	return "Your name is " + facts.Name
}

// SiteName turns a site phrase like "open google" into the spoken "google".
func SiteName(phrase string) string {
	return strings.TrimSpace(strings.TrimPrefix(phrase, "open "))
}
