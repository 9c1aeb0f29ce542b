package command

import (
	"strings"

	"github.com/rbright/bingo/internal/fuzzy"
)

// Rule inspects normalized text and either claims it with an Action or passes.
type Rule struct {
	Name  string
	Match func(text string) (Action, bool)
}

// Resolver evaluates rules in order; the first claim wins and unclaimed text
// falls through to the conversational fallback.
type Resolver struct {
	rules []Rule
}

// Options configures the default rule set.
type Options struct {
	Sites      Table
	Songs      Table
	SiteCutoff float64
	SongCutoff float64
}

// NewResolver builds the default priority order: memory intents, then site
// commands, then "play <song>".
func NewResolver(opts Options) *Resolver {
	return &Resolver{rules: []Rule{
		MemoryRule(),
		SiteRule(opts.Sites, opts.SiteCutoff),
		SongRule(opts.Songs, opts.SongCutoff),
	}}
}

// NewResolverWithRules builds a resolver from an explicit rule list.
func NewResolverWithRules(rules ...Rule) *Resolver {
	return &Resolver{rules: rules}
}

// Resolve maps normalized (lowercase, punctuation-free) text to an Action.
func (r *Resolver) Resolve(text string) Action {
	for _, rule := range r.rules {
		if action, ok := rule.Match(text); ok {
			return action
		}
	}
	return Action{Kind: KindConversational, Text: text}
}

// Rules returns rule names in evaluation order.
func (r *Resolver) Rules() []string {
	names := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		names = append(names, rule.Name)
	}
	return names
}

// MemoryRule claims the two fact intents by substring.
func MemoryRule() Rule {
	return Rule{
		Name: "memory",
		Match: func(text string) (Action, bool) {
			switch {
			case strings.Contains(text, "remember that"):
				return Action{Kind: KindRememberFact, Text: text}, true
			case strings.Contains(text, "what is my name"), strings.Contains(text, "what's my name"):
				return Action{Kind: KindQueryName, Text: text}, true
			default:
				return Action{}, false
			}
		},
	}
}

// SiteRule fuzzy-matches the whole utterance against the site phrases.
func SiteRule(sites Table, cutoff float64) Rule {
	return Rule{
		Name: "site",
		Match: func(text string) (Action, bool) {
			phrase, ok := fuzzy.Closest(text, sites.Phrases(), cutoff)
			if !ok {
				return Action{}, false
			}
			url, _ := sites.URL(phrase)
			return Action{Kind: KindOpenSite, Target: phrase, URL: url, Text: text}, true
		},
	}
}

// SongRule claims utterances whose first word is "play". An unmatched title
// still claims the utterance as KindSongNotFound.
func SongRule(songs Table, cutoff float64) Rule {
	return Rule{
		Name: "song",
		Match: func(text string) (Action, bool) {
			fields := strings.Fields(text)
			if len(fields) == 0 || fields[0] != "play" {
				return Action{}, false
			}

			title := strings.Join(fields[1:], " ")
			if title != "" {
				if match, ok := fuzzy.Closest(title, songs.Phrases(), cutoff); ok {
					url, _ := songs.URL(match)
					return Action{Kind: KindPlaySong, Target: match, URL: url, Text: text}, true
				}
			}
			return Action{Kind: KindSongNotFound, Target: title, Text: text}, true
		},
	}
}
