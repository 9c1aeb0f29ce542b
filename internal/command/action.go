// Package command resolves a recognized utterance into one typed action.
package command

// Kind tags the Action variant.
type Kind string

const (
	KindRememberFact   Kind = "remember_fact"
	KindQueryName      Kind = "query_name"
	KindOpenSite       Kind = "open_site"
	KindPlaySong       Kind = "play_song"
	KindSongNotFound   Kind = "song_not_found"
	KindConversational Kind = "conversational"
)

// Action is the resolver output. Target is the matched canonical phrase or
// title, URL the destination for open/play, and Text the utterance for the
// conversational fallback.
type Action struct {
	Kind   Kind
	Target string
	URL    string
	Text   string
}
