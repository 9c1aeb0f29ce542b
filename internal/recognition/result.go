// Package recognition picks online or offline speech-to-text for one utterance
// and degrades to the offline decoder when the network path fails.
package recognition

import "strings"

// Source records which recognizer produced a Result.
type Source string

const (
	SourceOnline  Source = "online"
	SourceOffline Source = "offline"
)

// Status is the recognizer outcome taxonomy. Only StatusNetworkError triggers
// the offline fallback; silence and unclear speech would not improve on retry.
type Status string

const (
	StatusOK             Status = "ok"
	StatusNetworkError   Status = "network_error"
	StatusTimeout        Status = "timeout"
	StatusUnintelligible Status = "unintelligible"
)

// Result is produced once per Listen call and is not retained.
type Result struct {
	Text   string
	Source Source
	Status Status
}

// Empty reports whether no usable text was recognized.
func (r Result) Empty() bool {
	return r.Status != StatusOK || strings.TrimSpace(r.Text) == ""
}
