// Package sherpa wraps the sherpa-onnx streaming transducer for offline
// decoding and keyword spotting.
package sherpa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrMissingModel is wrapped by CheckFiles for every absent model file.
var ErrMissingModel = errors.New("model file missing")

// Model points at the files of one streaming transducer.
type Model struct {
	Encoder    string
	Decoder    string
	Joiner     string
	Tokens     string
	ModelType  string
	NumThreads int
	Provider   string
}

func (m Model) files() map[string]string {
	return map[string]string{
		"encoder": m.Encoder,
		"decoder": m.Decoder,
		"joiner":  m.Joiner,
		"tokens":  m.Tokens,
	}
}

// CheckFiles reports every named path that is blank or not a regular file.
// Keys are used as labels in the error.
func CheckFiles(prefix string, files map[string]string) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		path := strings.TrimSpace(files[name])
		label := name
		if prefix != "" {
			label = prefix + "." + name
		}
		if path == "" {
			errs = append(errs, fmt.Errorf("%s: %w (not configured)", label, ErrMissingModel))
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", label, path, ErrMissingModel))
			continue
		}
		if info.IsDir() {
			errs = append(errs, fmt.Errorf("%s %q is a directory: %w", label, path, ErrMissingModel))
		}
	}
	return errors.Join(errs...)
}

// ParseKeywords returns the display label of every keyword line. A line's
// label is the text after '@' when present, otherwise its tokens up to the
// first boost (:x) or threshold (#x) field.
func ParseKeywords(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var label string
		if at := strings.LastIndex(line, "@"); at >= 0 {
			label = strings.TrimSpace(line[at+1:])
		} else {
			var tokens []string
			for _, token := range strings.Fields(line) {
				if strings.HasPrefix(token, ":") || strings.HasPrefix(token, "#") {
					break
				}
				tokens = append(tokens, token)
			}
			label = strings.Join(tokens, " ")
		}
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}
