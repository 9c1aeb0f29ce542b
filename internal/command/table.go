package command

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table maps canonical phrases to URLs. It is immutable after construction.
type Table struct {
	urls    map[string]string
	phrases []string
}

// NewTable copies entries, lowercasing and whitespace-collapsing every key.
func NewTable(entries map[string]string) Table {
	urls := make(map[string]string, len(entries))
	for phrase, url := range entries {
		phrase = canonical(phrase)
		if phrase == "" {
			continue
		}
		urls[phrase] = url
	}

	phrases := make([]string, 0, len(urls))
	for phrase := range urls {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)

	return Table{urls: urls, phrases: phrases}
}

// Phrases returns the sorted canonical phrases.
func (t Table) Phrases() []string {
	return t.phrases
}

// URL looks up a canonical phrase.
func (t Table) URL(phrase string) (string, bool) {
	url, ok := t.urls[phrase]
	return url, ok
}

// Len is the number of entries.
func (t Table) Len() int {
	return len(t.phrases)
}

type songLibraryFile struct {
	Songs []struct {
		Title   string   `yaml:"title"`
		URL     string   `yaml:"url"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"songs"`
}

// LoadSongLibrary reads a YAML song list:
//
//	songs:
//	  - title: believer
//	    url: https://www.youtube.com/watch?v=7wtfhZwyrcc
//	    aliases: [imagine dragons believer]
//
// Aliases resolve to the same URL as their title. An empty path yields an empty table.
func LoadSongLibrary(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return NewTable(nil), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read song library %q: %w", path, err)
	}

	var file songLibraryFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return Table{}, fmt.Errorf("decode song library %q: %w", path, err)
	}

	entries := make(map[string]string)
	for i, song := range file.Songs {
		title := canonical(song.Title)
		url := strings.TrimSpace(song.URL)
		if title == "" || url == "" {
			return Table{}, fmt.Errorf("song library %q entry %d: title and url are required", path, i+1)
		}
		entries[title] = url
		for _, alias := range song.Aliases {
			if alias = canonical(alias); alias != "" {
				entries[alias] = url
			}
		}
	}
	if len(entries) == 0 {
		return Table{}, errors.New("song library " + path + " has no songs")
	}
	return NewTable(entries), nil
}

func canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
