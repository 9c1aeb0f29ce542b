package config

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Placeholders a command line may reference. Each command accepts only its own.
const (
	PlaceholderText = "{text}"
	PlaceholderURL  = "{url}"
)

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// splitArgv tokenizes a command line. Single quotes are literal, double
// quotes honor \" and \\, and an unquoted backslash escapes the next rune.
// A line starting with # is treated as unset.
func splitArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		argv  []string
		word  strings.Builder
		quote rune
		open  bool // a word is in progress, possibly empty ("")
	)
	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == '\'':
			if r == '\'' {
				quote = 0
				continue
			}
			word.WriteRune(r)
		case quote == '"':
			switch {
			case r == '"':
				quote = 0
			case r == '\\' && i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\'):
				i++
				word.WriteRune(runes[i])
			default:
				word.WriteRune(r)
			}
		case r == '\\':
			if i+1 == len(runes) {
				return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
			}
			i++
			word.WriteRune(runes[i])
			open = true
		case r == '\'' || r == '"':
			quote = r
			open = true
		case unicode.IsSpace(r):
			if open {
				argv = append(argv, word.String())
				word.Reset()
				open = false
			}
		default:
			word.WriteRune(r)
			open = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	if open {
		argv = append(argv, word.String())
	}
	return argv, nil
}

// checkPlaceholders rejects placeholders the command cannot fill, and one
// standing in for the program itself.
func checkPlaceholders(argv []string, allowed string) error {
	for i, arg := range argv {
		for _, found := range placeholderPattern.FindAllString(arg, -1) {
			if found != allowed {
				return fmt.Errorf("unknown placeholder %s (only %s is supported)", found, allowed)
			}
			if i == 0 {
				return fmt.Errorf("placeholder %s cannot be the program", found)
			}
		}
	}
	return nil
}

func mustSplitArgv(input string) []string {
	argv, err := splitArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
