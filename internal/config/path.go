package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const appDir = "bingo"

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", appDir, "config.jsonc"), nil
}

// DefaultMemoryPath resolves $XDG_DATA_HOME/bingo/memory.json with a home fallback.
func DefaultMemoryPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, "memory.json"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for memory fallback")
	}
	return filepath.Join(home, ".local", "share", appDir, "memory.json"), nil
}

// ExpandUserPath expands a leading "~/" to the current user's home directory.
func ExpandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw, "~/"))
}

// ResolvePath returns the configured memory file, or the XDG default when unset.
func (m MemoryConfig) ResolvePath() (string, error) {
	if path := ExpandUserPath(m.Path); path != "" {
		return path, nil
	}
	return DefaultMemoryPath()
}
