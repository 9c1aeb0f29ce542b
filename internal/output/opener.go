package output

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/bingo/internal/config"
)

// Opener hands URLs to the desktop's default handler.
type Opener struct {
	Argv    []string
	Timeout time.Duration
}

// NewOpener builds an opener around argv. The URL replaces every {url} in
// argv, or is appended as the final argument when there is none.
func NewOpener(argv []string) *Opener {
	return &Opener{Argv: append([]string(nil), argv...), Timeout: 10 * time.Second}
}

// Open launches the handler for rawURL and waits for it to exit.
func (o *Opener) Open(ctx context.Context, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" {
		return fmt.Errorf("open: invalid url %q", rawURL)
	}
	if len(o.Argv) == 0 {
		return fmt.Errorf("open: command argv cannot be empty")
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	argv, filled := fillPlaceholder(o.Argv, config.PlaceholderURL, rawURL)
	if !filled {
		argv = append(argv, rawURL)
	}
	if err := runCommandWithInput(ctx, argv, ""); err != nil {
		return fmt.Errorf("open %s: %w", rawURL, err)
	}
	return nil
}
