// Package llm is the conversational fallback backed by an Ollama generate endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/rbright/bingo/internal/logging"
	"github.com/rbright/bingo/internal/memory"
)

// ErrEmptyReply is returned when the backend answers without any text.
var ErrEmptyReply = errors.New("empty reply")

// Config describes the backend and generation options.
type Config struct {
	URL           string
	Model         string
	Persona       string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
	FallbackReply string
	HTTPClient    *http.Client
}

// Client turns an utterance into a spoken reply. It never surfaces backend failures.
type Client struct {
	api    *api.Client
	cfg    Config
	logger *slog.Logger
}

// New validates the backend URL and builds a client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("parse llm url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("llm url %q must include scheme and host", cfg.URL)
	}
	if strings.TrimSpace(cfg.Persona) == "" {
		cfg.Persona = "Bingo"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		api:    api.NewClient(base, httpClient),
		cfg:    cfg,
		logger: logging.OrDiscard(logger),
	}, nil
}

// Respond asks the backend for a reply. Any failure is logged and answered
// with the configured fallback reply; ok reports whether the backend answered.
func (c *Client) Respond(ctx context.Context, utterance string, history string, facts memory.Facts) (string, bool) {
	started := time.Now()
	reply, err := c.generate(ctx, Prompt(c.cfg.Persona, utterance, history, facts))
	if err != nil {
		c.logger.Error("llm: generate failed",
			"model", c.cfg.Model,
			"error", err.Error(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
		return c.cfg.FallbackReply, false
	}

	c.logger.Info("llm: replied",
		"model", c.cfg.Model,
		"reply_chars", len(reply),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return reply, true
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": c.cfg.MaxTokens,
		},
	}

	var reply strings.Builder
	err := c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		reply.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	text := strings.TrimSpace(reply.String())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// Version reports the backend version; used by doctor to check reachability.
func (c *Client) Version(ctx context.Context) (string, error) {
	version, err := c.api.Version(ctx)
	if err != nil {
		return "", fmt.Errorf("query llm version: %w", err)
	}
	return version, nil
}

// Prompt renders the generation prompt. Known facts are added as hints ahead
// of the rolling context.
func Prompt(persona string, utterance string, history string, facts memory.Facts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a helpful voice assistant.\n", persona)
	b.WriteString("Be concise and conversational.\n")
	if facts.Name != "" {
		fmt.Fprintf(&b, "The user's name is %s.\n", facts.Name)
	}
	if facts.Note != "" {
		fmt.Fprintf(&b, "The user asked you to remember: %s\n", facts.Note)
	}
	fmt.Fprintf(&b, "Previous context:%s\n", history)
	fmt.Fprintf(&b, "User: %s\n", utterance)
	b.WriteString("Assistant:")
	return b.String()
}
