// Package whisper sends captured utterances to an OpenAI-compatible transcription endpoint.
package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rbright/bingo/internal/audio"
)

// Config identifies the endpoint and model.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Language   string
	SampleRate int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client transcribes whole utterances. It never retries; the caller falls
// back to the offline decoder instead.
type Client struct {
	api        openai.Client
	model      string
	language   string
	sampleRate int
}

// New validates cfg and builds a client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("whisper model must not be empty")
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid whisper sample rate %d", cfg.SampleRate)
	}

	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		api:        openai.NewClient(opts...),
		model:      cfg.Model,
		language:   cfg.Language,
		sampleRate: cfg.SampleRate,
	}, nil
}

// Transcribe uploads pcm as a WAV file and returns the trimmed transcript.
func (c *Client) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	var wav bytes.Buffer
	wav.Grow(44 + len(pcm))
	if err := audio.WriteWAV(&wav, pcm, c.sampleRate, 1); err != nil {
		return "", fmt.Errorf("encode utterance: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav.Bytes()), "utterance.wav", "audio/wav"),
		Model: openai.AudioModel(c.model),
	}
	if c.language != "" {
		params.Language = openai.String(c.language)
	}

	res, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("transcription rejected (status %d): %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}
