// Package vosk streams PCM to a vosk-server websocket and reads back decoder results.
package vosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rbright/bingo/internal/logging"
	"github.com/rbright/bingo/internal/recognition"
)

const closeGrace = time.Second

// Engine opens one websocket per utterance against a vosk-server.
type Engine struct {
	URL        string
	SampleRate int
	Dialer     *websocket.Dialer
	Logger     *slog.Logger
}

type configMessage struct {
	Config struct {
		SampleRate int `json:"sample_rate"`
	} `json:"config"`
}

// result is either a partial ({"partial": ...}) or a final ({"text": ...}) reply.
type result struct {
	Partial *string `json:"partial"`
	Text    *string `json:"text"`
}

// NewSession dials the server and sends the stream configuration.
func (e *Engine) NewSession(ctx context.Context) (recognition.Session, error) {
	if strings.TrimSpace(e.URL) == "" {
		return nil, errors.New("vosk url must not be empty")
	}
	dialer := e.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, e.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial vosk %q: %w", e.URL, err)
	}

	var cfg configMessage
	cfg.Config.SampleRate = e.SampleRate
	if err := conn.WriteJSON(cfg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("configure vosk stream: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	return &session{conn: conn, logger: logging.OrDiscard(e.Logger)}, nil
}

type session struct {
	conn   *websocket.Conn
	logger *slog.Logger
	text   string
	closed bool
}

// Accept sends one frame and waits for the server's verdict on it.
func (s *session) Accept(frame []byte) (bool, error) {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return false, fmt.Errorf("send audio: %w", err)
	}
	reply, err := s.read()
	if err != nil {
		return false, err
	}
	if reply.Text == nil {
		return false, nil
	}
	s.text = strings.TrimSpace(*reply.Text)
	return true, nil
}

func (s *session) Text() string {
	return s.text
}

// Close sends eof, drains the final reply, and closes the socket.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	_ = s.conn.SetWriteDeadline(time.Now().Add(closeGrace))
	_ = s.conn.SetReadDeadline(time.Now().Add(closeGrace))
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err == nil {
		if _, err := s.read(); err != nil {
			s.logger.Debug("vosk: eof reply not received", "error", err.Error())
		}
	}
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}

func (s *session) read() (result, error) {
	_, payload, err := s.conn.ReadMessage()
	if err != nil {
		return result{}, fmt.Errorf("read vosk result: %w", err)
	}
	var reply result
	if err := json.Unmarshal(payload, &reply); err != nil {
		return result{}, fmt.Errorf("decode vosk result: %w", err)
	}
	return reply, nil
}
