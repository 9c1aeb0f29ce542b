package sherpa

import (
	"context"
	"errors"
	"strings"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/rbright/bingo/internal/audio"
	"github.com/rbright/bingo/internal/recognition"
)

// EngineConfig configures the offline streaming decoder.
type EngineConfig struct {
	Model      Model
	SampleRate int
	// TrailingSilence is the silence (seconds) after speech that finalizes an utterance.
	TrailingSilence float32
}

// Engine owns one sherpa online recognizer; each utterance gets its own stream.
type Engine struct {
	recognizer *sherpa.OnlineRecognizer
	sampleRate int
}

// NewEngine validates model files and loads the recognizer.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := CheckFiles("offline.sherpa", cfg.Model.files()); err != nil {
		return nil, err
	}

	config := recognizerConfig(cfg)
	recognizer := sherpa.NewOnlineRecognizer(&config)
	if recognizer == nil {
		return nil, errors.New("create sherpa recognizer: model failed to load")
	}
	return &Engine{recognizer: recognizer, sampleRate: cfg.SampleRate}, nil
}

func featureConfig(sampleRate int) sherpa.FeatureConfig {
	return sherpa.FeatureConfig{SampleRate: sampleRate, FeatureDim: 80}
}

func modelConfig(m Model) sherpa.OnlineModelConfig {
	provider := m.Provider
	if provider == "" {
		provider = "cpu"
	}
	threads := m.NumThreads
	if threads <= 0 {
		threads = 1
	}

	var cfg sherpa.OnlineModelConfig
	cfg.Transducer.Encoder = m.Encoder
	cfg.Transducer.Decoder = m.Decoder
	cfg.Transducer.Joiner = m.Joiner
	cfg.Tokens = m.Tokens
	cfg.NumThreads = threads
	cfg.Provider = provider
	cfg.ModelType = m.ModelType
	return cfg
}

func recognizerConfig(cfg EngineConfig) sherpa.OnlineRecognizerConfig {
	trailing := cfg.TrailingSilence
	if trailing <= 0 {
		trailing = 0.8
	}

	var config sherpa.OnlineRecognizerConfig
	config.FeatConfig = featureConfig(cfg.SampleRate)
	config.ModelConfig = modelConfig(cfg.Model)
	config.DecodingMethod = "greedy_search"
	config.EnableEndpoint = 1
	config.Rule1MinTrailingSilence = 2.4
	config.Rule2MinTrailingSilence = trailing
	config.Rule3MinUtteranceLength = 20
	return config
}

// NewSession opens a fresh decoding stream.
func (e *Engine) NewSession(context.Context) (recognition.Session, error) {
	stream := sherpa.NewOnlineStream(e.recognizer)
	if stream == nil {
		return nil, errors.New("create sherpa stream")
	}
	return &session{engine: e, stream: stream}, nil
}

// Close releases the recognizer.
func (e *Engine) Close() {
	if e.recognizer != nil {
		sherpa.DeleteOnlineRecognizer(e.recognizer)
		e.recognizer = nil
	}
}

type session struct {
	engine *Engine
	stream *sherpa.OnlineStream
	text   string
}

// Accept decodes one frame; an endpoint finalizes the current text.
func (s *session) Accept(frame []byte) (bool, error) {
	if s.stream == nil {
		return false, errors.New("sherpa session closed")
	}
	r := s.engine.recognizer
	s.stream.AcceptWaveform(s.engine.sampleRate, audio.Float32s(frame))
	for r.IsReady(s.stream) {
		r.Decode(s.stream)
	}
	if !r.IsEndpoint(s.stream) {
		return false, nil
	}
	s.text = strings.TrimSpace(r.GetResult(s.stream).Text)
	r.Reset(s.stream)
	return true, nil
}

func (s *session) Text() string {
	return s.text
}

func (s *session) Close() error {
	if s.stream != nil {
		sherpa.DeleteOnlineStream(s.stream)
		s.stream = nil
	}
	return nil
}
