package sherpa

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/rbright/bingo/internal/audio"
)

// SpotterConfig configures the keyword spotter used as the wake matcher.
type SpotterConfig struct {
	Model        Model
	KeywordsFile string
	SampleRate   int
	Threshold    float64
	Score        float64
}

// Spotter is a wake-word matcher over one long-lived keyword stream.
type Spotter struct {
	mu         sync.Mutex
	spotter    *sherpa.KeywordSpotter
	stream     *sherpa.OnlineStream
	sampleRate int
	keywords   []string
}

// NewSpotter validates files, reads the keyword labels, and loads the model.
func NewSpotter(cfg SpotterConfig) (*Spotter, error) {
	files := cfg.Model.files()
	files["keywords_file"] = cfg.KeywordsFile
	if err := CheckFiles("wake", files); err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.KeywordsFile)
	if err != nil {
		return nil, fmt.Errorf("open keywords file: %w", err)
	}
	keywords, err := ParseKeywords(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("keywords file %q defines no keywords", cfg.KeywordsFile)
	}

	config := spotterConfig(cfg)
	spotter := sherpa.NewKeywordSpotter(&config)
	if spotter == nil {
		return nil, errors.New("create sherpa keyword spotter: model failed to load")
	}
	stream := sherpa.NewKeywordStream(spotter)
	if stream == nil {
		sherpa.DeleteKeywordSpotter(spotter)
		return nil, errors.New("create sherpa keyword stream")
	}

	return &Spotter{
		spotter:    spotter,
		stream:     stream,
		sampleRate: cfg.SampleRate,
		keywords:   keywords,
	}, nil
}

func spotterConfig(cfg SpotterConfig) sherpa.KeywordSpotterConfig {
	var config sherpa.KeywordSpotterConfig
	config.FeatConfig = featureConfig(cfg.SampleRate)
	config.ModelConfig = modelConfig(cfg.Model)
	config.MaxActivePaths = 4
	config.NumTrailingBlanks = 1
	config.KeywordsFile = cfg.KeywordsFile
	config.KeywordsThreshold = float32(cfg.Threshold)
	config.KeywordsScore = float32(cfg.Score)
	return config
}

// Keywords returns the configured keyword labels in file order.
func (s *Spotter) Keywords() []string {
	return s.keywords
}

// Match feeds one frame and returns the index of the detected keyword, or -1.
func (s *Spotter) Match(frame []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spotter == nil {
		return -1, errors.New("keyword spotter closed")
	}

	s.stream.AcceptWaveform(s.sampleRate, audio.Float32s(frame))
	for s.spotter.IsReady(s.stream) {
		s.spotter.Decode(s.stream)
		keyword := strings.TrimSpace(s.spotter.GetResult(s.stream).Keyword)
		if keyword == "" {
			continue
		}
		s.spotter.Reset(s.stream)
		return keywordIndex(s.keywords, keyword), nil
	}
	return -1, nil
}

// Close releases the stream and the spotter.
func (s *Spotter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		sherpa.DeleteOnlineStream(s.stream)
		s.stream = nil
	}
	if s.spotter != nil {
		sherpa.DeleteKeywordSpotter(s.spotter)
		s.spotter = nil
	}
}

// keywordIndex maps a detected label to its position; unknown labels map to 0.
func keywordIndex(keywords []string, detected string) int {
	for i, keyword := range keywords {
		if strings.EqualFold(keyword, detected) {
			return i
		}
	}
	return 0
}
