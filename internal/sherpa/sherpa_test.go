package sherpa

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKeywords(t *testing.T) {
	input := `
# wake words
▁B ING O @bingo
▁HE Y ▁B ING O :2.0 #0.3 @hey_bingo
▁COMPUTER :1.5
`
	labels, err := ParseKeywords(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []string{"bingo", "hey_bingo", "▁COMPUTER"}, labels)
}

func TestKeywordIndex(t *testing.T) {
	keywords := []string{"bingo", "hey_bingo"}
	require.Equal(t, 1, keywordIndex(keywords, "HEY_BINGO"))
	require.Equal(t, 0, keywordIndex(keywords, "bingo"))
	require.Equal(t, 0, keywordIndex(keywords, "unlisted"))
}

func TestCheckFilesReportsEveryMissingFile(t *testing.T) {
	dir := t.TempDir()
	encoder := filepath.Join(dir, "encoder.onnx")
	require.NoError(t, os.WriteFile(encoder, []byte("onnx"), 0o600))

	err := CheckFiles("wake", map[string]string{
		"encoder": encoder,
		"decoder": filepath.Join(dir, "decoder.onnx"),
		"joiner":  "",
		"tokens":  dir,
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingModel))
	require.Contains(t, err.Error(), "wake.decoder")
	require.Contains(t, err.Error(), "wake.joiner")
	require.Contains(t, err.Error(), "is a directory")
	require.NotContains(t, err.Error(), "wake.encoder")
}

func TestCheckFilesAllPresent(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"encoder", "decoder", "joiner", "tokens"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		files[name] = path
	}
	require.NoError(t, CheckFiles("", files))
}

func TestRecognizerConfigMapping(t *testing.T) {
	cfg := recognizerConfig(EngineConfig{
		Model: Model{
			Encoder:   "/m/encoder.onnx",
			Decoder:   "/m/decoder.onnx",
			Joiner:    "/m/joiner.onnx",
			Tokens:    "/m/tokens.txt",
			ModelType: "zipformer2",
		},
		SampleRate: 16000,
	})

	require.Equal(t, 16000, cfg.FeatConfig.SampleRate)
	require.Equal(t, 80, cfg.FeatConfig.FeatureDim)
	require.Equal(t, "/m/encoder.onnx", cfg.ModelConfig.Transducer.Encoder)
	require.Equal(t, "/m/tokens.txt", cfg.ModelConfig.Tokens)
	require.Equal(t, 1, cfg.ModelConfig.NumThreads)
	require.Equal(t, "cpu", cfg.ModelConfig.Provider)
	require.Equal(t, "greedy_search", cfg.DecodingMethod)
	require.Equal(t, 1, cfg.EnableEndpoint)
	require.InDelta(t, 0.8, cfg.Rule2MinTrailingSilence, 1e-6)
}

func TestSpotterConfigMapping(t *testing.T) {
	cfg := spotterConfig(SpotterConfig{
		Model:        Model{Encoder: "e", Decoder: "d", Joiner: "j", Tokens: "t", NumThreads: 2},
		KeywordsFile: "/m/keywords.txt",
		SampleRate:   16000,
		Threshold:    0.25,
		Score:        1.5,
	})

	require.Equal(t, "/m/keywords.txt", cfg.KeywordsFile)
	require.InDelta(t, 0.25, cfg.KeywordsThreshold, 1e-6)
	require.InDelta(t, 1.5, cfg.KeywordsScore, 1e-6)
	require.Equal(t, 2, cfg.ModelConfig.NumThreads)
}

func TestNewSpotterFailsFastOnMissingFiles(t *testing.T) {
	_, err := NewSpotter(SpotterConfig{SampleRate: 16000})
	require.ErrorIs(t, err, ErrMissingModel)
	require.Contains(t, err.Error(), "wake.keywords_file")
}

func TestNewEngineFailsFastOnMissingFiles(t *testing.T) {
	_, err := NewEngine(EngineConfig{SampleRate: 16000})
	require.ErrorIs(t, err, ErrMissingModel)
	require.Contains(t, err.Error(), "offline.sherpa.encoder")
}
