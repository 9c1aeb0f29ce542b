package doctor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/bingo/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "speech_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-tts")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-tts", "--stdin"}, "speech_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "speech_cmd command is available")
}

func TestCheckWakeModelReportsEveryMissingFile(t *testing.T) {
	check := checkWakeModel(config.WakeConfig{Encoder: "/nonexistent/encoder.onnx"})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "wake.decoder")
	require.Contains(t, check.Message, "wake.encoder")
	require.Contains(t, check.Message, "wake.keywords_file")
}

func TestCheckWakeModelListsKeywords(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	check := checkWakeModel(config.WakeConfig{
		Encoder:      write("encoder.onnx", "x"),
		Decoder:      write("decoder.onnx", "x"),
		Joiner:       write("joiner.onnx", "x"),
		Tokens:       write("tokens.txt", "x"),
		KeywordsFile: write("keywords.txt", "▁B IN G O @bingo\n"),
	})
	require.True(t, check.Pass, check.Message)
	require.Equal(t, "keywords: bingo", check.Message)
}

func TestCheckOfflineEngineSherpaMissing(t *testing.T) {
	check := checkOfflineEngine(context.Background(), config.Default().Offline)
	require.False(t, check.Pass)
	require.Equal(t, "offline.sherpa", check.Name)
	require.Contains(t, check.Message, "not configured")
}

func TestCheckOfflineEngineVoskDial(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port

	cfg := config.Default().Offline
	cfg.Engine = "vosk"
	cfg.Vosk.URL = "ws://127.0.0.1:" + strconv.Itoa(port)

	check := checkOfflineEngine(context.Background(), cfg)
	require.True(t, check.Pass, check.Message)

	require.NoError(t, listener.Close())
	check = checkOfflineEngine(context.Background(), cfg)
	require.False(t, check.Pass)
}

func TestCheckOnlineCredentials(t *testing.T) {
	cfg := config.Default().Online
	cfg.APIKeyEnv = "BINGO_TEST_OPENAI_KEY"

	t.Setenv("BINGO_TEST_OPENAI_KEY", "")
	require.False(t, checkOnlineCredentials(cfg).Pass)

	cfg.BaseURL = "http://127.0.0.1:8000/v1"
	require.True(t, checkOnlineCredentials(cfg).Pass)

	cfg.BaseURL = ""
	t.Setenv("BINGO_TEST_OPENAI_KEY", "sk-test")
	require.True(t, checkOnlineCredentials(cfg).Pass)
}

func TestCheckLLMVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/version", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"0.11.6"}`))
	}))
	t.Cleanup(server.Close)

	cfg := config.Default().LLM
	cfg.URL = server.URL

	check := checkLLM(context.Background(), cfg)
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "ollama 0.11.6")
}

func TestCheckLLMUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfg := config.Default().LLM
	cfg.URL = url

	check := checkLLM(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "fallback")
}

func TestCheckMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	check := checkMemory(config.MemoryConfig{Path: path})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "(empty)")

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	check = checkMemory(config.MemoryConfig{Path: path})
	require.False(t, check.Pass)
}

func TestCheckSongLibrary(t *testing.T) {
	check := checkSongLibrary("")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "not configured")

	path := filepath.Join(t.TempDir(), "songs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("songs:\n  - title: believer\n    url: https://music.example/believer\n"), 0o600))
	check = checkSongLibrary(path)
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "1 song(s)")
}

func TestCheckConfigMissingFile(t *testing.T) {
	check := checkConfig(config.Loaded{Path: "/tmp/nope/config.jsonc"})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "using defaults")
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Contains(t, check.Name, "audio.device")
}

func TestOneLineFlattensJoinedErrors(t *testing.T) {
	err := errors.Join(errors.New("a"), errors.New("b"))
	require.Equal(t, "a; b", oneLine(err))
	require.Equal(t, "c", oneLine(errors.New("c")))
}

func TestRunIncludesEveryCheck(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg := config.Default()
	cfg.LLM.URL = "http://127.0.0.1:1"
	cfg.Connectivity.Host = "127.0.0.1"
	cfg.Connectivity.Port = 1
	cfg.Connectivity.TimeoutMS = 100

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	names := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	require.Contains(t, names, "config")
	require.Contains(t, names, "wake.model")
	require.Contains(t, names, "offline.sherpa")
	require.Contains(t, names, "connectivity")
	require.Contains(t, names, "online")
	require.Contains(t, names, "llm")
	require.Contains(t, names, "memory")
	require.Contains(t, names, "audio.device")
	require.False(t, report.OK())
}
