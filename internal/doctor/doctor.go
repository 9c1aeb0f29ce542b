// Package doctor runs runtime readiness diagnostics for config, models, audio, and backends.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/bingo/internal/audio"
	"github.com/rbright/bingo/internal/command"
	"github.com/rbright/bingo/internal/config"
	"github.com/rbright/bingo/internal/llm"
	"github.com/rbright/bingo/internal/memory"
	"github.com/rbright/bingo/internal/netprobe"
	"github.com/rbright/bingo/internal/sherpa"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkWakeModel(cfg.Wake))
	checks = append(checks, checkOfflineEngine(ctx, cfg.Offline))
	checks = append(checks, checkConnectivity(ctx, cfg.Connectivity))
	if cfg.Online.Enable {
		checks = append(checks, checkOnlineCredentials(cfg.Online))
	}
	checks = append(checks, checkLLM(ctx, cfg.LLM))
	checks = append(checks, checkMemory(cfg.Memory))
	checks = append(checks, checkSongLibrary(cfg.Commands.SongLibrary))
	checks = append(checks, checkCommand(cfg.SpeechCmd.Argv, "speech_cmd"))
	checks = append(checks, checkCommand(cfg.OpenCmd.Argv, "open_cmd"))
	if cfg.Indicator.NotifyEnable {
		checks = append(checks, checkBinary("busctl", "indicator.notify_enable"))
	}
	checks = append(checks, checkAudioSelection(ctx, cfg))

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		message = fmt.Sprintf("%s (%d warning(s))", message, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkWakeModel verifies every keyword-spotter file exists.
func checkWakeModel(cfg config.WakeConfig) Check {
	err := sherpa.CheckFiles("wake", map[string]string{
		"encoder":       cfg.Encoder,
		"decoder":       cfg.Decoder,
		"joiner":        cfg.Joiner,
		"tokens":        cfg.Tokens,
		"keywords_file": cfg.KeywordsFile,
	})
	if err != nil {
		return Check{Name: "wake.model", Pass: false, Message: oneLine(err)}
	}

	file, err := os.Open(cfg.KeywordsFile)
	if err != nil {
		return Check{Name: "wake.model", Pass: false, Message: err.Error()}
	}
	defer file.Close()

	keywords, err := sherpa.ParseKeywords(file)
	if err != nil {
		return Check{Name: "wake.model", Pass: false, Message: err.Error()}
	}
	return Check{Name: "wake.model", Pass: true, Message: fmt.Sprintf("keywords: %s", strings.Join(keywords, ", "))}
}

func checkOfflineEngine(ctx context.Context, cfg config.OfflineConfig) Check {
	switch cfg.Engine {
	case "vosk":
		return checkDial(ctx, "offline.vosk", cfg.Vosk.URL)
	default:
		err := sherpa.CheckFiles("offline.sherpa", map[string]string{
			"encoder": cfg.Sherpa.Encoder,
			"decoder": cfg.Sherpa.Decoder,
			"joiner":  cfg.Sherpa.Joiner,
			"tokens":  cfg.Sherpa.Tokens,
		})
		if err != nil {
			return Check{Name: "offline.sherpa", Pass: false, Message: oneLine(err)}
		}
		return Check{Name: "offline.sherpa", Pass: true, Message: fmt.Sprintf("%s model present", cfg.Sherpa.ModelType)}
	}
}

// checkConnectivity is informational: an unreachable probe only means the
// offline recognizer will be used.
func checkConnectivity(ctx context.Context, cfg config.ConnectivityConfig) Check {
	target := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if netprobe.IsReachable(ctx, cfg.Host, cfg.Port, timeout) {
		return Check{Name: "connectivity", Pass: true, Message: fmt.Sprintf("%s reachable; online recognition preferred", target)}
	}
	return Check{Name: "connectivity", Pass: true, Message: fmt.Sprintf("%s unreachable; offline recognition only", target)}
}

func checkOnlineCredentials(cfg config.OnlineConfig) Check {
	if strings.TrimSpace(os.Getenv(cfg.APIKeyEnv)) != "" {
		return Check{Name: "online", Pass: true, Message: fmt.Sprintf("%s is set", cfg.APIKeyEnv)}
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		return Check{Name: "online", Pass: true, Message: fmt.Sprintf("using %s without an API key", cfg.BaseURL)}
	}
	return Check{Name: "online", Pass: false, Message: fmt.Sprintf("%s is empty and online.base_url is unset", cfg.APIKeyEnv)}
}

// checkLLM asks the generate backend for its version.
func checkLLM(ctx context.Context, cfg config.LLMConfig) Check {
	client, err := llm.New(llm.Config{URL: cfg.URL, Model: cfg.Model, Timeout: probeTimeout}, nil)
	if err != nil {
		return Check{Name: "llm", Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	version, err := client.Version(ctx)
	if err != nil {
		return Check{Name: "llm", Pass: false, Message: fmt.Sprintf("%s: %v (replies will use the fallback)", cfg.URL, err)}
	}
	return Check{Name: "llm", Pass: true, Message: fmt.Sprintf("ollama %s at %s", version, cfg.URL)}
}

func checkMemory(cfg config.MemoryConfig) Check {
	path, err := cfg.ResolvePath()
	if err != nil {
		return Check{Name: "memory", Pass: false, Message: err.Error()}
	}
	store, err := memory.Load(path)
	if err != nil {
		return Check{Name: "memory", Pass: false, Message: err.Error()}
	}
	if store.Facts().Empty() {
		return Check{Name: "memory", Pass: true, Message: fmt.Sprintf("%s (empty)", path)}
	}
	return Check{Name: "memory", Pass: true, Message: path}
}

func checkSongLibrary(path string) Check {
	path = config.ExpandUserPath(path)
	if path == "" {
		return Check{Name: "commands.song_library", Pass: true, Message: "not configured; every song request is reported as not found"}
	}
	songs, err := command.LoadSongLibrary(path)
	if err != nil {
		return Check{Name: "commands.song_library", Pass: false, Message: err.Error()}
	}
	return Check{Name: "commands.song_library", Pass: true, Message: fmt.Sprintf("%d song(s) in %s", songs.Len(), path)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkDial opens a TCP connection to the host of rawURL.
func checkDial(ctx context.Context, name string, rawURL string) Check {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("invalid url %q", rawURL)}
	}
	port := parsed.Port()
	if port == "" {
		port = "80"
		if parsed.Scheme == "wss" || parsed.Scheme == "https" {
			port = "443"
		}
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("invalid port in %q", rawURL)}
	}
	if !netprobe.IsReachable(ctx, parsed.Hostname(), portNum, probeTimeout) {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not accepting connections", rawURL)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s reachable", rawURL)}
}

// oneLine flattens errors.Join output for the single-line report format.
func oneLine(err error) string {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return err.Error()
	}
	parts := make([]string, 0, len(joined.Unwrap()))
	for _, e := range joined.Unwrap() {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}
