package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/bingo/internal/assistant"
	"github.com/rbright/bingo/internal/audio"
	"github.com/rbright/bingo/internal/command"
	"github.com/rbright/bingo/internal/config"
	"github.com/rbright/bingo/internal/indicator"
	"github.com/rbright/bingo/internal/ipc"
	"github.com/rbright/bingo/internal/llm"
	"github.com/rbright/bingo/internal/logging"
	"github.com/rbright/bingo/internal/memory"
	"github.com/rbright/bingo/internal/netprobe"
	"github.com/rbright/bingo/internal/output"
	"github.com/rbright/bingo/internal/recognition"
	"github.com/rbright/bingo/internal/sherpa"
	"github.com/rbright/bingo/internal/vosk"
	"github.com/rbright/bingo/internal/wake"
	"github.com/rbright/bingo/internal/whisper"
)

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// commandRun owns the microphone for the lifetime of the daemon. Only ctx
// cancellation ends it cleanly; a dead audio stream exits non-zero.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	listener, err := ipc.Acquire(ctx, socketPath, statusTimeout, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	started := time.Now()
	rt, err := buildDaemon(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("startup failed", "error", err.Error())
		return 1
	}
	defer rt.close()

	device := rt.capture.Device().ID
	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, func(context.Context) (ipc.StatusReply, error) {
			status := rt.assistant.Status()
			return ipc.StatusReply{
				State:        string(status.State),
				Device:       device,
				LastTrigger:  status.LastTrigger,
				Dispatches:   status.Dispatches,
				LastAction:   string(status.LastAction),
				ContextTurns: status.ContextTurns,
				Uptime:       time.Since(started),
			}, nil
		})
	}()

	logger.Info("assistant ready",
		"device", device,
		"keywords", rt.spotter.Keywords(),
		"threshold", rt.threshold,
		"online", rt.online,
		"offline_engine", cfg.Offline.Engine,
	)

	runErr := rt.assistant.Run(ctx, rt.detector)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		logger.Warn("control server stopped with error", "error", serverErr.Error())
	}

	if runErr != nil && ctx.Err() == nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		logger.Error("assistant stopped", "error", runErr.Error())
		return 1
	}
	logger.Info("assistant stopped", "uptime_ms", time.Since(started).Milliseconds())
	return 0
}

type daemon struct {
	capture   *audio.Capture
	spotter   *sherpa.Spotter
	engine    *sherpa.Engine
	detector  *wake.Detector
	assistant *assistant.Assistant
	threshold float64
	online    bool
}

func (rt *daemon) close() {
	if rt.capture != nil {
		rt.capture.Close()
	}
	if rt.spotter != nil {
		rt.spotter.Close()
	}
	if rt.engine != nil {
		rt.engine.Close()
	}
}

// buildDaemon validates every model and data file before opening the
// microphone, then calibrates and assembles the assistant.
func buildDaemon(ctx context.Context, cfg config.Config, logger *slog.Logger) (rt *daemon, err error) {
	rt = &daemon{}
	defer func() {
		if err != nil {
			rt.close()
			rt = nil
		}
	}()

	memoryPath, err := cfg.Memory.ResolvePath()
	if err != nil {
		return rt, err
	}
	store, err := memory.Load(memoryPath)
	if err != nil {
		return rt, err
	}
	resolver, err := buildResolver(cfg.Commands)
	if err != nil {
		return rt, err
	}

	sampleRate := cfg.Offline.SampleRate
	rt.spotter, err = sherpa.NewSpotter(sherpa.SpotterConfig{
		Model: sherpa.Model{
			Encoder:    cfg.Wake.Encoder,
			Decoder:    cfg.Wake.Decoder,
			Joiner:     cfg.Wake.Joiner,
			Tokens:     cfg.Wake.Tokens,
			NumThreads: cfg.Wake.NumThreads,
		},
		KeywordsFile: cfg.Wake.KeywordsFile,
		SampleRate:   sampleRate,
		Threshold:    cfg.Wake.Threshold,
		Score:        cfg.Wake.Score,
	})
	if err != nil {
		return rt, fmt.Errorf("load wake model: %w", err)
	}

	offline, err := rt.buildOffline(cfg.Offline, ms(cfg.Audio.PauseMS), logger)
	if err != nil {
		return rt, err
	}
	online, err := buildOnline(cfg.Online, sampleRate)
	if err != nil {
		return rt, err
	}
	rt.online = online != nil

	responder, err := llm.New(llm.Config{
		URL:           cfg.LLM.URL,
		Model:         cfg.LLM.Model,
		Persona:       cfg.Assistant.Name,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		Timeout:       ms(cfg.LLM.TimeoutMS),
		FallbackReply: cfg.LLM.FallbackReply,
	}, logger)
	if err != nil {
		return rt, err
	}

	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return rt, err
	}
	if selection.Warning != "" {
		logger.Warn("audio device fallback", "warning", selection.Warning)
	}

	frameBytes := audio.FrameBytes(sampleRate, ms(cfg.Wake.FrameMS))
	rt.capture, err = audio.StartCapture(ctx, selection.Device, audio.CaptureConfig{
		SampleRate: sampleRate,
		FrameBytes: frameBytes,
	})
	if err != nil {
		return rt, err
	}
	frameDuration := audio.FrameDuration(sampleRate, frameBytes)

	rt.threshold, err = audio.Calibrate(ctx, rt.capture, ms(cfg.Audio.CalibrationMS), frameDuration, cfg.Audio.EnergyThreshold, cfg.Audio.EnergyRatio)
	if err != nil {
		return rt, fmt.Errorf("calibrate microphone: %w", err)
	}

	selector := &recognition.Selector{
		Frames: rt.capture,
		Probe: netprobe.Target{
			Host:    cfg.Connectivity.Host,
			Port:    cfg.Connectivity.Port,
			Timeout: ms(cfg.Connectivity.TimeoutMS),
		},
		Offline: offline,
		Endpointing: recognition.Endpointing{
			Threshold:     rt.threshold,
			Pause:         ms(cfg.Audio.PauseMS),
			Preroll:       ms(cfg.Audio.PrerollMS),
			FrameDuration: frameDuration,
		},
		FrameBytes: frameBytes,
		Logger:     logger,
	}
	if online != nil {
		selector.Online = online
	}
	if cfg.Debug.EnableAudioDump {
		selector.OnUtterance = func(pcm []byte) {
			path, err := dumpUtterance(pcm, sampleRate, time.Now())
			if err != nil {
				logger.Warn("audio dump failed", "error", err.Error())
				return
			}
			logger.Debug("audio dump written", "path", path)
		}
	}

	cues := indicator.New(cfg.Indicator, logger)
	rt.assistant, err = assistant.New(assistant.Config{
		Greeting: cfg.Assistant.Greeting,
		WakeAck:  cfg.Assistant.WakeAck,
		Command:  assistant.Limits{Timeout: ms(cfg.Listen.CommandTimeoutMS), PhraseLimit: ms(cfg.Listen.CommandPhraseMS)},
		Fact:     assistant.Limits{Timeout: ms(cfg.Listen.FactTimeoutMS), PhraseLimit: ms(cfg.Listen.FactPhraseMS)},
	}, assistant.Deps{
		Listener:  selector,
		Speaker:   output.NewSpeaker(cfg.SpeechCmd.Argv, cfg.Speech.PCMSampleRate, logger),
		Opener:    output.NewOpener(cfg.OpenCmd.Argv),
		Responder: responder,
		Cues:      cues,
		Observer:  cues,
		Resolver:  resolver,
		Memory:    store,
		Context:   memory.NewContext(cfg.LLM.ContextChars),
		Frames:    rt.capture,
		Logger:    logger,
	})
	if err != nil {
		return rt, err
	}

	rt.detector = wake.NewDetector(rt.capture, rt.spotter, ms(cfg.Wake.CooldownMS), rt.assistant.HandleWake, wake.WithLogger(logger))
	return rt, nil
}

func buildResolver(cfg config.CommandsConfig) (*command.Resolver, error) {
	var songs command.Table
	if path := config.ExpandUserPath(cfg.SongLibrary); path != "" {
		loaded, err := command.LoadSongLibrary(path)
		if err != nil {
			return nil, err
		}
		songs = loaded
	}
	return command.NewResolver(command.Options{
		Sites:      command.NewTable(cfg.Sites),
		Songs:      songs,
		SiteCutoff: cfg.SiteCutoff,
		SongCutoff: cfg.SongCutoff,
	}), nil
}

// buildOnline returns nil when the hosted path is disabled or has no credentials.
func buildOnline(cfg config.OnlineConfig, sampleRate int) (*whisper.Client, error) {
	if !cfg.Enable {
		return nil, nil
	}
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	}
	if apiKey == "" && cfg.BaseURL == "" {
		return nil, nil
	}
	client, err := whisper.New(whisper.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     apiKey,
		Model:      cfg.Model,
		Language:   cfg.Language,
		SampleRate: sampleRate,
		Timeout:    ms(cfg.TimeoutMS),
	})
	if err != nil {
		return nil, fmt.Errorf("online recognizer: %w", err)
	}
	return client, nil
}

func (rt *daemon) buildOffline(cfg config.OfflineConfig, pause time.Duration, logger *slog.Logger) (recognition.Offline, error) {
	switch cfg.Engine {
	case "vosk":
		return &vosk.Engine{URL: cfg.Vosk.URL, SampleRate: cfg.SampleRate, Logger: logger}, nil
	case "sherpa":
		engine, err := sherpa.NewEngine(sherpa.EngineConfig{
			Model: sherpa.Model{
				Encoder:    cfg.Sherpa.Encoder,
				Decoder:    cfg.Sherpa.Decoder,
				Joiner:     cfg.Sherpa.Joiner,
				Tokens:     cfg.Sherpa.Tokens,
				ModelType:  cfg.Sherpa.ModelType,
				NumThreads: cfg.Sherpa.NumThreads,
			},
			SampleRate:      cfg.SampleRate,
			TrailingSilence: float32(pause.Seconds()),
		})
		if err != nil {
			return nil, fmt.Errorf("load offline model: %w", err)
		}
		rt.engine = engine
		return engine, nil
	default:
		return nil, fmt.Errorf("unsupported offline engine %q", cfg.Engine)
	}
}

func dumpUtterance(pcm []byte, sampleRate int, now time.Time) (string, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(stateDir, "dumps")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create dump dir: %w", err)
	}

	path := filepath.Join(dir, "utterance-"+now.UTC().Format("20060102T150405.000")+".wav")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("create dump file: %w", err)
	}
	if err := audio.WriteWAV(f, pcm, sampleRate, 1); err != nil {
		_ = f.Close()
		return "", errors.Join(fmt.Errorf("write dump %q: %w", path, err), os.Remove(path))
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close dump %q: %w", path, err)
	}
	return path, nil
}
