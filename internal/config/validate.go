package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Assistant.Name) == "" {
		return nil, fmt.Errorf("assistant.name must not be empty")
	}

	if cfg.Audio.CalibrationMS < 0 {
		return nil, fmt.Errorf("audio.calibration_ms must be >= 0")
	}
	if cfg.Audio.EnergyThreshold <= 0 {
		return nil, fmt.Errorf("audio.energy_threshold must be > 0")
	}
	if cfg.Audio.EnergyRatio < 1 {
		return nil, fmt.Errorf("audio.energy_ratio must be >= 1")
	}
	if cfg.Audio.PauseMS <= 0 {
		return nil, fmt.Errorf("audio.pause_ms must be > 0")
	}
	if cfg.Audio.PrerollMS < 0 {
		return nil, fmt.Errorf("audio.preroll_ms must be >= 0")
	}

	if cfg.Wake.CooldownMS < 0 {
		return nil, fmt.Errorf("wake.cooldown_ms must be >= 0")
	}
	if cfg.Wake.FrameMS <= 0 {
		return nil, fmt.Errorf("wake.frame_ms must be > 0")
	}
	if cfg.Wake.NumThreads <= 0 {
		return nil, fmt.Errorf("wake.num_threads must be > 0")
	}

	for key, value := range map[string]int{
		"listen.command_timeout_ms": cfg.Listen.CommandTimeoutMS,
		"listen.command_phrase_ms":  cfg.Listen.CommandPhraseMS,
		"listen.fact_timeout_ms":    cfg.Listen.FactTimeoutMS,
		"listen.fact_phrase_ms":     cfg.Listen.FactPhraseMS,
		"connectivity.timeout_ms":   cfg.Connectivity.TimeoutMS,
		"llm.timeout_ms":            cfg.LLM.TimeoutMS,
		"llm.context_chars":         cfg.LLM.ContextChars,
		"llm.max_tokens":            cfg.LLM.MaxTokens,
	} {
		if value <= 0 {
			return nil, fmt.Errorf("%s must be > 0", key)
		}
	}

	if strings.TrimSpace(cfg.Connectivity.Host) == "" {
		return nil, fmt.Errorf("connectivity.host must not be empty")
	}
	if cfg.Connectivity.Port <= 0 || cfg.Connectivity.Port > 65535 {
		return nil, fmt.Errorf("connectivity.port must be in 1..65535")
	}

	if cfg.Online.Enable {
		if cfg.Online.Model == "" {
			return nil, fmt.Errorf("online.model must not be empty when online.enable=true")
		}
		if cfg.Online.TimeoutMS <= 0 {
			return nil, fmt.Errorf("online.timeout_ms must be > 0")
		}
		if cfg.Online.BaseURL != "" {
			if err := validateURL("online.base_url", cfg.Online.BaseURL, "http", "https"); err != nil {
				return nil, err
			}
		}
	}

	if cfg.Offline.SampleRate <= 0 {
		return nil, fmt.Errorf("offline.sample_rate must be > 0")
	}
	switch cfg.Offline.Engine {
	case "sherpa":
	case "vosk":
		if err := validateURL("offline.vosk.url", cfg.Offline.Vosk.URL, "ws", "wss"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("offline.engine must be one of: sherpa, vosk")
	}

	if err := validateURL("llm.url", cfg.LLM.URL, "http", "https"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.LLM.Model) == "" {
		return nil, fmt.Errorf("llm.model must not be empty")
	}
	if cfg.LLM.Temperature < 0 {
		return nil, fmt.Errorf("llm.temperature must be >= 0")
	}
	if strings.TrimSpace(cfg.LLM.FallbackReply) == "" {
		return nil, fmt.Errorf("llm.fallback_reply must not be empty")
	}

	for key, cutoff := range map[string]float64{
		"commands.site_cutoff": cfg.Commands.SiteCutoff,
		"commands.song_cutoff": cfg.Commands.SongCutoff,
	} {
		if cutoff < 0 || cutoff > 1 {
			return nil, fmt.Errorf("%s must be in [0, 1]", key)
		}
	}
	for phrase, target := range cfg.Commands.Sites {
		if err := validateURL(fmt.Sprintf("commands.sites[%q]", phrase), target, "http", "https"); err != nil {
			return nil, err
		}
	}

	if len(cfg.SpeechCmd.Argv) == 0 {
		return nil, fmt.Errorf("speech_cmd must not be empty")
	}
	if len(cfg.OpenCmd.Argv) == 0 {
		return nil, fmt.Errorf("open_cmd must not be empty")
	}
	if cfg.Speech.PCMSampleRate < 0 {
		return nil, fmt.Errorf("speech.pcm_sample_rate must be >= 0")
	}

	if cfg.Listen.FactPhraseMS < cfg.Listen.CommandPhraseMS {
		warnings = append(warnings, Warning{Message: "listen.fact_phrase_ms is shorter than listen.command_phrase_ms; long facts may be cut off"})
	}
	if cfg.Online.Enable && cfg.Connectivity.TimeoutMS > cfg.Listen.CommandTimeoutMS {
		warnings = append(warnings, Warning{Message: "connectivity.timeout_ms exceeds listen.command_timeout_ms"})
	}

	return warnings, nil
}

func validateURL(key string, raw string, schemes ...string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", key)
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme {
			return nil
		}
	}
	return fmt.Errorf("%s must use scheme %s", key, strings.Join(schemes, " or "))
}
