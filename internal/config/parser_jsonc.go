package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Assistant    *jsoncAssistant    `json:"assistant"`
	Audio        *jsoncAudio        `json:"audio"`
	Wake         *jsoncWake         `json:"wake"`
	Listen       *jsoncListen       `json:"listen"`
	Connectivity *jsoncConnectivity `json:"connectivity"`
	Online       *jsoncOnline       `json:"online"`
	Offline      *jsoncOffline      `json:"offline"`
	LLM          *jsoncLLM          `json:"llm"`
	Memory       *jsoncMemory       `json:"memory"`
	Commands     *jsoncCommands     `json:"commands"`
	Speech       *jsoncSpeech       `json:"speech"`
	Indicator    *jsoncIndicator    `json:"indicator"`
	Debug        *jsoncDebug        `json:"debug"`

	SpeechCmd *string `json:"speech_cmd"`
	OpenCmd   *string `json:"open_cmd"`
}

type jsoncAssistant struct {
	Name     *string `json:"name"`
	Greeting *string `json:"greeting"`
	WakeAck  *string `json:"wake_ack"`
}

type jsoncAudio struct {
	Input           *string  `json:"input"`
	Fallback        *string  `json:"fallback"`
	CalibrationMS   *int     `json:"calibration_ms"`
	EnergyThreshold *float64 `json:"energy_threshold"`
	EnergyRatio     *float64 `json:"energy_ratio"`
	PauseMS         *int     `json:"pause_ms"`
	PrerollMS       *int     `json:"preroll_ms"`
}

type jsoncWake struct {
	CooldownMS   *int     `json:"cooldown_ms"`
	KeywordsFile *string  `json:"keywords_file"`
	Encoder      *string  `json:"encoder"`
	Decoder      *string  `json:"decoder"`
	Joiner       *string  `json:"joiner"`
	Tokens       *string  `json:"tokens"`
	Threshold    *float64 `json:"threshold"`
	Score        *float64 `json:"score"`
	NumThreads   *int     `json:"num_threads"`
	FrameMS      *int     `json:"frame_ms"`
}

type jsoncListen struct {
	CommandTimeoutMS *int `json:"command_timeout_ms"`
	CommandPhraseMS  *int `json:"command_phrase_ms"`
	FactTimeoutMS    *int `json:"fact_timeout_ms"`
	FactPhraseMS     *int `json:"fact_phrase_ms"`
}

type jsoncConnectivity struct {
	Host      *string `json:"host"`
	Port      *int    `json:"port"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncOnline struct {
	Enable    *bool   `json:"enable"`
	BaseURL   *string `json:"base_url"`
	Model     *string `json:"model"`
	Language  *string `json:"language"`
	APIKeyEnv *string `json:"api_key_env"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncOffline struct {
	Engine     *string      `json:"engine"`
	SampleRate *int         `json:"sample_rate"`
	Sherpa     *jsoncSherpa `json:"sherpa"`
	Vosk       *jsoncVosk   `json:"vosk"`
}

type jsoncSherpa struct {
	Encoder    *string `json:"encoder"`
	Decoder    *string `json:"decoder"`
	Joiner     *string `json:"joiner"`
	Tokens     *string `json:"tokens"`
	ModelType  *string `json:"model_type"`
	NumThreads *int    `json:"num_threads"`
}

type jsoncVosk struct {
	URL *string `json:"url"`
}

type jsoncLLM struct {
	URL           *string  `json:"url"`
	Model         *string  `json:"model"`
	Temperature   *float64 `json:"temperature"`
	MaxTokens     *int     `json:"max_tokens"`
	TimeoutMS     *int     `json:"timeout_ms"`
	ContextChars  *int     `json:"context_chars"`
	FallbackReply *string  `json:"fallback_reply"`
}

type jsoncMemory struct {
	Path *string `json:"path"`
}

type jsoncCommands struct {
	SiteCutoff  *float64          `json:"site_cutoff"`
	SongCutoff  *float64          `json:"song_cutoff"`
	Sites       map[string]string `json:"sites"`
	SongLibrary *string           `json:"song_library"`
}

type jsoncSpeech struct {
	PCMSampleRate *int `json:"pcm_sample_rate"`
}

type jsoncIndicator struct {
	SoundEnable    *bool   `json:"sound_enable"`
	SoundWakeFile  *string `json:"sound_wake_file"`
	SoundErrorFile *string `json:"sound_error_file"`
	NotifyEnable   *bool   `json:"notify_enable"`
	NotifyAppName  *string `json:"notify_app_name"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if a := payload.Assistant; a != nil {
		setTrimmed(&cfg.Assistant.Name, a.Name)
		setTrimmed(&cfg.Assistant.Greeting, a.Greeting)
		setTrimmed(&cfg.Assistant.WakeAck, a.WakeAck)
	}

	if a := payload.Audio; a != nil {
		set(&cfg.Audio.Input, a.Input)
		set(&cfg.Audio.Fallback, a.Fallback)
		set(&cfg.Audio.CalibrationMS, a.CalibrationMS)
		set(&cfg.Audio.EnergyThreshold, a.EnergyThreshold)
		set(&cfg.Audio.EnergyRatio, a.EnergyRatio)
		set(&cfg.Audio.PauseMS, a.PauseMS)
		set(&cfg.Audio.PrerollMS, a.PrerollMS)
	}

	if w := payload.Wake; w != nil {
		set(&cfg.Wake.CooldownMS, w.CooldownMS)
		setPath(&cfg.Wake.KeywordsFile, w.KeywordsFile)
		setPath(&cfg.Wake.Encoder, w.Encoder)
		setPath(&cfg.Wake.Decoder, w.Decoder)
		setPath(&cfg.Wake.Joiner, w.Joiner)
		setPath(&cfg.Wake.Tokens, w.Tokens)
		set(&cfg.Wake.Threshold, w.Threshold)
		set(&cfg.Wake.Score, w.Score)
		set(&cfg.Wake.NumThreads, w.NumThreads)
		set(&cfg.Wake.FrameMS, w.FrameMS)
	}

	if l := payload.Listen; l != nil {
		set(&cfg.Listen.CommandTimeoutMS, l.CommandTimeoutMS)
		set(&cfg.Listen.CommandPhraseMS, l.CommandPhraseMS)
		set(&cfg.Listen.FactTimeoutMS, l.FactTimeoutMS)
		set(&cfg.Listen.FactPhraseMS, l.FactPhraseMS)
	}

	if c := payload.Connectivity; c != nil {
		setTrimmed(&cfg.Connectivity.Host, c.Host)
		set(&cfg.Connectivity.Port, c.Port)
		set(&cfg.Connectivity.TimeoutMS, c.TimeoutMS)
	}

	if o := payload.Online; o != nil {
		set(&cfg.Online.Enable, o.Enable)
		setTrimmed(&cfg.Online.BaseURL, o.BaseURL)
		setTrimmed(&cfg.Online.Model, o.Model)
		setTrimmed(&cfg.Online.Language, o.Language)
		setTrimmed(&cfg.Online.APIKeyEnv, o.APIKeyEnv)
		set(&cfg.Online.TimeoutMS, o.TimeoutMS)
	}

	if o := payload.Offline; o != nil {
		if o.Engine != nil {
			cfg.Offline.Engine = strings.ToLower(strings.TrimSpace(*o.Engine))
		}
		set(&cfg.Offline.SampleRate, o.SampleRate)
		if s := o.Sherpa; s != nil {
			setPath(&cfg.Offline.Sherpa.Encoder, s.Encoder)
			setPath(&cfg.Offline.Sherpa.Decoder, s.Decoder)
			setPath(&cfg.Offline.Sherpa.Joiner, s.Joiner)
			setPath(&cfg.Offline.Sherpa.Tokens, s.Tokens)
			setTrimmed(&cfg.Offline.Sherpa.ModelType, s.ModelType)
			set(&cfg.Offline.Sherpa.NumThreads, s.NumThreads)
		}
		if o.Vosk != nil {
			setTrimmed(&cfg.Offline.Vosk.URL, o.Vosk.URL)
		}
	}

	if l := payload.LLM; l != nil {
		setTrimmed(&cfg.LLM.URL, l.URL)
		setTrimmed(&cfg.LLM.Model, l.Model)
		set(&cfg.LLM.Temperature, l.Temperature)
		set(&cfg.LLM.MaxTokens, l.MaxTokens)
		set(&cfg.LLM.TimeoutMS, l.TimeoutMS)
		set(&cfg.LLM.ContextChars, l.ContextChars)
		setTrimmed(&cfg.LLM.FallbackReply, l.FallbackReply)
	}

	if payload.Memory != nil {
		setPath(&cfg.Memory.Path, payload.Memory.Path)
	}

	if c := payload.Commands; c != nil {
		set(&cfg.Commands.SiteCutoff, c.SiteCutoff)
		set(&cfg.Commands.SongCutoff, c.SongCutoff)
		setPath(&cfg.Commands.SongLibrary, c.SongLibrary)
		if c.Sites != nil {
			sites := make(map[string]string, len(c.Sites))
			for phrase, url := range c.Sites {
				phrase = strings.ToLower(strings.Join(strings.Fields(phrase), " "))
				if phrase == "" {
					return nil, fmt.Errorf("commands.sites contains an empty phrase")
				}
				if _, dup := sites[phrase]; dup {
					warnings = append(warnings, Warning{Message: fmt.Sprintf("commands.sites phrase %q defined more than once", phrase)})
				}
				sites[phrase] = strings.TrimSpace(url)
			}
			cfg.Commands.Sites = sites
		}
	}

	if payload.Speech != nil {
		set(&cfg.Speech.PCMSampleRate, payload.Speech.PCMSampleRate)
	}

	if payload.SpeechCmd != nil {
		command, err := parseCommand("speech_cmd", *payload.SpeechCmd, PlaceholderText)
		if err != nil {
			return nil, err
		}
		cfg.SpeechCmd = command
	}

	if payload.OpenCmd != nil {
		command, err := parseCommand("open_cmd", *payload.OpenCmd, PlaceholderURL)
		if err != nil {
			return nil, err
		}
		cfg.OpenCmd = command
	}

	if i := payload.Indicator; i != nil {
		set(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setPath(&cfg.Indicator.SoundWakeFile, i.SoundWakeFile)
		setPath(&cfg.Indicator.SoundErrorFile, i.SoundErrorFile)
		set(&cfg.Indicator.NotifyEnable, i.NotifyEnable)
		setTrimmed(&cfg.Indicator.NotifyAppName, i.NotifyAppName)
	}

	if payload.Debug != nil {
		set(&cfg.Debug.EnableAudioDump, payload.Debug.AudioDump)
	}

	return warnings, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setPath(dst *string, src *string) {
	if src != nil {
		*dst = ExpandUserPath(*src)
	}
}

func parseCommand(key string, raw string, placeholder string) (CommandConfig, error) {
	argv, err := splitArgv(raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	if err := checkPlaceholders(argv, placeholder); err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
