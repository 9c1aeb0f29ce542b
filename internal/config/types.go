// Package config resolves, parses, validates, and defaults bingo configuration.
package config

// Config is the fully materialized runtime configuration used by bingo.
type Config struct {
	Assistant    AssistantConfig
	Audio        AudioConfig
	Wake         WakeConfig
	Listen       ListenConfig
	Connectivity ConnectivityConfig
	Online       OnlineConfig
	Offline      OfflineConfig
	LLM          LLMConfig
	Memory       MemoryConfig
	Commands     CommandsConfig
	Speech       SpeechConfig
	SpeechCmd    CommandConfig
	OpenCmd      CommandConfig
	Indicator    IndicatorConfig
	Debug        DebugConfig
}

// AssistantConfig holds the assistant persona and fixed spoken lines.
type AssistantConfig struct {
	Name     string
	Greeting string
	WakeAck  string
}

// AudioConfig controls input-source selection and the energy endpointer.
type AudioConfig struct {
	Input           string
	Fallback        string
	CalibrationMS   int
	EnergyThreshold float64
	EnergyRatio     float64
	PauseMS         int
	PrerollMS       int
}

// WakeConfig configures the keyword spotter and trigger debounce.
type WakeConfig struct {
	CooldownMS   int
	KeywordsFile string
	Encoder      string
	Decoder      string
	Joiner       string
	Tokens       string
	Threshold    float64
	Score        float64
	NumThreads   int
	FrameMS      int
}

// ListenConfig bounds command and follow-up captures.
type ListenConfig struct {
	CommandTimeoutMS int
	CommandPhraseMS  int
	FactTimeoutMS    int
	FactPhraseMS     int
}

// ConnectivityConfig is the reachability probe target.
type ConnectivityConfig struct {
	Host      string
	Port      int
	TimeoutMS int
}

// OnlineConfig controls the hosted transcription path.
type OnlineConfig struct {
	Enable    bool
	BaseURL   string
	Model     string
	Language  string
	APIKeyEnv string
	TimeoutMS int
}

// OfflineConfig selects and configures the local decoder.
type OfflineConfig struct {
	Engine     string
	SampleRate int
	Sherpa     SherpaConfig
	Vosk       VoskConfig
}

// SherpaConfig points at a streaming transducer model on disk.
type SherpaConfig struct {
	Encoder    string
	Decoder    string
	Joiner     string
	Tokens     string
	ModelType  string
	NumThreads int
}

// VoskConfig is the vosk-server websocket endpoint.
type VoskConfig struct {
	URL string
}

// LLMConfig controls the conversational fallback backend.
type LLMConfig struct {
	URL           string
	Model         string
	Temperature   float64
	MaxTokens     int
	TimeoutMS     int
	ContextChars  int
	FallbackReply string
}

// MemoryConfig locates the persisted fact file.
type MemoryConfig struct {
	Path string
}

// CommandsConfig holds the fuzzy command tables.
type CommandsConfig struct {
	SiteCutoff  float64
	SongCutoff  float64
	Sites       map[string]string
	SongLibrary string
}

// SpeechConfig controls how speech_cmd output is rendered.
type SpeechConfig struct {
	PCMSampleRate int
}

// IndicatorConfig controls audio cues and desktop state notifications.
type IndicatorConfig struct {
	SoundEnable    bool
	SoundWakeFile  string
	SoundErrorFile string
	NotifyEnable   bool
	NotifyAppName  string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
