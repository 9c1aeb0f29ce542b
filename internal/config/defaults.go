package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	speech := "espeak-ng --stdin"
	open := "xdg-open"

	return Config{
		Assistant: AssistantConfig{
			Name:     "Bingo",
			Greeting: "Hey! I am Bingo. Say Bingo to wake me up.",
			WakeAck:  "Bingo active",
		},
		Audio: AudioConfig{
			Input:           "default",
			Fallback:        "default",
			CalibrationMS:   2000,
			EnergyThreshold: 300,
			EnergyRatio:     1.2,
			PauseMS:         800,
			PrerollMS:       500,
		},
		Wake: WakeConfig{
			CooldownMS: 3000,
			Threshold:  0.25,
			Score:      1.0,
			NumThreads: 1,
			FrameMS:    32,
		},
		Listen: ListenConfig{
			CommandTimeoutMS: 5000,
			CommandPhraseMS:  5000,
			FactTimeoutMS:    8000,
			FactPhraseMS:     8000,
		},
		Connectivity: ConnectivityConfig{
			Host:      "8.8.8.8",
			Port:      53,
			TimeoutMS: 2000,
		},
		Online: OnlineConfig{
			Enable:    true,
			Model:     "whisper-1",
			Language:  "en",
			APIKeyEnv: "OPENAI_API_KEY",
			TimeoutMS: 15000,
		},
		Offline: OfflineConfig{
			Engine:     "sherpa",
			SampleRate: 16000,
			Sherpa: SherpaConfig{
				ModelType:  "zipformer2",
				NumThreads: 2,
			},
			Vosk: VoskConfig{URL: "ws://127.0.0.1:2700"},
		},
		LLM: LLMConfig{
			URL:           "http://localhost:11434",
			Model:         "llama3:8b",
			Temperature:   0.7,
			MaxTokens:     200,
			TimeoutMS:     60000,
			ContextChars:  2000,
			FallbackReply: "AI brain is currently offline.",
		},
		Commands: CommandsConfig{
			SiteCutoff: 0.55,
			SongCutoff: 0.5,
			Sites: map[string]string{
				"open google":    "https://www.google.com/",
				"open youtube":   "https://www.youtube.com/",
				"open linkedin":  "https://in.linkedin.com/",
				"open instagram": "https://www.instagram.com/",
			},
		},
		SpeechCmd: CommandConfig{Raw: speech, Argv: mustSplitArgv(speech)},
		OpenCmd:   CommandConfig{Raw: open, Argv: mustSplitArgv(open)},
		Indicator: IndicatorConfig{SoundEnable: true, NotifyAppName: "bingo"},
	}
}
