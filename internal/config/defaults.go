package config

import "runtime"

// DefaultPort is the relay port used when none is configured.
const DefaultPort = 3847

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	speak, voices, browser := "espeak-ng --stdin", "espeak-ng --voices", "xdg-open"
	if runtime.GOOS == "darwin" {
		speak, voices, browser = "say -f -", "say -v ?", "open"
	}

	return Config{
		Relay: RelayConfig{
			Port:            DefaultPort,
			MaxBodyBytes:    1 << 20,
			ShutdownGraceMS: 2000,
			BrowserCmd:      command(browser),
		},
		Chat: ChatConfig{FocusDelayMS: 500},
		Paste: PasteConfig{
			Enable:   false,
			Backend:  "hypr",
			Shortcut: "CTRL,V",
		},
		Transcript: TranscriptConfig{
			Normalize:           true,
			CapitalizeSentences: true,
		},
		TTS: TTSConfig{
			Backend:   "command",
			Command:   command(speak),
			VoicesCmd: command(voices),
			OpenAI: OpenAITTSConfig{
				Model: "gpt-4o-mini-tts",
				Voice: "alloy",
			},
			ElevenLabs: ElevenLabsConfig{
				Endpoint: "wss://api.elevenlabs.io",
				ModelID:  "eleven_flash_v2_5",
			},
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "desktop",
			DesktopAppName: "parley",
			ErrorTimeoutMS: 1600,
		},
		Audio: AudioConfig{Output: "default"},
		Log:   LogConfig{Level: "info"},
	}
}

func command(raw string) CommandConfig {
	return CommandConfig{Raw: raw, Argv: mustParseArgv(raw)}
}
