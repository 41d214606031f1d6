// Package config resolves, parses, validates, and defaults parley configuration.
package config

// Config is the fully materialized runtime configuration used by parley.
type Config struct {
	Relay      RelayConfig
	Clipboard  CommandConfig
	Chat       ChatConfig
	Paste      PasteConfig
	PasteCmd   CommandConfig
	Transcript TranscriptConfig
	TTS        TTSConfig
	Indicator  IndicatorConfig
	Audio      AudioConfig
	Log        LogConfig
}

// RelayConfig controls the loopback transcription relay.
type RelayConfig struct {
	Port            int
	MaxBodyBytes    int64
	ShutdownGraceMS int
	OpenBrowser     bool
	BrowserCmd      CommandConfig
}

// ChatConfig controls how the editor chat panel is brought forward before paste.
type ChatConfig struct {
	FocusCmd     CommandConfig
	FocusDelayMS int
}

// PasteConfig controls post-delivery paste behavior.
type PasteConfig struct {
	Enable   bool
	Backend  string
	Shortcut string
}

// TranscriptConfig controls normalization of submitted text.
type TranscriptConfig struct {
	Normalize           bool
	CapitalizeSentences bool
	TrailingSpace       bool
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Backend    string
	Command    CommandConfig
	Voice      string
	VoicesCmd  CommandConfig
	PlayerCmd  CommandConfig
	Proxy      string
	EnvFile    string
	OpenAI     OpenAITTSConfig
	ElevenLabs ElevenLabsConfig
}

// OpenAITTSConfig holds request options for the OpenAI speech endpoint.
type OpenAITTSConfig struct {
	BaseURL string
	Model   string
	Voice   string
}

// ElevenLabsConfig holds options for the ElevenLabs streaming endpoint.
type ElevenLabsConfig struct {
	Endpoint string
	VoiceID  string
	ModelID  string
}

// IndicatorConfig controls notification and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// AudioConfig names the preferred output sink for cues and diagnostics.
type AudioConfig struct {
	Output string
}

// LogConfig controls the runtime log sink.
type LogConfig struct {
	Level   string
	Console bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
