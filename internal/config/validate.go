package config

import (
	"fmt"
	"strings"
)

var (
	pasteBackends     = []string{"hypr", "keys"}
	ttsBackends       = []string{"command", "openai", "elevenlabs"}
	indicatorBackends = []string{"hypr", "desktop", "beeep"}
	logLevels         = []string{"debug", "info", "warn", "error"}
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Relay.Port < 0 || cfg.Relay.Port > 65535 {
		return nil, fmt.Errorf("relay.port must be between 0 and 65535")
	}
	if cfg.Relay.Port == 0 {
		warnings = append(warnings, Warning{Message: "relay.port=0 binds a random port; the page URL changes on every start"})
	}
	if cfg.Relay.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("relay.max_body_bytes must be > 0")
	}
	if cfg.Relay.ShutdownGraceMS < 0 {
		return nil, fmt.Errorf("relay.shutdown_grace_ms must be >= 0")
	}
	if cfg.Relay.OpenBrowser && len(cfg.Relay.BrowserCmd.Argv) == 0 {
		return nil, fmt.Errorf("relay.browser_cmd must not be empty when relay.open_browser=true")
	}
	if cfg.Chat.FocusDelayMS < 0 {
		return nil, fmt.Errorf("chat.focus_delay_ms must be >= 0")
	}

	if err := oneOf("paste.backend", cfg.Paste.Backend, pasteBackends); err != nil {
		return nil, err
	}
	if cfg.Paste.Enable && cfg.PasteCmd.Raw != "" && len(cfg.PasteCmd.Argv) == 0 {
		return nil, fmt.Errorf("paste_cmd is configured but empty")
	}
	if cfg.Paste.Enable && len(cfg.PasteCmd.Argv) == 0 && cfg.Paste.Backend == "hypr" && cfg.Paste.Shortcut == "" {
		return nil, fmt.Errorf("paste.shortcut must not be empty when paste.backend=hypr and paste_cmd is unset")
	}

	if err := oneOf("tts.backend", cfg.TTS.Backend, ttsBackends); err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.TTS.Backend) {
	case "command":
		if len(cfg.TTS.Command.Argv) == 0 {
			return nil, fmt.Errorf("tts.command must not be empty when tts.backend=command")
		}
	case "openai":
		if cfg.TTS.OpenAI.Model == "" || cfg.TTS.OpenAI.Voice == "" {
			return nil, fmt.Errorf("tts.openai.model and tts.openai.voice must not be empty")
		}
	case "elevenlabs":
		if cfg.TTS.ElevenLabs.VoiceID == "" {
			return nil, fmt.Errorf("tts.elevenlabs.voice_id must not be empty when tts.backend=elevenlabs")
		}
		if !strings.HasPrefix(cfg.TTS.ElevenLabs.Endpoint, "ws://") && !strings.HasPrefix(cfg.TTS.ElevenLabs.Endpoint, "wss://") {
			return nil, fmt.Errorf("tts.elevenlabs.endpoint must be a ws:// or wss:// URL")
		}
	}
	if cfg.TTS.Proxy != "" && !strings.Contains(cfg.TTS.Proxy, ":") {
		return nil, fmt.Errorf("tts.proxy must be host:port")
	}

	if err := oneOf("indicator.backend", cfg.Indicator.Backend, indicatorBackends); err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Indicator.Backend, "desktop") && cfg.Indicator.DesktopAppName == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if err := oneOf("log.level", cfg.Log.Level, logLevels); err != nil {
		return nil, err
	}

	if len(cfg.Clipboard.Argv) == 0 && cfg.Clipboard.Raw != "" && !strings.HasPrefix(strings.TrimSpace(cfg.Clipboard.Raw), "#") {
		return nil, fmt.Errorf("clipboard_cmd is configured but empty")
	}
	if len(cfg.Clipboard.Argv) == 0 && cfg.Paste.Enable && cfg.Paste.Backend == "hypr" {
		warnings = append(warnings, Warning{Message: "native clipboard with hypr paste may race the compositor; consider clipboard_cmd=\"wl-copy --trim-newline\""})
	}

	return warnings, nil
}

func oneOf(key, value string, allowed []string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	for _, candidate := range allowed {
		if value == candidate {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of: %s", key, strings.Join(allowed, ", "))
}
