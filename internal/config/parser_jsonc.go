package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Relay      *jsoncRelay      `json:"relay"`
	Chat       *jsoncChat       `json:"chat"`
	Paste      *jsoncPaste      `json:"paste"`
	Transcript *jsoncTranscript `json:"transcript"`
	TTS        *jsoncTTS        `json:"tts"`
	Indicator  *jsoncIndicator  `json:"indicator"`
	Audio      *jsoncAudio      `json:"audio"`
	Log        *jsoncLog        `json:"log"`

	ClipboardCmd *string `json:"clipboard_cmd"`
	PasteCmd     *string `json:"paste_cmd"`
}

type jsoncRelay struct {
	Port            *int    `json:"port"`
	MaxBodyBytes    *int64  `json:"max_body_bytes"`
	ShutdownGraceMS *int    `json:"shutdown_grace_ms"`
	OpenBrowser     *bool   `json:"open_browser"`
	BrowserCmd      *string `json:"browser_cmd"`
}

type jsoncChat struct {
	FocusCmd     *string `json:"focus_cmd"`
	FocusDelayMS *int    `json:"focus_delay_ms"`
}

type jsoncPaste struct {
	Enable   *bool   `json:"enable"`
	Backend  *string `json:"backend"`
	Shortcut *string `json:"shortcut"`
}

type jsoncTranscript struct {
	Normalize           *bool `json:"normalize"`
	CapitalizeSentences *bool `json:"capitalize_sentences"`
	TrailingSpace       *bool `json:"trailing_space"`
}

type jsoncTTS struct {
	Backend    *string          `json:"backend"`
	Command    *string          `json:"command"`
	Voice      *string          `json:"voice"`
	VoicesCmd  *string          `json:"voices_cmd"`
	PlayerCmd  *string          `json:"player_cmd"`
	Proxy      *string          `json:"proxy"`
	EnvFile    *string          `json:"env_file"`
	OpenAI     *jsoncOpenAI     `json:"openai"`
	ElevenLabs *jsoncElevenLabs `json:"elevenlabs"`
}

type jsoncOpenAI struct {
	BaseURL *string `json:"base_url"`
	Model   *string `json:"model"`
	Voice   *string `json:"voice"`
}

type jsoncElevenLabs struct {
	Endpoint *string `json:"endpoint"`
	VoiceID  *string `json:"voice_id"`
	ModelID  *string `json:"model_id"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncAudio struct {
	Output *string `json:"output"`
}

type jsoncLog struct {
	Level   *string `json:"level"`
	Console *bool   `json:"console"`
}

func parseJSONC(normalized string, base Config) (Config, []Warning, error) {
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
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if r := payload.Relay; r != nil {
		setValue(&cfg.Relay.Port, r.Port)
		setValue(&cfg.Relay.MaxBodyBytes, r.MaxBodyBytes)
		setValue(&cfg.Relay.ShutdownGraceMS, r.ShutdownGraceMS)
		setValue(&cfg.Relay.OpenBrowser, r.OpenBrowser)
		if err := setCommand(&cfg.Relay.BrowserCmd, r.BrowserCmd, "relay.browser_cmd"); err != nil {
			return err
		}
	}

	if c := payload.Chat; c != nil {
		if err := setCommand(&cfg.Chat.FocusCmd, c.FocusCmd, "chat.focus_cmd"); err != nil {
			return err
		}
		setValue(&cfg.Chat.FocusDelayMS, c.FocusDelayMS)
	}

	if p := payload.Paste; p != nil {
		setValue(&cfg.Paste.Enable, p.Enable)
		setLower(&cfg.Paste.Backend, p.Backend)
		setTrimmed(&cfg.Paste.Shortcut, p.Shortcut)
	}

	if t := payload.Transcript; t != nil {
		setValue(&cfg.Transcript.Normalize, t.Normalize)
		setValue(&cfg.Transcript.CapitalizeSentences, t.CapitalizeSentences)
		setValue(&cfg.Transcript.TrailingSpace, t.TrailingSpace)
	}

	if t := payload.TTS; t != nil {
		setLower(&cfg.TTS.Backend, t.Backend)
		setTrimmed(&cfg.TTS.Voice, t.Voice)
		setTrimmed(&cfg.TTS.Proxy, t.Proxy)
		setTrimmed(&cfg.TTS.EnvFile, t.EnvFile)
		if err := setCommand(&cfg.TTS.Command, t.Command, "tts.command"); err != nil {
			return err
		}
		if err := setCommand(&cfg.TTS.VoicesCmd, t.VoicesCmd, "tts.voices_cmd"); err != nil {
			return err
		}
		if err := setCommand(&cfg.TTS.PlayerCmd, t.PlayerCmd, "tts.player_cmd"); err != nil {
			return err
		}
		if o := t.OpenAI; o != nil {
			setTrimmed(&cfg.TTS.OpenAI.BaseURL, o.BaseURL)
			setTrimmed(&cfg.TTS.OpenAI.Model, o.Model)
			setTrimmed(&cfg.TTS.OpenAI.Voice, o.Voice)
		}
		if e := t.ElevenLabs; e != nil {
			setTrimmed(&cfg.TTS.ElevenLabs.Endpoint, e.Endpoint)
			setTrimmed(&cfg.TTS.ElevenLabs.VoiceID, e.VoiceID)
			setTrimmed(&cfg.TTS.ElevenLabs.ModelID, e.ModelID)
		}
	}

	if i := payload.Indicator; i != nil {
		setValue(&cfg.Indicator.Enable, i.Enable)
		setLower(&cfg.Indicator.Backend, i.Backend)
		setTrimmed(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setValue(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setValue(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if a := payload.Audio; a != nil {
		setTrimmed(&cfg.Audio.Output, a.Output)
	}

	if l := payload.Log; l != nil {
		setLower(&cfg.Log.Level, l.Level)
		setValue(&cfg.Log.Console, l.Console)
	}

	if err := setCommand(&cfg.Clipboard, payload.ClipboardCmd, "clipboard_cmd"); err != nil {
		return err
	}
	return setCommand(&cfg.PasteCmd, payload.PasteCmd, "paste_cmd")
}

func setValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setLower(dst *string, src *string) {
	if src != nil {
		*dst = strings.ToLower(strings.TrimSpace(*src))
	}
}

func setCommand(dst *CommandConfig, raw *string, key string) error {
	if raw == nil {
		return nil
	}
	argv, err := parseArgv(*raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = CommandConfig{Raw: *raw, Argv: argv}
	return nil
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return errors.New("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var offset int64 = -1

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 {
		return err
	}

	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	prefix := content[:min(int(offset), len(content))]
	if prefix != "" {
		prefix = prefix[:len(prefix)-1]
	}
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndexByte(prefix, '\n')
	return line, col
}
