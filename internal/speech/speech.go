// Package speech reads text aloud through a local command or a cloud TTS
// service. At most one utterance plays at a time; starting a new one or
// calling Stop interrupts the current one.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rbright/parley/internal/config"
)

var (
	ErrEmptyText     = errors.New("speech: text is empty")
	ErrMissingAPIKey = errors.New("speech: api key missing")
)

// Utterance is one request to speak. An empty Voice uses the configured voice.
type Utterance struct {
	Text  string
	Voice string
}

// Speaker plays utterances. Speak blocks until playback ends or is
// interrupted; an interrupted utterance returns nil.
type Speaker interface {
	Speak(ctx context.Context, u Utterance) error
	Stop()
	Busy() bool
}

// New builds the speaker selected by cfg.Backend.
func New(cfg config.TTSConfig, creds config.Credentials, logger *slog.Logger) (Speaker, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "speech", "backend", cfg.Backend)

	switch cfg.Backend {
	case "", "command":
		speaker, err := NewCommandSpeaker(cfg.Command.Argv, cfg.Voice, logger)
		if err != nil {
			return nil, err
		}
		return speaker, nil
	case "openai":
		if creds.OpenAIKey == "" {
			return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, config.EnvOpenAIKey)
		}
		httpClient, err := NewHTTPClient(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		return NewOpenAISpeaker(OpenAIOptions{
			APIKey:     creds.OpenAIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			Voice:      firstNonEmpty(cfg.Voice, cfg.OpenAI.Voice),
			HTTPClient: httpClient,
		}, NewPlayer(cfg.PlayerCmd), logger), nil
	case "elevenlabs":
		if creds.ElevenLabsKey == "" {
			return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, config.EnvElevenLabsKey)
		}
		dial, err := DialContext(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		return NewElevenLabsSpeaker(ElevenLabsOptions{
			APIKey:      creds.ElevenLabsKey,
			Endpoint:    cfg.ElevenLabs.Endpoint,
			VoiceID:     firstNonEmpty(cfg.Voice, cfg.ElevenLabs.VoiceID),
			ModelID:     cfg.ElevenLabs.ModelID,
			DialContext: dial,
		}, NewPlayer(cfg.PlayerCmd), logger), nil
	default:
		return nil, fmt.Errorf("unsupported tts backend %q", cfg.Backend)
	}
}

// utterances tracks the cancel func of the utterance currently playing.
type utterances struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

// begin interrupts whatever is playing and returns a context for the next
// utterance plus the func that retires it.
func (u *utterances) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	u.mu.Lock()
	if u.cancel != nil {
		u.cancel()
	}
	u.seq++
	seq := u.seq
	u.cancel = cancel
	u.mu.Unlock()

	return ctx, func() {
		u.mu.Lock()
		if u.seq == seq {
			u.cancel = nil
		}
		u.mu.Unlock()
		cancel()
	}
}

func (u *utterances) stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cancel != nil {
		u.cancel()
		u.cancel = nil
	}
}

func (u *utterances) busy() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cancel != nil
}

// settle maps an error caused by Stop or a newer utterance to nil. Errors
// from the caller's own context are kept.
func settle(parent, ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil && parent.Err() == nil {
		return nil
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
