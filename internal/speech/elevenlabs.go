package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const elevenLabsFormat = "mp3_44100_128"

type ElevenLabsOptions struct {
	APIKey      string
	Endpoint    string
	VoiceID     string
	ModelID     string
	DialContext DialFunc
}

// ElevenLabsSpeaker streams text over the ElevenLabs input-streaming
// websocket and plays the assembled MP3 once the final chunk arrives.
type ElevenLabsSpeaker struct {
	opts   ElevenLabsOptions
	dialer *websocket.Dialer
	player Player
	logger *slog.Logger
	active utterances
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenLabsMessage struct {
	Text                 string                   `json:"text"`
	TryTriggerGeneration bool                     `json:"try_trigger_generation,omitempty"`
	VoiceSettings        *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
	APIKey               string                   `json:"xi_api_key,omitempty"`
}

type elevenLabsChunk struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func NewElevenLabsSpeaker(opts ElevenLabsOptions, player Player, logger *slog.Logger) *ElevenLabsSpeaker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		NetDialContext:   opts.DialContext,
		Proxy:            http.ProxyFromEnvironment,
	}
	if opts.DialContext != nil {
		dialer.Proxy = nil
	}
	return &ElevenLabsSpeaker{opts: opts, dialer: dialer, player: player, logger: logger}
}

func (s *ElevenLabsSpeaker) Speak(parent context.Context, u Utterance) error {
	if strings.TrimSpace(u.Text) == "" {
		return ErrEmptyText
	}

	ctx, done := s.active.begin(parent)
	defer done()

	audio, err := s.stream(ctx, u.Text, firstNonEmpty(u.Voice, s.opts.VoiceID))
	if err = settle(parent, ctx, err); err != nil || ctx.Err() != nil {
		return err
	}
	s.logger.Debug("elevenlabs speech streamed", "bytes", len(audio))
	return settle(parent, ctx, s.player.Play(ctx, audio))
}

func (s *ElevenLabsSpeaker) streamURL(voiceID string) string {
	query := url.Values{}
	query.Set("model_id", s.opts.ModelID)
	query.Set("output_format", elevenLabsFormat)
	return fmt.Sprintf("%s/v1/text-to-speech/%s/stream-input?%s",
		strings.TrimRight(s.opts.Endpoint, "/"), url.PathEscape(voiceID), query.Encode())
}

func (s *ElevenLabsSpeaker) stream(ctx context.Context, text, voiceID string) ([]byte, error) {
	header := http.Header{}
	header.Set("xi-api-key", s.opts.APIKey)

	conn, resp, err := s.dialer.DialContext(ctx, s.streamURL(voiceID), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("elevenlabs dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("elevenlabs dial: %w", err)
	}
	defer conn.Close()
	stopClose := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopClose()

	messages := []elevenLabsMessage{
		{Text: " ", VoiceSettings: &elevenLabsVoiceSettings{Stability: 0.5, SimilarityBoost: 0.8}, APIKey: s.opts.APIKey},
		{Text: text + " ", TryTriggerGeneration: true},
		{Text: ""},
	}
	for _, msg := range messages {
		if err := conn.WriteJSON(msg); err != nil {
			return nil, fmt.Errorf("elevenlabs send: %w", err)
		}
	}

	var audio []byte
	for {
		var chunk elevenLabsChunk
		if err := conn.ReadJSON(&chunk); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(audio) > 0 {
				return audio, nil
			}
			return nil, fmt.Errorf("elevenlabs receive: %w", err)
		}
		if chunk.Error != "" {
			return nil, errors.New("elevenlabs: " + firstNonEmpty(chunk.Message, chunk.Error))
		}
		if chunk.Audio != "" {
			decoded, err := base64.StdEncoding.DecodeString(chunk.Audio)
			if err != nil {
				return nil, fmt.Errorf("elevenlabs audio chunk: %w", err)
			}
			audio = append(audio, decoded...)
		}
		if chunk.IsFinal {
			return audio, nil
		}
	}
}

func (s *ElevenLabsSpeaker) Stop()      { s.active.stop() }
func (s *ElevenLabsSpeaker) Busy() bool { return s.active.busy() }
