package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Voice      string
	HTTPClient *http.Client
}

// OpenAISpeaker synthesizes MP3 through the OpenAI speech endpoint.
type OpenAISpeaker struct {
	client openai.Client
	model  string
	voice  string
	player Player
	logger *slog.Logger
	active utterances
}

func NewOpenAISpeaker(opts OpenAIOptions, player Player, logger *slog.Logger) *OpenAISpeaker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAISpeaker{
		client: openai.NewClient(reqOpts...),
		model:  opts.Model,
		voice:  opts.Voice,
		player: player,
		logger: logger,
	}
}

func (s *OpenAISpeaker) Speak(parent context.Context, u Utterance) error {
	if strings.TrimSpace(u.Text) == "" {
		return ErrEmptyText
	}

	ctx, done := s.active.begin(parent)
	defer done()

	audio, err := s.synthesize(ctx, u.Text, firstNonEmpty(u.Voice, s.voice))
	if err = settle(parent, ctx, err); err != nil || ctx.Err() != nil {
		return err
	}
	s.logger.Debug("openai speech synthesized", "bytes", len(audio))
	return settle(parent, ctx, s.player.Play(ctx, audio))
}

func (s *OpenAISpeaker) synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          s.model,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read openai speech: %w", err)
	}
	return audio, nil
}

func (s *OpenAISpeaker) Stop()      { s.active.stop() }
func (s *OpenAISpeaker) Busy() bool { return s.active.busy() }
