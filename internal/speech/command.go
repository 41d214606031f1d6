package speech

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// CommandSpeaker pipes text to a local synthesizer such as `say -f -` or
// `espeak-ng --stdin`. Text never passes through a shell.
type CommandSpeaker struct {
	argv   []string
	voice  string
	logger *slog.Logger
	active utterances
}

func NewCommandSpeaker(argv []string, voice string, logger *slog.Logger) (*CommandSpeaker, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("tts command argv cannot be empty")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CommandSpeaker{argv: append([]string(nil), argv...), voice: voice, logger: logger}, nil
}

func (s *CommandSpeaker) Speak(parent context.Context, u Utterance) error {
	if strings.TrimSpace(u.Text) == "" {
		return ErrEmptyText
	}

	ctx, done := s.active.begin(parent)
	defer done()

	argv := s.commandFor(firstNonEmpty(u.Voice, s.voice))
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(u.Text)
	cmd.WaitDelay = 500 * time.Millisecond
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.logger.Debug("speaking", "command", argv[0], "chars", len(u.Text))
	err := cmd.Run()
	if err = settle(parent, ctx, err); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("%s failed: %w (%s)", argv[0], err, detail)
		}
		return fmt.Errorf("%s failed: %w", argv[0], err)
	}
	return nil
}

// commandFor inserts `-v VOICE` right after the program name; both say and
// espeak-ng accept it there.
func (s *CommandSpeaker) commandFor(voice string) []string {
	if voice == "" {
		return s.argv
	}
	argv := make([]string, 0, len(s.argv)+2)
	argv = append(argv, s.argv[0], "-v", voice)
	return append(argv, s.argv[1:]...)
}

func (s *CommandSpeaker) Stop()      { s.active.stop() }
func (s *CommandSpeaker) Busy() bool { return s.active.busy() }
