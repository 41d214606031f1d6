package speech

import (
	"bufio"
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/rbright/parley/internal/config"
)

// FallbackVoices is returned when the voice listing command is unavailable.
var FallbackVoices = []string{"Alex", "Samantha", "Victoria"}

var openAIVoices = []string{
	"alloy", "ash", "ballad", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer", "verse",
}

var localePattern = regexp.MustCompile(`^[a-z]{2,3}([_-][A-Za-z0-9]+)*$`)

// ListVoices returns the voices usable with the configured backend.
func ListVoices(ctx context.Context, cfg config.TTSConfig) []string {
	switch cfg.Backend {
	case "openai":
		return append([]string(nil), openAIVoices...)
	case "elevenlabs":
		if cfg.ElevenLabs.VoiceID == "" {
			return nil
		}
		return []string{cfg.ElevenLabs.VoiceID}
	}

	argv := cfg.VoicesCmd.Argv
	if len(argv) == 0 {
		return append([]string(nil), FallbackVoices...)
	}
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	if err != nil {
		return append([]string(nil), FallbackVoices...)
	}
	voices := parseVoices(string(out))
	if len(voices) == 0 {
		return append([]string(nil), FallbackVoices...)
	}
	return voices
}

// parseVoices reads either `say -v ?` lines ("Bad News  en_US  # ...") or the
// `espeak-ng --voices` table, detected by its "Pty" header.
func parseVoices(output string) []string {
	var (
		voices []string
		espeak bool
		seen   = map[string]bool{}
	)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for first := true; scanner.Scan(); first = false {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first && strings.HasPrefix(line, "Pty") {
			espeak = true
			continue
		}

		var name string
		if espeak {
			if fields := strings.Fields(line); len(fields) >= 4 {
				name = fields[3]
			}
		} else {
			name = sayVoiceName(line)
		}
		if name != "" && !seen[name] {
			seen[name] = true
			voices = append(voices, name)
		}
	}
	return voices
}

func sayVoiceName(line string) string {
	head, _, _ := strings.Cut(line, "#")
	fields := strings.Fields(head)
	for i := len(fields) - 1; i > 0; i-- {
		if localePattern.MatchString(fields[i]) {
			return strings.Join(fields[:i], " ")
		}
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}
