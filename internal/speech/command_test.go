package speech

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/parley/internal/config"
	"github.com/stretchr/testify/require"
)

func TestCommandSpeakerWritesTextOnStdin(t *testing.T) {
	dir := t.TempDir()
	stdinFile := filepath.Join(dir, "stdin.txt")
	argsFile := filepath.Join(dir, "args.txt")
	script := writeScript(t, "say", `printf '%s\n' "$@" > '`+argsFile+`'
cat > '`+stdinFile+`'`)

	speaker, err := NewCommandSpeaker([]string{script, "-f", "-"}, "", nil)
	require.NoError(t, err)
	require.NoError(t, speaker.Speak(context.Background(), Utterance{Text: "it's done; rm -rf $HOME"}))

	got, err := os.ReadFile(stdinFile)
	require.NoError(t, err)
	require.Equal(t, "it's done; rm -rf $HOME", string(got))

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "-f\n-\n", string(args))
	require.False(t, speaker.Busy())
}

func TestCommandSpeakerInsertsVoice(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	script := writeScript(t, "say", `printf '%s\n' "$@" > '`+argsFile+`'
cat > /dev/null`)

	speaker, err := NewCommandSpeaker([]string{script, "-f", "-"}, "Samantha", nil)
	require.NoError(t, err)

	require.NoError(t, speaker.Speak(context.Background(), Utterance{Text: "hi"}))
	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "-v\nSamantha\n-f\n-\n", string(args))

	require.NoError(t, speaker.Speak(context.Background(), Utterance{Text: "hi", Voice: "Bad News"}))
	args, err = os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "-v\nBad News\n-f\n-\n", string(args))
}

func TestCommandSpeakerRejectsEmptyText(t *testing.T) {
	speaker, err := NewCommandSpeaker([]string{"true"}, "", nil)
	require.NoError(t, err)
	require.ErrorIs(t, speaker.Speak(context.Background(), Utterance{Text: "  "}), ErrEmptyText)
}

func TestNewCommandSpeakerRequiresArgv(t *testing.T) {
	_, err := NewCommandSpeaker(nil, "", nil)
	require.ErrorContains(t, err, "argv cannot be empty")

	speaker, err := New(config.TTSConfig{Backend: "command"}, config.Credentials{}, nil)
	require.Error(t, err)
	require.Nil(t, speaker)
}

func TestCommandSpeakerReportsFailure(t *testing.T) {
	script := writeScript(t, "say", `echo 'voice not found' >&2
exit 1`)

	speaker, err := NewCommandSpeaker([]string{script}, "", nil)
	require.NoError(t, err)

	err = speaker.Speak(context.Background(), Utterance{Text: "hello"})
	require.ErrorContains(t, err, "voice not found")
}

func TestCommandSpeakerStopInterrupts(t *testing.T) {
	script := writeScript(t, "say", `exec sleep 10`)

	speaker, err := NewCommandSpeaker([]string{script}, "", nil)
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() { result <- speaker.Speak(context.Background(), Utterance{Text: "long answer"}) }()

	require.Eventually(t, speaker.Busy, 2*time.Second, 10*time.Millisecond)
	speaker.Stop()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("speak did not return after stop")
	}
	require.False(t, speaker.Busy())
	speaker.Stop()
}

func TestCommandSpeakerNewUtteranceInterruptsPrevious(t *testing.T) {
	script := writeScript(t, "say", `exec sleep 10`)

	speaker, err := NewCommandSpeaker([]string{script}, "", nil)
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() { first <- speaker.Speak(context.Background(), Utterance{Text: "first"}) }()
	require.Eventually(t, speaker.Busy, 2*time.Second, 10*time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- speaker.Speak(context.Background(), Utterance{Text: "second"}) }()

	select {
	case err := <-first:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("first utterance was not interrupted")
	}

	require.True(t, speaker.Busy())
	speaker.Stop()
	require.NoError(t, <-second)
}

func TestCommandSpeakerKeepsCallerCancellation(t *testing.T) {
	script := writeScript(t, "say", `exec sleep 10`)

	speaker, err := NewCommandSpeaker([]string{script}, "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, speaker.Speak(ctx, Utterance{Text: "slow"}))
}

func writeScript(t *testing.T, name string, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
