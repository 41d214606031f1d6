package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"

	"github.com/rbright/parley/internal/config"
)

// Player plays an encoded MP3 clip and returns when it finishes or ctx ends.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// NewPlayer returns a command player when player_cmd is set, otherwise
// in-process playback.
func NewPlayer(cmd config.CommandConfig) Player {
	if len(cmd.Argv) > 0 {
		return CommandPlayer{Argv: cmd.Argv}
	}
	return &BeepPlayer{}
}

// CommandPlayer pipes the clip into a player such as `mpv --no-terminal -`.
type CommandPlayer struct {
	Argv []string
}

func (p CommandPlayer) Play(ctx context.Context, audio []byte) error {
	if len(p.Argv) == 0 {
		return fmt.Errorf("player argv cannot be empty")
	}
	cmd := exec.CommandContext(ctx, p.Argv[0], p.Argv[1:]...)
	cmd.Stdin = bytes.NewReader(audio)
	cmd.WaitDelay = 500 * time.Millisecond
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("player %s: %w", p.Argv[0], err)
	}
	return nil
}

// speakerRate is the device rate; clips at other rates are resampled.
const speakerRate = beep.SampleRate(44100)

// BeepPlayer decodes MP3 and plays it on the default output device.
type BeepPlayer struct {
	once    sync.Once
	initErr error
}

func (p *BeepPlayer) Play(ctx context.Context, audio []byte) error {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(audio)))
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	p.once.Do(func() {
		p.initErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	if p.initErr != nil {
		return fmt.Errorf("init speaker: %w", p.initErr)
	}

	var source beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		source = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(source, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
