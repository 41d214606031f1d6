package indicator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueListening cueKind = iota + 1
	cueDelivered
	cueError
)

const (
	cueSampleRate = 16000
	cueGap        = 20 * time.Millisecond
	cueRamp       = 5 * time.Millisecond
)

type tone struct {
	hz     float64
	length time.Duration
	gain   float64
}

var cuePCM = map[cueKind][]int16{
	cueListening: synthesizeCue(tone{660, 60 * time.Millisecond, 0.16}, tone{880, 60 * time.Millisecond, 0.16}, tone{1320, 80 * time.Millisecond, 0.16}),
	cueDelivered: synthesizeCue(tone{988, 55 * time.Millisecond, 0.16}, tone{1319, 85 * time.Millisecond, 0.16}),
	cueError:     synthesizeCue(tone{440, 90 * time.Millisecond, 0.2}, tone{330, 140 * time.Millisecond, 0.2}),
}

func emitCue(ctx context.Context, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	samples := cuePCM[kind]
	if len(samples) == 0 {
		return nil
	}
	return playPCM(ctx, samples)
}

// playPCM plays mono 16 kHz samples on the default PulseAudio sink and
// cuts playback short when ctx ends.
func playPCM(ctx context.Context, samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("parley"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("parley cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback: %w", err)
	}
	defer stream.Close()

	drained := make(chan struct{})
	stream.Start()
	go func() {
		stream.Drain()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		stream.Stop()
		return ctx.Err()
	}
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue: %w", err)
	}
	return nil
}

// synthesizeCue renders tones back to back with a short silence between them.
func synthesizeCue(tones ...tone) []int16 {
	gap := make([]int16, sampleCount(cueGap))

	var pcm []int16
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(t)...)
	}
	return pcm
}

// synthesizeTone renders a sine with linear attack and release ramps.
func synthesizeTone(t tone) []int16 {
	n := sampleCount(t.length)
	if n == 0 || t.hz <= 0 || t.gain <= 0 {
		return nil
	}
	ramp := max(min(n/10, sampleCount(cueRamp)), 1)

	pcm := make([]int16, n)
	for i := range pcm {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-1-i)/float64(ramp))
		phase := 2 * math.Pi * t.hz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * t.gain * envelope * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
