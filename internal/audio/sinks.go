// Package audio inspects PulseAudio output sinks for the devices and doctor
// commands.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Sink is one PulseAudio output device.
type Sink struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether audio sent to the sink would be heard.
func (s Sink) Usable() bool {
	return s.Available && !s.Muted
}

// Selection is the sink that TTS and cues will reach, plus a warning when the
// preferred sink could not be used as-is.
type Selection struct {
	Sink     Sink
	Warning  string
	Fallback bool
}

// ListSinks returns every sink known to the PulseAudio (or pipewire-pulse) server.
func ListSinks(_ context.Context) ([]Sink, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("parley"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}

	var infos pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}

	sinks := make([]Sink, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		sinks = append(sinks, Sink{
			ID:          info.SinkName,
			Description: info.Device,
			State:       stateName(info.State),
			Available:   activePortAvailable(info.ActivePortName, portAvailability(info)),
			Muted:       info.Mute,
			Default:     info.SinkName == defaultSink.ID(),
		})
	}
	return sinks, nil
}

// SelectSink resolves the audio.output preference against the live sinks.
func SelectSink(ctx context.Context, preferred string) (Selection, error) {
	sinks, err := ListSinks(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectSink(sinks, preferred)
}

// selectSink matches preferred ("default" or a case-insensitive substring of
// the sink name or description). An unusable match falls back to a usable
// default sink.
func selectSink(sinks []Sink, preferred string) (Selection, error) {
	if len(sinks) == 0 {
		return Selection{}, errors.New("no audio output sinks found")
	}

	term := strings.ToLower(strings.TrimSpace(preferred))
	var defaultSink, match *Sink
	for i := range sinks {
		if sinks[i].Default && defaultSink == nil {
			defaultSink = &sinks[i]
		}
		if match == nil && term != "" && term != "default" && sinkMatches(sinks[i], term) {
			match = &sinks[i]
		}
	}

	if term == "" || term == "default" {
		if defaultSink == nil {
			return Selection{}, errors.New("default audio sink is unavailable")
		}
		match = defaultSink
	}
	if match == nil {
		return Selection{}, fmt.Errorf("audio.output %q did not match any sink", preferred)
	}
	if match.Usable() {
		return Selection{Sink: *match}, nil
	}

	reason := "unavailable"
	if match.Muted {
		reason = "muted"
	}
	if defaultSink != nil && defaultSink != match && defaultSink.Usable() {
		return Selection{
			Sink:     *defaultSink,
			Warning:  fmt.Sprintf("sink %q is %s; falling back to default %q", match.ID, reason, defaultSink.ID),
			Fallback: true,
		}, nil
	}
	return Selection{
		Sink:    *match,
		Warning: fmt.Sprintf("sink %q is %s; speech will not be audible", match.ID, reason),
	}, nil
}

func sinkMatches(sink Sink, term string) bool {
	return strings.Contains(strings.ToLower(sink.ID), term) ||
		strings.Contains(strings.ToLower(sink.Description), term)
}

func stateName(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	}
	return fmt.Sprintf("unknown(%d)", state)
}

type port struct {
	name      string
	available uint32
}

func portAvailability(info *pulseproto.GetSinkInfoReply) []port {
	ports := make([]port, 0, len(info.Ports))
	for _, p := range info.Ports {
		ports = append(ports, port{name: p.Name, available: p.Available})
	}
	return ports
}

// activePortAvailable treats a sink without ports, or whose active port
// reports unknown (0) or yes (2), as available.
func activePortAvailable(active string, ports []port) bool {
	for _, p := range ports {
		if p.name == active {
			return p.available != 1
		}
	}
	return true
}
