// Package indicator surfaces bridge state to the user: a listening notice,
// delivery and speaking previews, errors, and short audio cues.
package indicator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/transcript"
)

// PreviewRunes bounds the text echoed back in notifications.
const PreviewRunes = 50

type level int

const (
	levelInfo level = iota
	levelSuccess
	levelError
)

// surface is one notification backend.
type surface interface {
	notify(ctx context.Context, lvl level, timeoutMS int, text string) error
	dismiss(ctx context.Context) error
}

// Indicator routes notifications to the configured surface and plays cues.
// It never fails; problems are logged at debug level.
type Indicator struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	surface  surface
	cue      func(context.Context, cueKind) error

	soundMu sync.Mutex
}

// New builds an indicator for cfg. A disabled indicator still plays cues
// when sound is enabled.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Indicator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ind := &Indicator{
		cfg:      cfg,
		logger:   logger,
		messages: englishMessages,
		cue:      emitCue,
	}
	if cfg.Enable {
		ind.surface = newSurface(cfg)
	}
	return ind
}

func newSurface(cfg config.IndicatorConfig) surface {
	switch cfg.Backend {
	case "hypr":
		return hyprSurface{}
	case "beeep":
		return beeepSurface{title: cfg.DesktopAppName}
	default:
		return &desktopSurface{appName: cfg.DesktopAppName}
	}
}

func (i *Indicator) ShowListening(ctx context.Context, url string) {
	i.playCue(cueListening)
	i.show(ctx, levelInfo, 0, fmt.Sprintf(i.messages.listening, url))
}

func (i *Indicator) ShowDelivered(ctx context.Context, text string) {
	i.playCue(cueDelivered)
	i.show(ctx, levelSuccess, i.errorTimeout(), fmt.Sprintf(i.messages.delivered, transcript.Preview(text, PreviewRunes)))
}

func (i *Indicator) ShowSpeaking(ctx context.Context, text string) {
	i.show(ctx, levelInfo, i.errorTimeout(), fmt.Sprintf(i.messages.speaking, transcript.Preview(text, PreviewRunes)))
}

func (i *Indicator) ShowError(ctx context.Context, message string) {
	i.playCue(cueError)
	if message == "" {
		message = i.messages.errorText
	}
	i.show(ctx, levelError, i.errorTimeout(), message)
}

func (i *Indicator) Hide(ctx context.Context) {
	if i.surface == nil {
		return
	}
	i.run(ctx, i.surface.dismiss)
}

func (i *Indicator) show(ctx context.Context, lvl level, timeoutMS int, text string) {
	if i.surface == nil {
		return
	}
	i.run(ctx, func(ctx context.Context) error {
		return i.surface.notify(ctx, lvl, timeoutMS, text)
	})
}

func (i *Indicator) errorTimeout() int {
	if i.cfg.ErrorTimeoutMS <= 0 {
		return 1200
	}
	return i.cfg.ErrorTimeoutMS
}

// run bounds one dispatch so a hung notification daemon cannot stall delivery.
func (i *Indicator) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		i.logger.Debug("indicator dispatch failed", "error", err.Error())
	}
}

// playCue emits audio asynchronously; cues never overlap.
func (i *Indicator) playCue(kind cueKind) {
	if !i.cfg.SoundEnable {
		return
	}
	go func() {
		i.soundMu.Lock()
		defer i.soundMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := i.cue(ctx, kind); err != nil {
			i.logger.Debug("indicator audio cue failed", "error", err.Error())
		}
	}()
}
