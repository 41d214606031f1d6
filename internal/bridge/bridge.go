// Package bridge consumes relay submissions: it normalizes each accepted text,
// delivers it into the editor chat, and answers control commands from the CLI.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/parley/internal/fsm"
	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/speech"
	"github.com/rbright/parley/internal/transcript"
)

// ErrNotRunning is returned when the controller was never started.
var ErrNotRunning = errors.New("bridge not running")

// Relay is the subset of relay.Server the bridge drives.
type Relay interface {
	Start(ctx context.Context, port int) error
	Stop()
	SetSubmissionCallback(fn func(text string))
	LastSubmission() string
	URL() string
}

// Deliverer moves accepted text into the chat input.
type Deliverer interface {
	Deliver(ctx context.Context, text string) error
}

// DeliverFunc adapts a function to Deliverer.
type DeliverFunc func(ctx context.Context, text string) error

func (f DeliverFunc) Deliver(ctx context.Context, text string) error { return f(ctx, text) }

// Indicator is the bridge-facing subset of indicator behavior.
type Indicator interface {
	ShowListening(ctx context.Context, url string)
	ShowDelivered(ctx context.Context, text string)
	ShowSpeaking(ctx context.Context, text string)
	ShowError(ctx context.Context, message string)
	Hide(ctx context.Context)
}

type noopIndicator struct{}

func (noopIndicator) ShowListening(context.Context, string) {}
func (noopIndicator) ShowDelivered(context.Context, string) {}
func (noopIndicator) ShowSpeaking(context.Context, string)  {}
func (noopIndicator) ShowError(context.Context, string)     {}
func (noopIndicator) Hide(context.Context)                  {}

type noopSpeaker struct{}

func (noopSpeaker) Speak(context.Context, speech.Utterance) error { return nil }
func (noopSpeaker) Stop()                                         {}
func (noopSpeaker) Busy() bool                                    { return false }

// Options tunes how submissions are prepared before delivery.
type Options struct {
	Normalize  bool
	Transcript transcript.Options
}

// Result summarizes one serve lifetime.
type Result struct {
	Addr        string
	Submissions int
	Delivered   int
	Failed      int
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Controller owns the relay for one serve lifetime.
type Controller struct {
	logger    *slog.Logger
	relay     Relay
	deliver   Deliverer
	indicator Indicator
	speaker   speech.Speaker
	opts      Options

	mu          sync.RWMutex
	state       fsm.State
	runCtx      context.Context
	startedAt   time.Time
	submissions int
	delivered   int
	failed      int

	// stopping closes speech admission; speaking.Add only happens under mu
	// while it is false.
	stopping     bool
	speechCtx    context.Context
	cancelSpeech context.CancelFunc

	deliverMu sync.Mutex
	speaking  sync.WaitGroup
	stopOnce  sync.Once
	stopCh    chan struct{}
}

// NewController wires the bridge. Nil collaborators other than the relay are
// replaced by no-op implementations.
func NewController(
	logger *slog.Logger,
	relay Relay,
	deliverer Deliverer,
	indicator Indicator,
	speaker speech.Speaker,
	opts Options,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if deliverer == nil {
		deliverer = DeliverFunc(func(context.Context, string) error { return nil })
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}
	if speaker == nil {
		speaker = noopSpeaker{}
	}

	speechCtx, cancelSpeech := context.WithCancel(context.Background())
	return &Controller{
		logger:       logger,
		relay:        relay,
		deliver:      deliverer,
		indicator:    indicator,
		speaker:      speaker,
		opts:         opts,
		state:        fsm.StateIdle,
		speechCtx:    speechCtx,
		cancelSpeech: cancelSpeech,
		stopCh:       make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Start registers the submission callback and brings the relay up. A bind
// failure is shown through the indicator and returned.
func (c *Controller) Start(ctx context.Context, port int) error {
	if c.State() != fsm.StateIdle {
		return fmt.Errorf("bridge already %s", c.State())
	}

	c.mu.Lock()
	c.runCtx = ctx
	c.startedAt = time.Now()
	c.mu.Unlock()

	c.relay.SetSubmissionCallback(c.onSubmission)
	if err := c.relay.Start(ctx, port); err != nil {
		c.relay.SetSubmissionCallback(nil)
		c.indicator.ShowError(ctx, err.Error())
		_ = c.transition(fsm.EventFail)
		_ = c.transition(fsm.EventStop)
		return err
	}

	if err := c.transition(fsm.EventStart); err != nil {
		c.relay.Stop()
		return err
	}
	c.logger.Info("relay listening", "url", c.relay.URL())
	c.indicator.ShowListening(ctx, c.relay.URL())
	return nil
}

// Wait blocks until ctx ends or a stop command arrives, then shuts the relay
// and any speech down.
func (c *Controller) Wait(ctx context.Context) Result {
	c.mu.RLock()
	started := c.runCtx != nil
	c.mu.RUnlock()
	if !started || c.State() == fsm.StateIdle {
		now := time.Now()
		return Result{Err: ErrNotRunning, StartedAt: now, FinishedAt: now}
	}

	select {
	case <-ctx.Done():
	case <-c.stopCh:
	}

	c.mu.Lock()
	c.stopping = true
	c.mu.Unlock()

	addr := c.relay.URL()
	c.relay.Stop()
	c.cancelSpeech()
	c.speaker.Stop()
	c.speaking.Wait()

	// A delivery admitted before Stop finishes before the state moves to idle.
	c.deliverMu.Lock()
	if c.State() == fsm.StateError {
		_ = c.transition(fsm.EventReset)
	}
	_ = c.transition(fsm.EventStop)
	c.deliverMu.Unlock()

	hideCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	c.indicator.Hide(hideCtx)
	cancel()

	c.mu.RLock()
	defer c.mu.RUnlock()
	result := Result{
		Addr:        addr,
		Submissions: c.submissions,
		Delivered:   c.delivered,
		Failed:      c.failed,
		StartedAt:   c.startedAt,
		FinishedAt:  time.Now(),
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		result.Err = err
	}
	return result
}

// RequestStop asks Wait to return. Safe to call more than once.
func (c *Controller) RequestStop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// onSubmission runs on the relay handler goroutine. Deliveries are serialized
// so clipboard writes and paste keystrokes never interleave.
func (c *Controller) onSubmission(text string) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	c.submissions++
	ctx := c.runCtx
	c.mu.Unlock()

	if err := c.transition(fsm.EventSubmit); err != nil {
		c.logger.Warn("submission outside listening state", "state", string(c.State()), "error", err.Error())
		return
	}

	out := text
	if c.opts.Normalize {
		out = transcript.Normalize(text, c.opts.Transcript)
	}
	if strings.TrimSpace(out) == "" {
		c.logger.Debug("empty submission; nothing to deliver")
		_ = c.transition(fsm.EventDelivered)
		return
	}

	if err := c.deliver.Deliver(ctx, out); err != nil {
		c.mu.Lock()
		c.failed++
		c.mu.Unlock()
		c.logger.Error("chat delivery failed", "error", err.Error(), "chars", len(out))
		c.indicator.ShowError(ctx, "Chat delivery failed")
		_ = c.transition(fsm.EventFail)
		_ = c.transition(fsm.EventReset)
		return
	}

	c.mu.Lock()
	c.delivered++
	c.mu.Unlock()
	_ = c.transition(fsm.EventDelivered)
	c.logger.Info("submission delivered", "chars", len(out))
	c.indicator.ShowDelivered(ctx, out)
}

// Handle serves one control command from the CLI.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	state := c.State()
	switch req.Command {
	case ipc.CommandStatus:
		c.mu.RLock()
		submissions := c.submissions
		c.mu.RUnlock()
		return ipc.Response{
			OK:          true,
			State:       string(state),
			URL:         c.relay.URL(),
			Submissions: submissions,
			Speaking:    c.speaker.Busy(),
		}
	case ipc.CommandStop:
		c.RequestStop()
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	case ipc.CommandLast:
		return ipc.Response{OK: true, State: string(state), Text: c.relay.LastSubmission()}
	case ipc.CommandSpeak:
		return c.speak(req)
	case ipc.CommandHush:
		busy := c.speaker.Busy()
		c.speaker.Stop()
		if !busy {
			return ipc.Response{OK: true, State: string(state), Message: "nothing playing"}
		}
		return ipc.Response{OK: true, State: string(state), Message: "speech stopped"}
	default:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// speak starts playback in the background and answers immediately.
func (c *Controller) speak(req ipc.Request) ipc.Response {
	state := c.State()
	if strings.TrimSpace(req.Text) == "" {
		return ipc.Response{OK: false, State: string(state), Error: speech.ErrEmptyText.Error()}
	}

	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		return ipc.Response{OK: false, State: string(state), Error: ErrNotRunning.Error()}
	}
	c.speaking.Add(1)
	c.mu.Unlock()

	ctx := c.speechCtx
	go func() {
		defer c.speaking.Done()
		c.indicator.ShowSpeaking(ctx, req.Text)
		err := c.speaker.Speak(ctx, speech.Utterance{Text: req.Text, Voice: req.Voice})
		if err != nil && ctx.Err() != nil {
			c.logger.Debug("speech cut short by shutdown", "error", err.Error())
			return
		}
		if err != nil {
			c.logger.Error("speech failed", "error", err.Error())
			c.indicator.ShowError(ctx, "Speech failed")
		}
	}()
	return ipc.Response{OK: true, State: string(state), Speaking: true, Message: "speaking"}
}
