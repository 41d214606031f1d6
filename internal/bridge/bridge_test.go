package bridge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/parley/internal/fsm"
	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/relay"
	"github.com/rbright/parley/internal/speech"
	"github.com/rbright/parley/internal/transcript"
)

type fakeRelay struct {
	mu       sync.Mutex
	callback func(string)
	last     string
	startErr error
	started  bool
	stopped  int
}

func (r *fakeRelay) Start(context.Context, int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.started = true
	return nil
}

func (r *fakeRelay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = false
	r.stopped++
}

func (r *fakeRelay) SetSubmissionCallback(fn func(string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = fn
}

func (r *fakeRelay) LastSubmission() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *fakeRelay) URL() string { return "http://127.0.0.1:3847/" }

func (r *fakeRelay) submit(text string) {
	r.mu.Lock()
	r.last = text
	cb := r.callback
	r.mu.Unlock()
	if cb != nil {
		cb(text)
	}
}

type recordingIndicator struct {
	mu     sync.Mutex
	events []string
}

func (i *recordingIndicator) record(event string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.events = append(i.events, event)
}

func (i *recordingIndicator) ShowListening(_ context.Context, url string) { i.record("listening " + url) }
func (i *recordingIndicator) ShowDelivered(_ context.Context, text string) { i.record("delivered " + text) }
func (i *recordingIndicator) ShowSpeaking(_ context.Context, text string)  { i.record("speaking " + text) }
func (i *recordingIndicator) ShowError(_ context.Context, msg string)      { i.record("error " + msg) }
func (i *recordingIndicator) Hide(context.Context)                         { i.record("hide") }

func (i *recordingIndicator) snapshot() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.events...)
}

type fakeSpeaker struct {
	mu      sync.Mutex
	spoken  []speech.Utterance
	busy    bool
	release chan struct{}
	stops   int
}

func (s *fakeSpeaker) Speak(ctx context.Context, u speech.Utterance) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, u)
	s.busy = true
	release := s.release
	s.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
		}
	}

	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
	return nil
}

func (s *fakeSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	if s.release != nil {
		close(s.release)
		s.release = nil
	}
}

func (s *fakeSpeaker) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func TestSubmissionIsNormalizedAndDelivered(t *testing.T) {
	rel := &fakeRelay{}
	ind := &recordingIndicator{}
	var delivered []string
	ctrl := NewController(nil, rel, DeliverFunc(func(_ context.Context, text string) error {
		delivered = append(delivered, text)
		return nil
	}), ind, nil, Options{Normalize: true, Transcript: transcript.Options{CapitalizeSentences: true}})

	require.NoError(t, ctrl.Start(context.Background(), 0))
	require.Equal(t, fsm.StateListening, ctrl.State())

	rel.submit("  add a test for the parser.  then run it ")
	require.Equal(t, []string{"Add a test for the parser. Then run it"}, delivered)
	require.Equal(t, fsm.StateListening, ctrl.State())

	ctrl.RequestStop()
	result := ctrl.Wait(context.Background())
	require.NoError(t, result.Err)
	require.Equal(t, 1, result.Submissions)
	require.Equal(t, 1, result.Delivered)
	require.Zero(t, result.Failed)
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Equal(t, 1, rel.stopped)

	require.Equal(t, []string{
		"listening http://127.0.0.1:3847/",
		"delivered Add a test for the parser. Then run it",
		"hide",
	}, ind.snapshot())
}

func TestSubmissionWithoutNormalizeIsVerbatim(t *testing.T) {
	rel := &fakeRelay{}
	var delivered []string
	ctrl := NewController(nil, rel, DeliverFunc(func(_ context.Context, text string) error {
		delivered = append(delivered, text)
		return nil
	}), nil, nil, Options{})

	require.NoError(t, ctrl.Start(context.Background(), 0))
	rel.submit("keep   spacing")
	require.Equal(t, []string{"keep   spacing"}, delivered)
}

func TestEmptySubmissionIsCountedNotDelivered(t *testing.T) {
	rel := &fakeRelay{}
	calls := 0
	ctrl := NewController(nil, rel, DeliverFunc(func(context.Context, string) error {
		calls++
		return nil
	}), nil, nil, Options{Normalize: true})

	require.NoError(t, ctrl.Start(context.Background(), 0))
	rel.submit("")
	rel.submit("   ")
	require.Zero(t, calls)
	require.Equal(t, fsm.StateListening, ctrl.State())

	ctrl.RequestStop()
	result := ctrl.Wait(context.Background())
	require.Equal(t, 2, result.Submissions)
	require.Zero(t, result.Delivered)
}

func TestDeliveryFailureKeepsListening(t *testing.T) {
	rel := &fakeRelay{}
	ind := &recordingIndicator{}
	fail := true
	ctrl := NewController(nil, rel, DeliverFunc(func(context.Context, string) error {
		if fail {
			return errors.New("set clipboard: exit status 1")
		}
		return nil
	}), ind, nil, Options{})

	require.NoError(t, ctrl.Start(context.Background(), 0))
	rel.submit("first")
	require.Equal(t, fsm.StateListening, ctrl.State())

	fail = false
	rel.submit("second")

	ctrl.RequestStop()
	result := ctrl.Wait(context.Background())
	require.Equal(t, 2, result.Submissions)
	require.Equal(t, 1, result.Delivered)
	require.Equal(t, 1, result.Failed)
	require.Contains(t, ind.snapshot(), "error Chat delivery failed")
}

func TestStartBindFailureIsShownAndReturned(t *testing.T) {
	bindErr := &relay.BindError{Addr: "127.0.0.1:3847", Err: errors.New("address already in use")}
	rel := &fakeRelay{startErr: bindErr}
	ind := &recordingIndicator{}
	ctrl := NewController(nil, rel, nil, ind, nil, Options{})

	err := ctrl.Start(context.Background(), 3847)
	var target *relay.BindError
	require.ErrorAs(t, err, &target)
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Equal(t, []string{"error " + bindErr.Error()}, ind.snapshot())

	result := ctrl.Wait(context.Background())
	require.ErrorIs(t, result.Err, ErrNotRunning)
}

func TestStartTwiceFails(t *testing.T) {
	ctrl := NewController(nil, &fakeRelay{}, nil, nil, nil, Options{})
	require.NoError(t, ctrl.Start(context.Background(), 0))
	require.ErrorContains(t, ctrl.Start(context.Background(), 0), "already listening")
}

func TestWaitReturnsOnContextCancel(t *testing.T) {
	rel := &fakeRelay{}
	ctrl := NewController(nil, rel, nil, nil, nil, Options{})
	require.NoError(t, ctrl.Start(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- ctrl.Wait(ctx) }()
	cancel()

	select {
	case result := <-done:
		require.NoError(t, result.Err)
		require.Equal(t, fsm.StateIdle, ctrl.State())
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return after cancel")
	}
}

func TestHandleCommands(t *testing.T) {
	rel := &fakeRelay{}
	spk := &fakeSpeaker{release: make(chan struct{})}
	ind := &recordingIndicator{}
	ctrl := NewController(nil, rel, nil, ind, spk, Options{})
	require.NoError(t, ctrl.Start(context.Background(), 0))
	rel.submit("hello there")

	ctx := context.Background()
	status := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, "listening", status.State)
	require.Equal(t, "http://127.0.0.1:3847/", status.URL)
	require.Equal(t, 1, status.Submissions)
	require.False(t, status.Speaking)

	last := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandLast})
	require.Equal(t, "hello there", last.Text)

	empty := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandSpeak, Text: " "})
	require.False(t, empty.OK)
	require.Equal(t, speech.ErrEmptyText.Error(), empty.Error)

	speak := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandSpeak, Text: "All tests pass", Voice: "Samantha"})
	require.True(t, speak.OK)
	require.Eventually(t, spk.Busy, 2*time.Second, 10*time.Millisecond)
	require.True(t, ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStatus}).Speaking)

	hush := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandHush})
	require.Equal(t, "speech stopped", hush.Message)
	require.Eventually(t, func() bool { return !spk.Busy() }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "nothing playing", ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandHush}).Message)

	unknown := ctrl.Handle(ctx, ipc.Request{Command: "toggle"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")

	stop := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	require.Equal(t, "stop requested", stop.Message)
	ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})

	result := ctrl.Wait(ctx)
	require.NoError(t, result.Err)

	spk.mu.Lock()
	defer spk.mu.Unlock()
	require.Equal(t, []speech.Utterance{{Text: "All tests pass", Voice: "Samantha"}}, spk.spoken)
	require.Contains(t, ind.snapshot(), "speaking All tests pass")
}

func TestSpeakIsRefusedOnceStopped(t *testing.T) {
	spk := &fakeSpeaker{}
	ctrl := NewController(nil, &fakeRelay{}, nil, nil, spk, Options{})
	require.NoError(t, ctrl.Start(context.Background(), 0))

	ctrl.RequestStop()
	require.NoError(t, ctrl.Wait(context.Background()).Err)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandSpeak, Text: "too late"})
	require.False(t, resp.OK)
	require.Equal(t, ErrNotRunning.Error(), resp.Error)

	spk.mu.Lock()
	defer spk.mu.Unlock()
	require.Empty(t, spk.spoken)
}

func TestWaitCancelsSpeechInFlight(t *testing.T) {
	spk := &ctxSpeaker{started: make(chan struct{})}
	ctrl := NewController(nil, &fakeRelay{}, nil, nil, spk, Options{})
	require.NoError(t, ctrl.Start(context.Background(), 0))

	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandSpeak, Text: "long answer"}).OK)
	<-spk.started

	ctrl.RequestStop()
	done := make(chan Result, 1)
	go func() { done <- ctrl.Wait(context.Background()) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not cancel the running utterance")
	}
	require.ErrorIs(t, spk.err, context.Canceled)
}

// ctxSpeaker ignores Stop and only returns when its context ends.
type ctxSpeaker struct {
	started chan struct{}
	err     error
}

func (s *ctxSpeaker) Speak(ctx context.Context, _ speech.Utterance) error {
	close(s.started)
	<-ctx.Done()
	s.err = ctx.Err()
	return s.err
}

func (s *ctxSpeaker) Stop()      {}
func (s *ctxSpeaker) Busy() bool { return false }

func TestBridgeOverRealRelay(t *testing.T) {
	srv := relay.New(relay.Options{}, nil)
	var (
		mu        sync.Mutex
		delivered []string
	)
	ctrl := NewController(nil, srv, DeliverFunc(func(_ context.Context, text string) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, text)
		return nil
	}), nil, nil, Options{Normalize: true, Transcript: transcript.Options{CapitalizeSentences: true}})

	require.NoError(t, ctrl.Start(context.Background(), 0))
	t.Cleanup(func() {
		ctrl.RequestStop()
		ctrl.Wait(context.Background())
	})

	resp, err := http.Post(srv.URL()+"send", "application/json", strings.NewReader(`{"text":"i think it works"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"I think it works"}, delivered)
	require.Equal(t, "i think it works", srv.LastSubmission())
}
