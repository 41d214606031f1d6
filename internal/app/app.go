package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/bridge"
	"github.com/rbright/parley/internal/cli"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/doctor"
	"github.com/rbright/parley/internal/indicator"
	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/logging"
	"github.com/rbright/parley/internal/output"
	"github.com/rbright/parley/internal/relay"
	"github.com/rbright/parley/internal/speech"
	"github.com/rbright/parley/internal/transcript"
	"github.com/rbright/parley/internal/version"
)

const forwardTimeout = 220 * time.Millisecond

var errNoRelay = errors.New("no running parley relay")

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr, Stdin: os.Stdin}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("parley"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("parley"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if parsed.Port >= 0 {
		cfgLoaded.Config.Relay.Port = parsed.Port
	}

	logOpts := logging.Options{Level: cfgLoaded.Config.Log.Level}
	if cfgLoaded.Config.Log.Console {
		logOpts.Console = r.Stderr
	}
	logRuntime, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	creds, credWarnings := config.LoadCredentials(cfgLoaded)
	for _, w := range append(cfgLoaded.Warnings, credWarnings...) {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, creds)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandVoices:
		for _, voice := range speech.ListVoices(ctx, cfgLoaded.Config.TTS) {
			fmt.Fprintln(r.Stdout, voice)
		}
		return 0
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStop})
	case cli.CommandHush:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandHush})
	case cli.CommandLast:
		return r.commandLast(ctx)
	case cli.CommandSpeak:
		return r.commandSpeak(ctx, parsed, cfgLoaded.Config.TTS, creds, logger)
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, creds, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	sinks, err := audio.ListSinks(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(sinks) == 0 {
		fmt.Fprintln(r.Stdout, "no audio output devices found")
		return 1
	}

	for _, sink := range sinks {
		defaultMark := " "
		if sink.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			sink.ID,
			sink.Description,
			sink.State,
			yesNo(sink.Available),
			yesNo(sink.Muted),
		)
	}
	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if resp.State == "" {
		resp.State = "idle"
	}
	line := resp.State
	if resp.URL != "" {
		line += " " + resp.URL
	}
	if resp.State != "idle" {
		line += fmt.Sprintf(" submissions=%d", resp.Submissions)
	}
	if resp.Speaking {
		line += " speaking"
	}
	fmt.Fprintln(r.Stdout, line)
	return 0
}

func (r Runner) commandLast(ctx context.Context) int {
	resp, err := r.forward(ctx, ipc.Request{Command: ipc.CommandLast})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Text != "" {
		fmt.Fprintln(r.Stdout, resp.Text)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	resp, err := r.forward(ctx, req)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) forward(ctx context.Context, req ipc.Request) (ipc.Response, error) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return ipc.Response{}, err
	}
	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		return ipc.Response{}, errNoRelay
	}
	return resp, err
}

// commandSpeak hands text to a running relay so playback shares its hush
// control. Without one it speaks in the foreground.
func (r Runner) commandSpeak(
	ctx context.Context,
	parsed cli.Parsed,
	ttsCfg config.TTSConfig,
	creds config.Credentials,
	logger *slog.Logger,
) int {
	text, err := r.speakText(parsed.Args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if text == "" {
		fmt.Fprintf(r.Stderr, "error: %v\n", speech.ErrEmptyText)
		return 2
	}

	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		req := ipc.Request{Command: ipc.CommandSpeak, Text: text, Voice: parsed.Voice}
		resp, handled, err := tryForward(ctx, socketPath, req)
		if handled {
			if err != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
				return 1
			}
			if resp.Message != "" {
				fmt.Fprintln(r.Stdout, resp.Message)
			}
			return 0
		}
	}

	speaker, err := speech.New(ttsCfg, creds, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if err := speaker.Speak(ctx, speech.Utterance{Text: text, Voice: parsed.Voice}); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) speakText(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	if r.Stdin == nil {
		return "", nil
	}
	data, err := io.ReadAll(r.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (r Runner) commandServe(ctx context.Context, cfg config.Config, creds config.Credentials, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: %v (see `parley status`)\n", err)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	server := relay.New(relay.Options{
		MaxBodyBytes:  cfg.Relay.MaxBodyBytes,
		ShutdownGrace: time.Duration(cfg.Relay.ShutdownGraceMS) * time.Millisecond,
	}, logger)
	committer := output.NewCommitter(cfg, logger)
	notifier := indicator.New(cfg.Indicator, logger)

	speaker, err := speech.New(cfg.TTS, creds, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: speech disabled: %v\n", err)
		logger.Warn("speech disabled", "error", err.Error())
	}

	controller := bridge.NewController(logger, server, committer, notifier, speaker, bridge.Options{
		Normalize:  cfg.Transcript.Normalize,
		Transcript: transcript.Options{
			CapitalizeSentences: cfg.Transcript.CapitalizeSentences,
			TrailingSpace:       cfg.Transcript.TrailingSpace,
		},
	})

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	if err := controller.Start(ctx, cfg.Relay.Port); err != nil {
		serverCancel()
		<-serverErrCh
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	url := server.URL()
	fmt.Fprintln(r.Stdout, url)
	if cfg.Relay.OpenBrowser {
		openBrowser(cfg.Relay.BrowserCmd.Argv, url, logger)
	}

	result := controller.Wait(ctx)
	serverCancel()
	serverErr := <-serverErrCh

	logServeResult(logger, result)

	if serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "stopped (submissions=%d delivered=%d failed=%d)\n",
		result.Submissions, result.Delivered, result.Failed)
	return 0
}

// openBrowser launches argv with url appended and does not wait for it.
func openBrowser(argv []string, url string, logger *slog.Logger) {
	if len(argv) == 0 {
		return
	}
	cmd := exec.Command(argv[0], append(argv[1:], url)...)
	if err := cmd.Start(); err != nil {
		logger.Warn("open browser failed", "cmd", argv[0], "error", err.Error())
		return
	}
	go func() { _ = cmd.Wait() }()
}

func logServeResult(logger *slog.Logger, result bridge.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"addr", result.Addr,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"submissions", result.Submissions,
		"delivered", result.Delivered,
		"failed", result.Failed,
	}

	if result.Err != nil {
		logger.Error("relay failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("relay finished", fields...)
}

// tryForward reports handled=false when no owner is listening, so callers
// can fall back to running locally.
func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsNotRunning(err) {
		return ipc.Response{}, false, nil
	}
	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
