// Package doctor checks that the host can run the relay, deliver text into
// chat, and speak replies.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/hypr"
	"github.com/rbright/parley/internal/output"
)

// Check is one diagnostic result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

type Report struct {
	Checks []Check
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders one "[OK|FAIL] name: message" line per check.
func (r Report) String() string {
	lines := make([]string, 0, len(r.Checks))
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", status, check.Name, check.Message))
	}
	return strings.Join(lines, "\n")
}

var (
	selectSink        = audio.SelectSink
	nativeClipboardOK = output.NativeClipboardSupported
	uinputPath        = "/dev/uinput"
)

// Run executes every check against the loaded config and resolved credentials.
func Run(ctx context.Context, loaded config.Loaded, creds config.Credentials) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded), checkPort(cfg.Relay.Port)}

	checks = append(checks, checkClipboard(cfg.Clipboard))
	if len(cfg.Chat.FocusCmd.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Chat.FocusCmd.Argv, "chat.focus_cmd"))
	}
	if cfg.Paste.Enable {
		checks = append(checks, checkPaste(cfg))
	}
	checks = append(checks, checkTTS(cfg.TTS, creds)...)
	checks = append(checks, checkAudio(ctx, cfg.Audio.Output))

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	switch {
	case !loaded.Exists:
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	case len(loaded.Warnings) > 0:
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q with %d warning(s)", loaded.Path, len(loaded.Warnings))}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

// checkPort binds the relay port on loopback and releases it immediately.
func checkPort(port int) Check {
	name := "relay.port"
	if port == 0 {
		return Check{Name: name, Pass: true, Message: "port 0 binds an ephemeral port"}
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is already in use (is parley serving?)", addr)}
		}
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	_ = ln.Close()
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is free", addr)}
}

func checkClipboard(cmd config.CommandConfig) Check {
	if len(cmd.Argv) > 0 {
		return checkCommand(cmd.Argv, "clipboard_cmd")
	}
	if nativeClipboardOK() {
		return Check{Name: "clipboard", Pass: true, Message: "native clipboard available"}
	}
	return Check{Name: "clipboard", Pass: false, Message: "no native clipboard tool found (install wl-clipboard or xclip, or set clipboard_cmd)"}
}

func checkPaste(cfg config.Config) Check {
	switch {
	case len(cfg.PasteCmd.Argv) > 0:
		return checkCommand(cfg.PasteCmd.Argv, "paste_cmd")
	case cfg.Paste.Backend == "keys":
		return checkKeys()
	}
	if !hypr.Detect() {
		return Check{Name: "paste.hypr", Pass: false, Message: "hyprctl or HYPRLAND_INSTANCE_SIGNATURE missing"}
	}
	return Check{Name: "paste.hypr", Pass: true, Message: "Hyprland session detected"}
}

// checkKeys verifies synthetic key events can be sent. On Linux they go
// through uinput, which needs write access to the device node.
func checkKeys() Check {
	if runtime.GOOS != "linux" {
		return Check{Name: "paste.keys", Pass: true, Message: "synthetic keys use the platform input API"}
	}
	f, err := os.OpenFile(uinputPath, os.O_WRONLY, 0)
	if err != nil {
		return Check{Name: "paste.keys", Pass: false, Message: fmt.Sprintf("cannot open %s: %v (add your user to the input group)", uinputPath, err)}
	}
	_ = f.Close()
	return Check{Name: "paste.keys", Pass: true, Message: uinputPath + " is writable"}
}

func checkTTS(cfg config.TTSConfig, creds config.Credentials) []Check {
	var checks []Check
	switch cfg.Backend {
	case "openai":
		checks = append(checks, checkKey("tts.openai", config.EnvOpenAIKey, creds.OpenAIKey))
	case "elevenlabs":
		checks = append(checks, checkKey("tts.elevenlabs", config.EnvElevenLabsKey, creds.ElevenLabsKey))
	default:
		return append(checks, checkCommand(cfg.Command.Argv, "tts.command"))
	}
	if len(cfg.PlayerCmd.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.PlayerCmd.Argv, "tts.player_cmd"))
	}
	return checks
}

func checkKey(name, env, value string) Check {
	if value == "" {
		return Check{Name: name, Pass: false, Message: env + " is not set"}
	}
	return Check{Name: name, Pass: true, Message: env + " is set"}
}

func checkAudio(ctx context.Context, preferred string) Check {
	sel, err := selectSink(ctx, preferred)
	if err != nil {
		return Check{Name: "audio.output", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", sel.Sink.ID)
	if sel.Warning != "" {
		message += " (" + sel.Warning + ")"
	}
	return Check{Name: "audio.output", Pass: sel.Sink.Usable(), Message: message}
}

// checkCommand verifies argv[0] resolves on PATH.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s not found in PATH", argv[0])}
	}
	return Check{Name: name, Pass: true, Message: "found " + path}
}
