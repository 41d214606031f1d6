package output

import (
	"context"
	"errors"

	"github.com/atotto/clipboard"

	"github.com/rbright/parley/internal/config"
)

// NewClipboard returns a command-backed clipboard when argv is configured,
// otherwise the platform clipboard.
func NewClipboard(cmd config.CommandConfig) Clipboard {
	if len(cmd.Argv) > 0 {
		return CommandClipboard{Argv: cmd.Argv}
	}
	return NativeClipboard{}
}

// CommandClipboard pipes text to an external tool such as wl-copy or pbcopy.
type CommandClipboard struct {
	Argv []string
}

func (c CommandClipboard) WriteText(ctx context.Context, text string) error {
	return runCommandWithInput(ctx, c.Argv, text)
}

// NativeClipboard uses the platform clipboard helpers.
type NativeClipboard struct{}

func (NativeClipboard) WriteText(ctx context.Context, text string) error {
	if clipboard.Unsupported {
		return errors.New("native clipboard unsupported on this host; set clipboard_cmd")
	}

	done := make(chan error, 1)
	go func() { done <- clipboard.WriteAll(text) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NativeClipboardSupported reports whether the platform clipboard has a backend.
func NativeClipboardSupported() bool {
	return !clipboard.Unsupported
}
