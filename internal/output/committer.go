// Package output delivers accepted text into the editor chat: clipboard
// write, chat focus, then an optional paste keystroke.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/rbright/parley/internal/config"
)

const (
	clipboardTimeout = 2 * time.Second
	focusTimeout     = 2 * time.Second
	pasteTimeout     = 2 * time.Second
)

// Clipboard stores text on the system clipboard.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Paster sends the paste action to the focused window.
type Paster interface {
	Paste(ctx context.Context) error
}

// Committer applies delivery side effects for one accepted submission.
type Committer struct {
	clipboard  Clipboard
	focusArgv  []string
	focusDelay time.Duration
	paster     Paster
	logger     *slog.Logger
}

// NewCommitter selects clipboard and paste implementations from config.
func NewCommitter(cfg config.Config, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Committer{
		clipboard:  NewClipboard(cfg.Clipboard),
		focusArgv:  cfg.Chat.FocusCmd.Argv,
		focusDelay: time.Duration(cfg.Chat.FocusDelayMS) * time.Millisecond,
		paster:     NewPaster(cfg),
		logger:     logger,
	}
}

// Deliver writes text to the clipboard, focuses chat, and pastes. Only a
// clipboard failure is returned; focus and paste failures are logged because
// the text is still on the clipboard for a manual paste.
func (c *Committer) Deliver(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	clipboardCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := c.clipboard.WriteText(clipboardCtx, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	if len(c.focusArgv) > 0 {
		if err := c.focusChat(ctx); err != nil {
			c.logger.Warn("chat focus failed; clipboard remains set", "error", err.Error())
		}
	}

	if c.paster == nil {
		return nil
	}
	pasteCtx, pasteCancel := context.WithTimeout(ctx, pasteTimeout)
	defer pasteCancel()
	if err := c.paster.Paste(pasteCtx); err != nil {
		c.logger.Error("paste dispatch failed; clipboard remains set", "error", err.Error())
	}
	return nil
}

func (c *Committer) focusChat(ctx context.Context) error {
	focusCtx, cancel := context.WithTimeout(ctx, focusTimeout)
	defer cancel()
	if err := runCommandWithInput(focusCtx, c.focusArgv, ""); err != nil {
		return err
	}
	if c.focusDelay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.focusDelay):
		return nil
	}
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
