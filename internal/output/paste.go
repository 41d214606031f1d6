package output

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"

	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/hypr"
)

// NewPaster returns the configured paste path, or nil when paste is disabled.
// An explicit paste_cmd wins over the backend.
func NewPaster(cfg config.Config) Paster {
	switch {
	case !cfg.Paste.Enable:
		return nil
	case len(cfg.PasteCmd.Argv) > 0:
		return CommandPaster{Argv: cfg.PasteCmd.Argv}
	case cfg.Paste.Backend == "keys":
		return &KeysPaster{Shortcut: cfg.Paste.Shortcut}
	default:
		return HyprPaster{Shortcut: cfg.Paste.Shortcut}
	}
}

// CommandPaster runs a user-supplied paste command.
type CommandPaster struct {
	Argv []string
}

func (p CommandPaster) Paste(ctx context.Context) error {
	return runCommandWithInput(ctx, p.Argv, "")
}

// HyprPaster sends the shortcut to the active Hyprland window.
type HyprPaster struct {
	Shortcut string
}

func (p HyprPaster) Paste(ctx context.Context) error {
	window, err := activeWindowWithRetry(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return err
	}

	payload, err := buildPasteShortcut(p.Shortcut, window.Address)
	if err != nil {
		return err
	}
	return hypr.SendShortcut(ctx, payload)
}

func buildPasteShortcut(shortcut string, windowAddress string) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return "", fmt.Errorf("paste shortcut cannot be empty")
	}
	address := strings.TrimSpace(windowAddress)
	if address == "" {
		return "", fmt.Errorf("active window address is required")
	}
	return fmt.Sprintf("%s,address:%s", shortcut, address), nil
}

func activeWindowWithRetry(ctx context.Context, attempts int, delay time.Duration) (hypr.ActiveWindow, error) {
	attempts = max(attempts, 1)

	var lastErr error
	for i := range attempts {
		window, err := hypr.QueryActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return hypr.ActiveWindow{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return hypr.ActiveWindow{}, fmt.Errorf("resolve active window: %w", lastErr)
}

// KeysPaster synthesizes the paste keystroke through the OS input layer.
// The key binding is created on first use; on Linux the virtual device needs
// a moment to register before the first event.
type KeysPaster struct {
	Shortcut string

	once    sync.Once
	kb      keybd_event.KeyBonding
	initErr error
}

func (p *KeysPaster) Paste(ctx context.Context) error {
	mods, err := parseKeysShortcut(p.Shortcut)
	if err != nil {
		return err
	}

	p.once.Do(func() {
		p.kb, p.initErr = keybd_event.NewKeyBonding()
		if p.initErr == nil {
			time.Sleep(keysWarmup)
		}
	})
	if p.initErr != nil {
		return fmt.Errorf("init key bonding: %w", p.initErr)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.kb.Clear()
	p.kb.SetKeys(keybd_event.VK_V)
	p.kb.HasCTRL(mods.ctrl)
	p.kb.HasSHIFT(mods.shift)
	p.kb.HasALT(mods.alt)
	return p.kb.Launching()
}

type keyModifiers struct {
	ctrl, shift, alt bool
}

// parseKeysShortcut reads "MOD[ MOD],V" where MOD is CTRL, SHIFT, or ALT.
func parseKeysShortcut(shortcut string) (keyModifiers, error) {
	var mods keyModifiers

	mod, key, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(shortcut)), ",")
	if !ok {
		mod, key = "", mod
	}
	if strings.TrimSpace(key) != "V" {
		return mods, fmt.Errorf("keys paste backend only sends V with modifiers, got %q", shortcut)
	}

	for _, name := range strings.FieldsFunc(mod, func(r rune) bool { return r == ' ' || r == '+' || r == '_' }) {
		switch name {
		case "CTRL", "CONTROL":
			mods.ctrl = true
		case "SHIFT":
			mods.shift = true
		case "ALT":
			mods.alt = true
		default:
			return mods, fmt.Errorf("unsupported modifier %q for keys paste backend", name)
		}
	}
	return mods, nil
}
