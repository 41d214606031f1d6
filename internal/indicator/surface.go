package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/rbright/parley/internal/hypr"
)

type hyprSurface struct{}

var hyprStyles = map[level]struct {
	icon  int
	color string
}{
	levelInfo:    {icon: hypr.IconInfo, color: "rgb(89b4fa)"},
	levelSuccess: {icon: hypr.IconOK, color: "rgb(a6e3a1)"},
	levelError:   {icon: hypr.IconError, color: "rgb(f38ba8)"},
}

func (hyprSurface) notify(ctx context.Context, lvl level, timeoutMS int, text string) error {
	style := hyprStyles[lvl]
	if timeoutMS <= 0 {
		timeoutMS = 300000
	}
	return hypr.Notify(ctx, style.icon, timeoutMS, style.color, text)
}

func (hyprSurface) dismiss(ctx context.Context) error {
	return hypr.DismissNotify(ctx)
}

// desktopSurface talks to org.freedesktop.Notifications over busctl and
// replaces its own previous notification instead of stacking new ones.
type desktopSurface struct {
	appName string

	mu sync.Mutex
	id uint32
}

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = "/org/freedesktop/Notifications"
	notifyIface = "org.freedesktop.Notifications"
)

func (d *desktopSurface) notify(ctx context.Context, lvl level, timeoutMS int, text string) error {
	d.mu.Lock()
	replaceID := d.id
	d.mu.Unlock()

	urgency := "1"
	if lvl == levelError {
		urgency = "2"
	}
	out, err := busctl(ctx, "Notify", "susssasa{sv}i",
		d.appName, strconv.FormatUint(uint64(replaceID), 10), "", d.appName, text,
		"0",
		"1", "urgency", "y", urgency,
		strconv.Itoa(timeoutMS),
	)
	if err != nil {
		return err
	}

	id, err := parseNotificationID(out)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.id = id
	d.mu.Unlock()
	return nil
}

func (d *desktopSurface) dismiss(ctx context.Context) error {
	d.mu.Lock()
	id := d.id
	d.id = 0
	d.mu.Unlock()

	if id == 0 {
		return nil
	}
	_, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	return err
}

func busctl(ctx context.Context, method string, signature string, args ...string) (string, error) {
	argv := append([]string{"--user", "call", notifyDest, notifyPath, notifyIface, method, signature}, args...)
	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", fmt.Errorf("busctl %s failed: %w", method, err)
		}
		return "", fmt.Errorf("busctl %s failed: %w (%s)", method, err, trimmed)
	}
	return trimmed, nil
}

// parseNotificationID reads busctl's "u 42" reply.
func parseNotificationID(out string) (uint32, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("unexpected Notify reply %q", out)
	}
	value, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse notification id %q: %w", fields[1], err)
	}
	return uint32(value), nil
}

// beeepSurface uses the platform notifier (notify-send, osascript, toast).
// It cannot dismiss or replace notifications.
type beeepSurface struct {
	title string
}

var beeepNotify = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

func (b beeepSurface) notify(ctx context.Context, _ level, _ int, text string) error {
	done := make(chan error, 1)
	go func() { done <- beeepNotify(b.title, text) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (beeepSurface) dismiss(context.Context) error { return nil }
