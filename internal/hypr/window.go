package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ActiveWindow is the subset of `hyprctl -j activewindow` used to aim a paste.
type ActiveWindow struct {
	Address string `json:"address"`
	Class   string `json:"class"`
	Title   string `json:"title"`
}

// QueryActiveWindow returns the focused client. An empty address means no
// window has focus and is reported as an error.
func QueryActiveWindow(ctx context.Context) (ActiveWindow, error) {
	out, err := hyprctl(ctx, "-j", "activewindow")
	if err != nil {
		return ActiveWindow{}, err
	}

	var window ActiveWindow
	if err := json.Unmarshal(out, &window); err != nil {
		return ActiveWindow{}, fmt.Errorf("decode hyprctl activewindow: %w", err)
	}
	window.Address = strings.TrimSpace(window.Address)
	window.Class = strings.TrimSpace(window.Class)
	window.Title = strings.TrimSpace(window.Title)
	if window.Address == "" {
		return ActiveWindow{}, fmt.Errorf("hyprctl activewindow returned empty address")
	}
	return window, nil
}
