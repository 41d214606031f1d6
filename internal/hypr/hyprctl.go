// Package hypr wraps the hyprctl calls parley needs on Hyprland: the active
// window for paste targeting, sendshortcut, and compositor notifications.
package hypr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const binary = "hyprctl"

// Detect reports whether a Hyprland session and hyprctl are both present.
func Detect() bool {
	if strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) == "" {
		return false
	}
	_, err := exec.LookPath(binary)
	return err == nil
}

func dispatch(ctx context.Context, args ...string) error {
	_, err := hyprctl(ctx, append([]string{"--quiet", "dispatch"}, args...)...)
	return err
}

func hyprctl(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, binary, args...).CombinedOutput()
	if err == nil {
		return out, nil
	}
	if detail := strings.TrimSpace(string(out)); detail != "" {
		return nil, fmt.Errorf("hyprctl %s failed: %w (%s)", strings.Join(args, " "), err, detail)
	}
	return nil, fmt.Errorf("hyprctl %s failed: %w", strings.Join(args, " "), err)
}
