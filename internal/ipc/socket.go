package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

var ErrAlreadyRunning = errors.New("parley server already running")

// RuntimeSocketPath returns $XDG_RUNTIME_DIR/parley.sock, falling back to a
// per-user socket in the system temp dir on hosts without XDG_RUNTIME_DIR.
func RuntimeSocketPath() (string, error) {
	if runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); runtimeDir != "" {
		return filepath.Join(runtimeDir, "parley.sock"), nil
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("parley-%d.sock", os.Getuid())), nil
}

// Acquire takes ownership of the socket at path. A live owner yields
// ErrAlreadyRunning; a stale socket file is removed and listening is retried
// with a short backoff.
func Acquire(ctx context.Context, path string, probeTimeout time.Duration, retries int) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		alive, probeErr := Probe(ctx, path, probeTimeout)
		if alive {
			return nil, ErrAlreadyRunning
		}
		if probeErr != nil {
			return nil, fmt.Errorf("probe existing socket %s: %w", path, probeErr)
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}

		if attempt >= retries {
			return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, retries)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
		}
	}
}
