//go:build !windows

package mpv

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/PizzaHomicide/mediaplayer/internal/log"
)

func dial(ctx context.Context, socketPath string) (net.Conn, error) {
	log.Debug("Connecting to Unix socket", "path", socketPath)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mpv socket: %w", err)
	}
	return conn, nil
}

func socketReady(socketPath string) bool {
	_, err := os.Stat(socketPath)
	return err == nil
}

// defaultSocketPath picks a per-process socket so several players can run side by side
func defaultSocketPath() string {
	name := "mediaplayer-mpv-" + strconv.Itoa(os.Getpid()) + ".sock"

	if runtime.GOOS == "darwin" {
		return filepath.Join(os.TempDir(), name)
	}
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, name)
	}
	return filepath.Join("/tmp", name)
}

func removeSocket(socketPath string) {
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			log.Warn("Failed to remove mpv socket file", "path", socketPath, "error", err)
		}
	}
}
