//go:build windows

package mpv

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/natefinch/npipe.v2"

	"github.com/PizzaHomicide/mediaplayer/internal/log"
)

func dial(ctx context.Context, socketPath string) (net.Conn, error) {
	log.Debug("Connecting to Windows named pipe", "path", socketPath)

	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	conn, err := npipe.DialTimeout(socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mpv pipe: %w", err)
	}
	return conn, nil
}

// Named pipes cannot be probed without connecting
func socketReady(string) bool {
	return true
}

func defaultSocketPath() string {
	return `\\.\pipe\mediaplayer-mpv-` + strconv.Itoa(os.Getpid())
}

func removeSocket(string) {}
