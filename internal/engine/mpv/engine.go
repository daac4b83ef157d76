// Package mpv implements engine.Engine on top of an mpv child process driven over its JSON IPC socket.
package mpv

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/PizzaHomicide/mediaplayer/internal/engine"
	"github.com/PizzaHomicide/mediaplayer/internal/log"
)

// Properties observed for the whole life of the engine.  Their changes arrive as property-change events.
var observed = []string{
	"time-pos",
	"pause",
	"paused-for-cache",
	"cache-buffering-state",
	"video-params",
}

// Options configures how mpv is launched
type Options struct {
	Path           string // mpv binary, "mpv" when empty
	Args           string // extra command line arguments, quoted the shell way
	SocketPath     string // IPC socket or pipe, per-process default when empty
	ConnectTimeout time.Duration
	EventBuffer    int
}

// Engine controls one idle mpv process.  Media is loaded into it with Open and it stays alive between files.
type Engine struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	ipc        *ipcClient

	closeOnce sync.Once
	closeErr  error
}

var _ engine.Engine = (*Engine)(nil)

// Start launches mpv in idle mode and connects to its IPC socket
func Start(ctx context.Context, opts Options) (*Engine, error) {
	mpvPath := opts.Path
	if mpvPath == "" {
		mpvPath = "mpv"
	}
	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath = defaultSocketPath()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 100
	}

	args := []string{
		"--idle=yes",                       // Stay alive without a file so media can be swapped
		"--no-terminal",                    // Disable terminal control
		"--keep-open=no",                   // Report end-file at the end of playback
		"--input-ipc-server=" + socketPath, // Set IPC socket path
	}
	if opts.Args != "" {
		args = append(args, ParseArgs(opts.Args)...)
	}

	log.Info("Starting mpv", "path", mpvPath, "socket_path", socketPath)
	cmd := exec.Command(mpvPath, args...)
	setupProcess(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		log.Debug("mpv process exited", "error", err)
		close(exited)
	}()

	connCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	attempts := int(opts.ConnectTimeout / (250 * time.Millisecond))
	conn, err := connectWithRetry(connCtx, socketPath, max(attempts, 1), 250*time.Millisecond)
	if err != nil {
		_ = cmd.Process.Kill()
		removeSocket(socketPath)
		return nil, err
	}

	e := &Engine{
		socketPath: socketPath,
		cmd:        cmd,
		exited:     exited,
		ipc:        newIPCClient(conn, opts.EventBuffer),
	}
	if err := e.observe(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

// newEngine wraps an already connected client.  The engine owns no process.
func newEngine(ipc *ipcClient) *Engine {
	return &Engine{ipc: ipc}
}

func (e *Engine) observe(ctx context.Context) error {
	for i, name := range observed {
		if err := e.ipc.ObserveProperty(ctx, i+1, name); err != nil {
			return fmt.Errorf("failed to observe %s: %w", name, err)
		}
	}
	return nil
}

func (e *Engine) command(ctx context.Context, args ...any) error {
	_, err := e.ipc.Request(ctx, args...)
	return err
}

func (e *Engine) setProperty(ctx context.Context, name string, value any) error {
	return e.command(ctx, "set_property", name, value)
}

// Open replaces whatever is loaded with location and starts it unpaused
func (e *Engine) Open(ctx context.Context, location string) error {
	if err := e.setProperty(ctx, "pause", false); err != nil {
		return err
	}
	return e.command(ctx, "loadfile", location, "replace")
}

func (e *Engine) Play(ctx context.Context) error {
	return e.setProperty(ctx, "pause", false)
}

func (e *Engine) Pause(ctx context.Context) error {
	return e.setProperty(ctx, "pause", true)
}

// Stop unloads the current file.  mpv answers with end-file reason=stop and goes idle.
func (e *Engine) Stop(ctx context.Context) error {
	return e.command(ctx, "stop")
}

func (e *Engine) Seek(ctx context.Context, ms int64) error {
	return e.command(ctx, "seek", float64(ms)/1000, "absolute")
}

func (e *Engine) Events() <-chan engine.RawEvent {
	return e.ipc.Events()
}

// Capabilities reports play-direction support, which mpv has had since 0.33
func (e *Engine) Capabilities() engine.Capabilities {
	return engine.Capabilities{ReversePlayback: true}
}

// Close quits mpv, killing it if it does not exit promptly, and removes the socket
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		if e.cmd != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := e.command(ctx, "quit"); err != nil && !errors.Is(err, ErrDisconnected) {
				log.Warn("mpv quit command failed", "error", err)
			}
			cancel()

			select {
			case <-e.exited:
			case <-time.After(2 * time.Second):
				log.Warn("mpv did not exit, killing it")
				e.closeErr = e.cmd.Process.Kill()
			}
		}

		if err := e.ipc.Close(); err != nil {
			log.Debug("Closing mpv connection", "error", err)
		}
		if e.socketPath != "" {
			removeSocket(e.socketPath)
		}
	})
	return e.closeErr
}
