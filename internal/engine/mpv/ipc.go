package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/PizzaHomicide/mediaplayer/internal/engine"
	"github.com/PizzaHomicide/mediaplayer/internal/log"
)

// ErrDisconnected is returned for requests that cannot complete because the IPC connection went away
var ErrDisconnected = errors.New("mpv ipc connection closed")

// ReplyError is an error status returned by mpv for a command
type ReplyError struct {
	Command string
	Status  string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("mpv %s: %s", e.Command, e.Status)
}

type reply struct {
	data   json.RawMessage
	status string
}

// ipcClient speaks mpv's JSON IPC protocol over a connected socket.  Replies are matched to requests by
// request_id; everything else is forwarded to the events channel.
type ipcClient struct {
	conn net.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int
	pending map[int]chan reply

	events  chan engine.RawEvent
	done    chan struct{} // closed when the read loop exits
	closing chan struct{} // closed by close
	once    sync.Once
}

func newIPCClient(conn net.Conn, eventBuffer int) *ipcClient {
	c := &ipcClient{
		conn:    conn,
		pending: make(map[int]chan reply),
		events:  make(chan engine.RawEvent, eventBuffer),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
	go c.readEvents()
	return c
}

// connectWithRetry dials the socket until it appears, the attempts run out or ctx ends
func connectWithRetry(ctx context.Context, socketPath string, maxAttempts int, retryDelay time.Duration) (net.Conn, error) {
	log.Debug("Waiting for mpv to create socket", "socket_path", socketPath, "max_attempts", maxAttempts)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if socketReady(socketPath) {
			conn, err := dial(ctx, socketPath)
			if err == nil {
				log.Info("Connected to mpv", "attempt", attempt)
				return conn, nil
			}
			lastErr = err
			log.Debug("Failed to connect to mpv", "attempt", attempt, "error", err)
		} else {
			log.Debug("mpv socket does not exist yet", "attempt", attempt, "path", socketPath)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed to connect to mpv after %d attempts: %w", maxAttempts, lastErr)
	}
	return nil, fmt.Errorf("failed to connect to mpv after %d attempts", maxAttempts)
}

func (c *ipcClient) readEvents() {
	defer c.shutdown()

	scanner := bufio.NewScanner(c.conn)
	// track-list replies for files with many streams exceed the default token size
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		log.Trace("Raw mpv message", "data", string(line))

		var msg engine.RawEvent
		if err := json.Unmarshal(line, &msg); err != nil {
			log.Error("Failed to unmarshal mpv message", "error", err)
			continue
		}

		if msg.Event == "" {
			c.deliverReply(msg)
			continue
		}

		select {
		case c.events <- msg:
		case <-c.closing:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		log.Error("Error reading from mpv socket", "error", err)
	}
	log.Debug("mpv event reader stopped")
}

func (c *ipcClient) deliverReply(msg engine.RawEvent) {
	c.mu.Lock()
	ch, ok := c.pending[msg.RequestID]
	delete(c.pending, msg.RequestID)
	c.mu.Unlock()

	if !ok {
		log.Debug("Dropping mpv reply without a waiting request", "request_id", msg.RequestID)
		return
	}
	ch <- reply{data: msg.Data, status: msg.Error}
}

// shutdown runs once when the read loop exits: waiting requests fail and the event channel closes
func (c *ipcClient) shutdown() {
	c.mu.Lock()
	close(c.done)
	c.pending = make(map[int]chan reply)
	c.mu.Unlock()
	close(c.events)
}

// Request sends a command and waits for mpv's reply
func (c *ipcClient) Request(ctx context.Context, args ...any) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, errors.New("empty mpv command")
	}
	name := fmt.Sprint(args[0])

	ch := make(chan reply, 1)
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return nil, ErrDisconnected
	default:
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.send(args, id); err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case r := <-ch:
		if r.status != "success" {
			return nil, &ReplyError{Command: name, Status: r.status}
		}
		return r.data, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrDisconnected
	}
}

func (c *ipcClient) forget(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *ipcClient) send(args []any, id int) error {
	data, err := json.Marshal(map[string]any{
		"command":    args,
		"request_id": id,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// ObserveProperty asks mpv to emit property-change events for name
func (c *ipcClient) ObserveProperty(ctx context.Context, id int, name string) error {
	_, err := c.Request(ctx, "observe_property", id, name)
	return err
}

// Events returns the channel of unsolicited mpv events.  It is closed when the connection ends.
func (c *ipcClient) Events() <-chan engine.RawEvent {
	return c.events
}

// Done is closed once the connection has ended
func (c *ipcClient) Done() <-chan struct{} {
	return c.done
}

func (c *ipcClient) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closing)
		err = c.conn.Close()
	})
	return err
}
