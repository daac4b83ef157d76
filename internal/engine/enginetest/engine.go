// Package enginetest provides a scriptable in-memory engine for tests.
package enginetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/PizzaHomicide/mediaplayer/internal/engine"
)

// Call records one command received by the engine
type Call struct {
	Name string
	Args []any
}

// Engine is a fake engine.  Commands are recorded and acknowledged the way mpv acknowledges them: Pause and Play
// emit a pause property change, Open emits the unpause it writes before loading when the engine was left paused,
// Stop emits end-file with reason stop.  Tests drive everything else with the Emit helpers.
type Engine struct {
	events chan engine.RawEvent

	mu           sync.Mutex
	props        map[engine.Property]any
	calls        []Call
	failures     map[string]error
	caps         engine.Capabilities
	autoAck      bool
	stopAck      bool
	blockSet     bool
	blockOpen    bool
	paused       bool
	frameHandler func(engine.Frame)
	closed       bool
}

// New returns an engine that acknowledges pause, play and stop
func New() *Engine {
	return &Engine{
		events:   make(chan engine.RawEvent, 1024),
		props:    make(map[engine.Property]any),
		failures: make(map[string]error),
		autoAck:  true,
		stopAck:  true,
	}
}

var (
	_ engine.Engine      = (*Engine)(nil)
	_ engine.FrameSource = (*Engine)(nil)
)

func (e *Engine) record(name string, args ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return engine.ErrReleased
	}
	e.calls = append(e.calls, Call{Name: name, Args: args})
	return e.failures[name]
}

// Open records the load.  With BlockOpen it waits for ctx after recording, as if the engine had taken the file
// but not yet answered.
func (e *Engine) Open(ctx context.Context, location string) error {
	if err := e.record("open", location); err != nil {
		return err
	}
	if e.setPaused(false) {
		e.EmitPause(false)
	}
	e.mu.Lock()
	block := e.blockOpen
	e.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (e *Engine) Play(ctx context.Context) error {
	if err := e.record("play"); err != nil {
		return err
	}
	e.setPaused(false)
	if e.ackEnabled() {
		e.EmitPause(false)
	}
	return nil
}

func (e *Engine) Pause(ctx context.Context) error {
	if err := e.record("pause"); err != nil {
		return err
	}
	e.setPaused(true)
	if e.ackEnabled() {
		e.EmitPause(true)
	}
	return nil
}

// setPaused updates the engine's pause flag and reports whether it changed
func (e *Engine) setPaused(v bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := e.paused != v
	e.paused = v
	return changed
}

func (e *Engine) Stop(ctx context.Context) error {
	if err := e.record("stop"); err != nil {
		return err
	}
	e.mu.Lock()
	ack := e.stopAck
	e.mu.Unlock()
	if ack {
		e.EmitEndFile("stop", "")
	}
	return nil
}

func (e *Engine) Seek(ctx context.Context, ms int64) error {
	return e.record("seek", ms)
}

// SetProperty stores the value.  With BlockSetProperty it waits for ctx instead.
func (e *Engine) SetProperty(ctx context.Context, prop engine.Property, value any) error {
	if err := e.record("set", prop, value); err != nil {
		return err
	}
	e.mu.Lock()
	block := e.blockSet
	e.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	e.mu.Lock()
	e.props[prop] = value
	e.mu.Unlock()
	return nil
}

func (e *Engine) GetProperty(ctx context.Context, prop engine.Property) (any, error) {
	if err := e.record("get", prop); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.props[prop]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnsupported, prop)
	}
	return v, nil
}

func (e *Engine) Events() <-chan engine.RawEvent {
	return e.events
}

func (e *Engine) Capabilities() engine.Capabilities {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.caps
}

func (e *Engine) SetFrameHandler(fn func(engine.Frame)) {
	e.mu.Lock()
	e.frameHandler = fn
	e.mu.Unlock()
}

// Close closes the event channel.  Calling it twice panics, which is how tests catch a double release.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		panic("enginetest: engine closed twice")
	}
	e.closed = true
	close(e.events)
	return nil
}

// Closed reports whether Close has been called
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Fail makes the named command ("open", "play", "pause", "stop", "seek", "set", "get") return err.  A nil err
// clears the failure.
func (e *Engine) Fail(command string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failures, command)
		return
	}
	e.failures[command] = err
}

// SetAutoAck controls whether Play and Pause emit their pause property change
func (e *Engine) SetAutoAck(v bool) {
	e.mu.Lock()
	e.autoAck = v
	e.mu.Unlock()
}

// SetStopAck controls whether Stop emits end-file
func (e *Engine) SetStopAck(v bool) {
	e.mu.Lock()
	e.stopAck = v
	e.mu.Unlock()
}

// BlockSetProperty makes SetProperty wait until its context is cancelled
func (e *Engine) BlockSetProperty(v bool) {
	e.mu.Lock()
	e.blockSet = v
	e.mu.Unlock()
}

// BlockOpen makes Open wait until its context is cancelled
func (e *Engine) BlockOpen(v bool) {
	e.mu.Lock()
	e.blockOpen = v
	e.mu.Unlock()
}

func (e *Engine) SetCapabilities(caps engine.Capabilities) {
	e.mu.Lock()
	e.caps = caps
	e.mu.Unlock()
}

// SetValue seeds a property for GetProperty
func (e *Engine) SetValue(prop engine.Property, value any) {
	e.mu.Lock()
	e.props[prop] = value
	e.mu.Unlock()
}

// Value returns what was last stored for prop
func (e *Engine) Value(prop engine.Property) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.props[prop]
	return v, ok
}

// SetTracks seeds the track list
func (e *Engine) SetTracks(tracks ...engine.Track) {
	e.SetValue(engine.PropTracks, tracks)
}

// Calls returns the recorded commands
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// CallCount counts recorded commands with the given name
func (e *Engine) CallCount(name string) int {
	n := 0
	for _, c := range e.Calls() {
		if c.Name == name {
			n++
		}
	}
	return n
}

// DeliverFrame hands a frame to the registered frame handler, if any
func (e *Engine) DeliverFrame(f engine.Frame) {
	e.mu.Lock()
	fn := e.frameHandler
	e.mu.Unlock()
	if fn != nil {
		fn(f)
	}
}

func (e *Engine) ackEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoAck
}

// Emit queues a raw event.  Events emitted after Close are dropped.
func (e *Engine) Emit(ev engine.RawEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.events <- ev
}

func (e *Engine) emitProperty(name string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	e.Emit(engine.RawEvent{Event: "property-change", Name: name, Data: data})
}

// EmitStartFile reports that the engine began opening a file
func (e *Engine) EmitStartFile() {
	e.Emit(engine.RawEvent{Event: "start-file"})
}

// EmitPlaying reports that playback (re)started
func (e *Engine) EmitPlaying() {
	e.Emit(engine.RawEvent{Event: "playback-restart"})
}

func (e *Engine) EmitPause(paused bool) {
	e.emitProperty("pause", paused)
}

// EmitBuffering reports cache fill; percent below 100 means the engine is waiting for data
func (e *Engine) EmitBuffering(percent int) {
	e.emitProperty("paused-for-cache", true)
	e.emitProperty("cache-buffering-state", percent)
}

// EmitTime reports the playback position in milliseconds
func (e *Engine) EmitTime(ms int64) {
	e.emitProperty("time-pos", float64(ms)/1000)
}

func (e *Engine) EmitVideo(width, height int) {
	e.emitProperty("video-params", map[string]int{"w": width, "h": height})
}

// EmitEndFile reports the end of the current file with an mpv reason: eof, stop, quit, error, redirect
func (e *Engine) EmitEndFile(reason, fileError string) {
	e.Emit(engine.RawEvent{Event: "end-file", Reason: reason, FileError: fileError})
}

func (e *Engine) EmitEOF() {
	e.EmitEndFile("eof", "")
}

func (e *Engine) EmitError(fileError string) {
	e.EmitEndFile("error", fileError)
}
