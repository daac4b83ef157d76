// Package player implements a playback-control facade over an engine: a state machine driven by engine events,
// validated property writes, media binding, and rate-limited notifications.
package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PizzaHomicide/mediaplayer/internal/engine"
	"github.com/PizzaHomicide/mediaplayer/internal/log"
	"github.com/PizzaHomicide/mediaplayer/internal/media"
)

// ErrCodeMediaInvalid is the fault code used when the bound media is invalidated while it plays
const ErrCodeMediaInvalid = "media-invalidated"

// Options tunes a Player.  Zero values fall back to the defaults below.
type Options struct {
	TimeInterval          time.Duration // minimum spacing of time-changed notifications
	StopTimeout           time.Duration // bound on waiting for the engine to confirm a stop
	EventQueueSize        int
	NotificationQueueSize int
	AllowReverse          bool // permit negative rates on engines that support them
}

const (
	defaultTimeInterval          = 200 * time.Millisecond
	defaultStopTimeout           = 3 * time.Second
	defaultEventQueueSize        = 256
	defaultNotificationQueueSize = 16

	// how often Stop, SetMedia and Close repeat their interrupt while waiting for the command lock
	interruptRetry = 5 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.TimeInterval <= 0 {
		o.TimeInterval = defaultTimeInterval
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = defaultStopTimeout
	}
	if o.EventQueueSize <= 0 {
		o.EventQueueSize = defaultEventQueueSize
	}
	if o.NotificationQueueSize <= 0 {
		o.NotificationQueueSize = defaultNotificationQueueSize
	}
	return o
}

// control is a request from a caller's goroutine that must be ordered with engine events
type control int

const (
	ctlNone       control = iota
	ctlOpenBegin          // hold engine events while the engine is asked to open
	ctlOpenCommit         // open accepted: enter Opening, then release held events
	ctlOpenAbort          // open refused: release held events
	ctlStop               // local stop from Ended or Error, where the engine has nothing to stop
	ctlForceStop          // engine did not confirm a stop; a late confirmation will be swallowed
	ctlSeek               // arg: new position
	ctlMediaReset         // arg: 1 to announce the time reset
)

type item struct {
	ev   Event
	ctl  control
	arg  int64
	done chan struct{}
}

// Player controls one engine.  All methods are safe for concurrent use.  Engine events are handled one at a
// time on an internal goroutine; commands serialise among themselves and synchronise with that goroutine
// through the same queue.
type Player struct {
	eng  *engine.Handle
	opts Options
	pub  *publisher

	queue       chan item
	quit        chan struct{}
	loopDone    chan struct{}
	adapterDone chan struct{}

	// held by every command for its whole duration
	cmdMu sync.Mutex

	mu             sync.Mutex
	machine        stateMachine
	changed        chan struct{} // closed and replaced on every transition
	media          *media.Handle
	time           int64
	allowRewind    bool
	sessionStarted bool
	videoOutput    bool
	videoW, videoH int
	applied        settings
	pending        map[setting]any
	tracks         []engine.Track
	lastErr        error
	staleStops     int
	session        context.Context
	cancelSession  context.CancelFunc

	// owned by the loop goroutine
	holding bool
	held    []Event

	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	sinkMu  sync.RWMutex
	sink    RenderSink
	dropped atomic.Uint64
}

// New takes ownership of eng and starts the player.  sink may be nil.  Engines that hand out frames are wired
// to DeliverFrame.
func New(eng *engine.Handle, sink RenderSink, opts Options) *Player {
	opts = opts.withDefaults()
	p := &Player{
		eng:         eng,
		opts:        opts,
		pub:         newPublisher(opts.TimeInterval, opts.NotificationQueueSize),
		queue:       make(chan item, opts.EventQueueSize),
		quit:        make(chan struct{}),
		loopDone:    make(chan struct{}),
		adapterDone: make(chan struct{}),
		changed:     make(chan struct{}),
		applied:     defaultSettings(),
		pending:     make(map[setting]any),
		sink:        sink,
	}
	p.session, p.cancelSession = context.WithCancel(context.Background())

	if fs, ok := eng.Engine().(engine.FrameSource); ok {
		fs.SetFrameHandler(p.DeliverFrame)
	}

	go p.run()
	go p.adapt()
	return p
}

// adapt drains the engine's raw events into the queue
func (p *Player) adapt() {
	defer close(p.adapterDone)

	var a adapter
	for raw := range p.eng.Events() {
		log.Trace("Engine event", "event", raw.Event, "name", raw.Name, "data", string(raw.Data))
		ev, ok := a.translate(raw)
		if !ok {
			continue
		}
		if !p.enqueue(item{ev: ev}) {
			return
		}
	}

	if !p.closed.Load() {
		log.Error("Engine event stream closed unexpectedly")
		p.enqueue(item{ev: engineGone("engine event stream closed")})
	}
}

func (p *Player) enqueue(it item) bool {
	select {
	case p.queue <- it:
		return true
	case <-p.quit:
		return false
	}
}

// post queues a control request and waits until the loop has handled it
func (p *Player) post(c control, arg int64) {
	done := make(chan struct{})
	if !p.enqueue(item{ctl: c, arg: arg, done: done}) {
		return
	}
	select {
	case <-done:
	case <-p.loopDone:
	}
}

func (p *Player) run() {
	defer close(p.loopDone)
	for {
		select {
		case it := <-p.queue:
			p.handle(it)
			if it.done != nil {
				close(it.done)
			}
		case <-p.quit:
			return
		}
	}
}

func (p *Player) handle(it item) {
	if it.ctl != ctlNone {
		p.handleControl(it.ctl, it.arg)
		return
	}
	if p.holding {
		p.held = append(p.held, it.ev)
		return
	}
	p.handleEvent(it.ev)
}

func (p *Player) handleControl(c control, arg int64) {
	switch c {
	case ctlOpenBegin:
		p.holding = true

	case ctlOpenCommit:
		p.mu.Lock()
		hadTime := p.time != 0
		p.time, p.allowRewind, p.sessionStarted = 0, false, false
		p.lastErr = nil
		p.mu.Unlock()

		p.transition(trigOpenRequested)
		if hadTime {
			p.pub.ResetTime(0)
		}
		p.releaseHeld()

	case ctlOpenAbort:
		p.releaseHeld()

	case ctlStop:
		p.transition(trigStopped)

	case ctlForceStop:
		p.mu.Lock()
		p.staleStops++
		p.mu.Unlock()
		p.transition(trigStopped)

	case ctlSeek:
		p.mu.Lock()
		p.time, p.allowRewind = arg, true
		p.mu.Unlock()
		p.pub.ResetTime(arg)

	case ctlMediaReset:
		p.mu.Lock()
		p.time, p.allowRewind, p.sessionStarted = 0, false, false
		p.videoOutput, p.videoW, p.videoH = false, 0, 0
		p.tracks = nil
		p.mu.Unlock()
		if arg == 1 {
			p.pub.ResetTime(0)
		}
	}
}

func (p *Player) releaseHeld() {
	held := p.held
	p.holding, p.held = false, nil
	for _, ev := range held {
		p.handleEvent(ev)
	}
}

func (p *Player) handleEvent(ev Event) {
	switch ev.Kind {
	case EventTimeChanged:
		p.onTime(ev.Time)
		return

	case EventVideoOutput:
		p.onVideoOutput(ev.Width, ev.Height)
		return

	case EventOpening:
		log.Debug("Engine is opening media")
		// the engine reports the end of the previous file before it starts the next one, so any stop
		// confirmation still expected will not come
		p.mu.Lock()
		if p.machine.current == StateOpening && p.staleStops > 0 {
			log.Debug("Discarding expected stop confirmations", "count", p.staleStops)
			p.staleStops = 0
		}
		p.mu.Unlock()
		return

	case EventBuffering:
		log.Debug("Engine is buffering", "percent", ev.Percent)

	case EventError:
		if !ev.Fatal {
			log.Warn("Recoverable engine error", "code", ev.Code, "message", ev.Message)
			return
		}
		log.Error("Engine fault", "code", ev.Code, "message", ev.Message)
		p.mu.Lock()
		p.lastErr = &EngineFaultError{Code: ev.Code, Message: ev.Message}
		p.mu.Unlock()

	case EventStopped:
		p.mu.Lock()
		if p.staleStops > 0 {
			p.staleStops--
			p.mu.Unlock()
			log.Debug("Ignoring late engine stop confirmation")
			return
		}
		p.mu.Unlock()
	}

	if trig, ok := ev.trigger(); ok {
		p.transition(trig)
	}
}

// transition commits the state change before publishing it, so a subscriber reading State() sees the new value
func (p *Player) transition(t trigger) {
	p.mu.Lock()
	cur := p.machine.current
	stopEngine := false
	if next, ok := transitions[cur][t]; ok && next.active() && !p.media.Valid() {
		p.lastErr = &EngineFaultError{Code: ErrCodeMediaInvalid, Message: "media handle invalidated during playback"}
		t, stopEngine = trigFatal, true
	}

	prev, next, changed := p.machine.fire(t)
	if !changed {
		p.mu.Unlock()
		return
	}
	close(p.changed)
	p.changed = make(chan struct{})

	switch next {
	case StatePlaying:
		if !p.sessionStarted {
			p.sessionStarted = true
			p.spawnApply(sessionSettings)
		}
	case StateStopped, StateEnded, StateError:
		p.videoOutput, p.videoW, p.videoH = false, 0, 0
		p.tracks = nil
	}
	if stopEngine {
		p.staleStops++
		p.spawnStop()
	}
	p.mu.Unlock()

	log.Info("Player state changed", "from", prev.String(), "to", next.String(), "trigger", t.String())
	p.pub.PublishState(prev, next)
}

func (p *Player) onTime(ms int64) {
	p.mu.Lock()
	st := p.machine.current
	if st == StateStopped || st == StateEnded || st == StateError {
		p.mu.Unlock()
		return
	}
	if st == StatePlaying && ms < p.time && !p.allowRewind && p.applied.rate > 0 {
		last := p.time
		p.mu.Unlock()
		log.Trace("Dropping out of order time update", "ms", ms, "last", last)
		return
	}
	p.time, p.allowRewind = ms, false
	p.mu.Unlock()

	p.pub.PublishTime(ms)
}

func (p *Player) onVideoOutput(w, h int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.machine.current.active() && p.machine.current != StateOpening {
		return
	}
	p.videoOutput, p.videoW, p.videoH = true, w, h
	log.Debug("Video output available", "width", w, "height", h)
	p.spawnApply(geometrySettings)
}

// spawnApply applies queued writes on a separate goroutine, since applying is a command and the loop must keep
// handling engine events meanwhile.  Must be called with mu held.
func (p *Player) spawnApply(keys []setting) {
	if p.closed.Load() || !hasAny(p.pending, keys) {
		return
	}
	ctx := p.session
	p.wg.Add(1)
	go p.applyPending(ctx, keys)
}

// spawnStop stops the engine behind the loop's back.  Must be called with mu held.
func (p *Player) spawnStop() {
	if p.closed.Load() {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.opts.StopTimeout)
		defer cancel()
		if err := p.eng.Stop(ctx); err != nil {
			log.Warn("Failed to stop engine after media was invalidated", "error", err)
		}
	}()
}

// waitState blocks until pred holds for the current state
func (p *Player) waitState(ctx context.Context, pred func(State) bool) (State, error) {
	for {
		p.mu.Lock()
		s, ch := p.machine.current, p.changed
		p.mu.Unlock()
		if pred(s) {
			return s, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return s, ctx.Err()
		case <-p.loopDone:
			return s, ErrClosed
		}
	}
}

// interrupt cancels the context every waiting command is using and starts a new one
func (p *Player) interrupt() {
	p.mu.Lock()
	p.cancelSession()
	p.session, p.cancelSession = context.WithCancel(context.Background())
	p.mu.Unlock()
}

// lockInterrupting takes the command lock.  It keeps cancelling the session while it waits, so a command that
// picked up the new session before the lock was handed over is interrupted as well.
func (p *Player) lockInterrupting() {
	locked := make(chan struct{})
	go func() {
		p.cmdMu.Lock()
		close(locked)
	}()

	p.interrupt()
	ticker := time.NewTicker(interruptRetry)
	defer ticker.Stop()
	for {
		select {
		case <-locked:
			return
		case <-ticker.C:
			p.interrupt()
		}
	}
}

// lockCommand takes the command lock.  The caller must unlock cmdMu when err is nil.
func (p *Player) lockCommand() (context.Context, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	p.cmdMu.Lock()
	if p.closed.Load() {
		p.cmdMu.Unlock()
		return nil, ErrClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session, nil
}

func (p *Player) commandError(command string, ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	if errors.Is(err, engine.ErrReleased) {
		return ErrClosed
	}
	log.Warn("Engine refused command", "command", command, "error", err)
	return &EngineCommandError{Command: command, Err: err}
}

func (p *Player) checkMedia() error {
	p.mu.Lock()
	h := p.media
	p.mu.Unlock()

	if h == nil {
		return &ValidationError{Property: "media", Value: nil, Reason: "bind media before playing", Err: ErrNoMedia}
	}
	if !h.Valid() {
		return &ValidationError{Property: "media", Value: h.Location(), Reason: "handle was invalidated", Err: ErrInvalidMedia}
	}
	return nil
}

// Play starts or resumes playback.  From Stopped, Ended or Error it opens the bound media and returns once the
// player is Opening; from Paused it returns once the engine has resumed.
func (p *Player) Play() error {
	ctx, err := p.lockCommand()
	if err != nil {
		return err
	}
	defer p.cmdMu.Unlock()

	if err := p.checkMedia(); err != nil {
		return err
	}

	switch p.State() {
	case StatePlaying, StateOpening, StateBuffering:
		return nil

	case StatePaused:
		if err := p.eng.Play(ctx); err != nil {
			return p.commandError("play", ctx, err)
		}
		s, err := p.waitState(ctx, func(s State) bool { return s != StatePaused })
		if err != nil || s != StatePlaying {
			return ErrInterrupted
		}
		return nil
	}

	p.mu.Lock()
	location := p.media.Location()
	p.mu.Unlock()

	log.Info("Opening media", "location", location)
	p.post(ctlOpenBegin, 0)
	if err := p.eng.Open(ctx, location); err != nil {
		if ctx.Err() != nil {
			p.cancelOpen()
		}
		p.post(ctlOpenAbort, 0)
		return p.commandError("open", ctx, err)
	}
	p.post(ctlOpenCommit, 0)
	return nil
}

// cancelOpen stops the engine after an interrupted open, since the engine may have taken the file before the
// interruption.  Engine events are still held, so the stop confirmation is counted as stale before it is seen.
func (p *Player) cancelOpen() {
	ctx, cancel := context.WithTimeout(context.Background(), p.opts.StopTimeout)
	defer cancel()
	if err := p.eng.Stop(ctx); err != nil {
		log.Warn("Failed to stop engine after interrupted open", "error", err)
		return
	}
	p.mu.Lock()
	p.staleStops++
	p.mu.Unlock()
	log.Debug("Stopped engine after interrupted open")
}

// Pause pauses playback and returns once the engine has acknowledged it.  Pausing while paused is a no-op;
// pausing in any other state than Playing is a validation error.
func (p *Player) Pause() error {
	ctx, err := p.lockCommand()
	if err != nil {
		return err
	}
	defer p.cmdMu.Unlock()

	switch st := p.State(); st {
	case StatePaused:
		return nil
	case StatePlaying:
	default:
		return &ValidationError{Property: "state", Value: st.String(), Reason: "pause requires playback", Err: ErrNotPlaying}
	}

	if err := p.eng.Pause(ctx); err != nil {
		return p.commandError("pause", ctx, err)
	}
	s, err := p.waitState(ctx, func(s State) bool { return s != StatePlaying })
	if err != nil || s != StatePaused {
		return ErrInterrupted
	}
	return nil
}

// TogglePause pauses while playing and plays otherwise
func (p *Player) TogglePause() error {
	if p.State() == StatePlaying {
		return p.Pause()
	}
	return p.Play()
}

// Stop stops playback and waits for the engine to confirm.  Any command blocked on the engine returns
// ErrInterrupted.  Stopping while stopped is a no-op.  If the engine does not confirm within the stop timeout
// the player stops locally and a warning is logged.
func (p *Player) Stop() error {
	if p.closed.Load() {
		return ErrClosed
	}
	p.lockInterrupting()
	defer p.cmdMu.Unlock()
	if p.closed.Load() {
		return ErrClosed
	}

	err := p.stopAndWait()
	var timeout *BindingTimeoutError
	if errors.As(err, &timeout) {
		log.Warn("Engine did not confirm stop, stopped locally", "timeout", p.opts.StopTimeout)
		return nil
	}
	return err
}

// stopAndWait must be called with cmdMu held
func (p *Player) stopAndWait() error {
	switch p.State() {
	case StateStopped:
		return nil
	case StateEnded, StateError:
		p.post(ctlStop, 0)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.opts.StopTimeout)
	defer cancel()

	if err := p.eng.Stop(ctx); err != nil {
		if errors.Is(err, engine.ErrReleased) {
			return ErrClosed
		}
		log.Warn("Engine refused stop", "error", err)
		return &EngineCommandError{Command: "stop", Err: err}
	}

	s, err := p.waitState(ctx, func(s State) bool {
		return s == StateStopped || s == StateEnded || s == StateError
	})
	if err != nil {
		p.post(ctlForceStop, 0)
		return &BindingTimeoutError{Timeout: p.opts.StopTimeout, Cause: err}
	}
	if s != StateStopped {
		p.post(ctlStop, 0)
	}
	return nil
}

// State returns the current state
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.machine.current
}

// IsPlaying reports whether the state is Playing
func (p *Player) IsPlaying() bool {
	return p.State() == StatePlaying
}

// WillPlay reports whether playback is on its way or suspended: Opening, Buffering or Paused
func (p *Player) WillPlay() bool {
	switch p.State() {
	case StateOpening, StateBuffering, StatePaused:
		return true
	}
	return false
}

// LastError returns the fault that put the player into StateError, or nil
func (p *Player) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Time returns the last known playback position in milliseconds
func (p *Player) Time() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.time
}

// SetTime seeks to ms.  Without an active session the position is queued and used as the start position of the
// next playback.
func (p *Player) SetTime(ms int64) error {
	if ms < 0 {
		return &ValidationError{Property: "time", Value: ms, Reason: "must not be negative"}
	}
	return p.set(settingStartTime, ms)
}

// Subscribe returns a new observer of time and state notifications
func (p *Player) Subscribe() *Subscription {
	return p.pub.Subscribe()
}

// Close interrupts pending commands, releases the engine and ends every subscription.  It is safe to call more
// than once.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)

		// wait for in-flight commands, then make sure nothing new is spawned
		p.lockInterrupting()
		p.mu.Lock()
		p.cancelSession()
		p.mu.Unlock()
		p.cmdMu.Unlock()
		p.wg.Wait()

		p.closeErr = p.eng.Release()
		<-p.adapterDone
		close(p.quit)
		<-p.loopDone

		p.sinkMu.Lock()
		p.sink = nil
		p.sinkMu.Unlock()

		p.pub.Close()
		log.Debug("Player closed")
	})
	return p.closeErr
}
