package player

import (
	"sync"
	"time"

	"github.com/PizzaHomicide/mediaplayer/internal/log"
)

// Signal names a notification stream
type Signal string

const (
	SignalTimeChanged  Signal = "time-changed"
	SignalStateChanged Signal = "state-changed"
)

// Notification is delivered to subscribers.  Time is set for time-changed, State and Previous for
// state-changed.
type Notification struct {
	Signal   Signal
	Time     int64
	State    State
	Previous State
}

// publisher fans notifications out to subscribers.  Time notifications are coalesced to at most one per
// interval with the latest value delivered on the trailing edge; state notifications are delivered in order,
// every time, after flushing any time value still waiting.
type publisher struct {
	interval  time.Duration
	queueSize int

	mu           sync.Mutex
	subs         map[*Subscription]struct{}
	lastSent     time.Time
	sentAny      bool
	pending      int64
	hasPending   bool
	timer        *time.Timer
	timerVersion int
	closed       bool
}

func newPublisher(interval time.Duration, queueSize int) *publisher {
	return &publisher{
		interval:  interval,
		queueSize: queueSize,
		subs:      make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new observer.  Subscribing to a closed publisher returns an already closed
// subscription.
func (p *publisher) Subscribe() *Subscription {
	s := newSubscription(p, p.queueSize)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		s.finish()
		return s
	}
	p.subs[s] = struct{}{}
	return s
}

func (p *publisher) unsubscribe(s *Subscription) {
	p.mu.Lock()
	delete(p.subs, s)
	p.mu.Unlock()
}

// PublishTime delivers t now if nothing was delivered within the interval, otherwise holds it for the trailing
// flush.  A newer value replaces a held one.
func (p *publisher) PublishTime(t int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	now := time.Now()
	if !p.sentAny || now.Sub(p.lastSent) >= p.interval {
		p.cancelTimer()
		p.hasPending = false
		p.deliverTime(t, now)
		return
	}

	p.pending, p.hasPending = t, true
	if p.timer == nil {
		version := p.timerVersion
		p.timer = time.AfterFunc(p.interval-now.Sub(p.lastSent), func() { p.flush(version) })
	}
}

// flush delivers the held time value from the trailing-edge timer
func (p *publisher) flush(version int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if version != p.timerVersion || p.closed {
		return
	}
	p.timer = nil
	p.timerVersion++
	if p.hasPending {
		p.hasPending = false
		p.deliverTime(p.pending, time.Now())
	}
}

// PublishState delivers any held time value, then the transition
func (p *publisher) PublishState(prev, next State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	if p.hasPending {
		p.cancelTimer()
		p.hasPending = false
		p.deliverTime(p.pending, time.Now())
	}
	p.deliver(Notification{Signal: SignalStateChanged, State: next, Previous: prev})
}

// ResetTime drops any held value and delivers t immediately.  Used after seeks and media changes, where the
// new position must not wait behind the interval.
func (p *publisher) ResetTime(t int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	p.cancelTimer()
	p.hasPending = false
	p.deliverTime(t, time.Now())
}

// cancelTimer must be called with mu held
func (p *publisher) cancelTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
		p.timerVersion++
	}
}

// deliverTime must be called with mu held
func (p *publisher) deliverTime(t int64, now time.Time) {
	p.lastSent, p.sentAny = now, true
	log.Trace("Publishing time", "ms", t)
	p.deliver(Notification{Signal: SignalTimeChanged, Time: t})
}

// deliver must be called with mu held
func (p *publisher) deliver(n Notification) {
	for s := range p.subs {
		s.push(n)
	}
}

// Close stops publishing.  Subscribers receive what is already queued and then see their channel closed.
func (p *publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.cancelTimer()
	for s := range p.subs {
		s.finish()
	}
	p.subs = nil
}

// Subscription is one observer's ordered mailbox.  A goroutine moves notifications from the mailbox onto the
// channel so a slow reader never blocks the player.
type Subscription struct {
	pub   *publisher
	ch    chan Notification
	limit int

	mu       sync.Mutex
	queue    []Notification
	warned   bool
	draining bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newSubscription(pub *publisher, limit int) *Subscription {
	s := &Subscription{
		pub:   pub,
		ch:    make(chan Notification),
		limit: limit,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go s.pump()
	return s
}

// Notifications returns the channel notifications arrive on.  It is closed after Close, or after the player is
// closed and everything queued has been received.
func (s *Subscription) Notifications() <-chan Notification {
	return s.ch
}

// Close unsubscribes and discards anything not yet received
func (s *Subscription) Close() {
	s.pub.unsubscribe(s)
	s.closeOnce.Do(func() { close(s.done) })
}

// push appends n.  A time value waiting at the tail is replaced by a newer one.  Over the limit, superseded time
// values are compacted away; state values are never dropped, so the mailbox may still grow past its limit when
// an observer stops reading.
func (s *Subscription) push(n Notification) {
	s.mu.Lock()
	last := len(s.queue) - 1
	if n.Signal == SignalTimeChanged && last >= 0 && s.queue[last].Signal == SignalTimeChanged {
		s.queue[last] = n
	} else {
		s.queue = append(s.queue, n)
	}
	if len(s.queue) > s.limit {
		s.compact()
	}
	if len(s.queue) > s.limit && !s.warned {
		s.warned = true
		log.Warn("Subscriber is falling behind, notification queue over limit", "queued", len(s.queue), "limit", s.limit)
	}
	s.mu.Unlock()

	s.signal()
}

// compact drops time values that a later queued time value supersedes, except the one delivered just before
// playback stopped, ended or failed.  Must be called with mu held.
func (s *Subscription) compact() {
	lastTime := -1
	for i, n := range s.queue {
		if n.Signal == SignalTimeChanged {
			lastTime = i
		}
	}

	kept := s.queue[:0]
	for i, n := range s.queue {
		if n.Signal == SignalTimeChanged && i < lastTime && !endsPlayback(s.queue[i+1]) {
			continue
		}
		kept = append(kept, n)
	}
	s.queue = kept
}

func endsPlayback(n Notification) bool {
	if n.Signal != SignalStateChanged {
		return false
	}
	switch n.State {
	case StateStopped, StateEnded, StateError:
		return true
	}
	return false
}

// finish lets the pump drain the mailbox and then close the channel
func (s *Subscription) finish() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			draining := s.draining
			s.mu.Unlock()
			if draining {
				return
			}
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		// Pop before sending so a tail replacement cannot touch the value in flight
		n := s.queue[0]
		s.queue = s.queue[1:]
		if len(s.queue) <= s.limit {
			s.warned = false
		}
		s.mu.Unlock()

		select {
		case s.ch <- n:
		case <-s.done:
			return
		}
	}
}
