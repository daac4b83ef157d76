package player

import (
	"github.com/PizzaHomicide/mediaplayer/internal/engine"
	"github.com/PizzaHomicide/mediaplayer/internal/log"
)

// RenderSink receives decoded frames.  The player holds a reference but does not own it.
type RenderSink interface {
	// Ready reports whether the sink can take a frame right now
	Ready() bool
	Render(engine.Frame) error
}

// SetRenderSink replaces the sink.  It waits for a frame being rendered into the old sink to finish, so the old
// sink can be torn down as soon as this returns.  nil detaches.
func (p *Player) SetRenderSink(sink RenderSink) {
	p.sinkMu.Lock()
	defer p.sinkMu.Unlock()
	if p.closed.Load() {
		return
	}
	p.sink = sink
}

// DeliverFrame hands a frame to the sink.  It does not go through the event queue; frames arriving while there
// is no ready sink are counted and dropped.
func (p *Player) DeliverFrame(f engine.Frame) {
	p.sinkMu.RLock()
	defer p.sinkMu.RUnlock()

	if p.sink == nil || !p.sink.Ready() {
		p.dropped.Add(1)
		return
	}
	if err := p.sink.Render(f); err != nil {
		p.dropped.Add(1)
		log.Debug("Render sink rejected frame", "pts", f.PTS, "error", err)
	}
}

// DroppedFrames counts frames that never reached a sink
func (p *Player) DroppedFrames() uint64 {
	return p.dropped.Load()
}
