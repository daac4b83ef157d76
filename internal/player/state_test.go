package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name     string
		from     State
		triggers []trigger
		want     []State
	}{
		{
			name:     "open, buffer, play",
			from:     StateStopped,
			triggers: []trigger{trigOpenRequested, trigBuffering, trigPlaying},
			want:     []State{StateOpening, StateBuffering, StatePlaying},
		},
		{
			name:     "open straight to playing",
			from:     StateStopped,
			triggers: []trigger{trigOpenRequested, trigPlaying},
			want:     []State{StateOpening, StatePlaying},
		},
		{
			name:     "pause and resume",
			from:     StatePlaying,
			triggers: []trigger{trigPaused, trigPlaying, trigPaused},
			want:     []State{StatePaused, StatePlaying, StatePaused},
		},
		{
			name:     "end of stream while paused",
			from:     StatePaused,
			triggers: []trigger{trigEndReached},
			want:     []State{StateEnded},
		},
		{
			name:     "open fails",
			from:     StateOpening,
			triggers: []trigger{trigFatal},
			want:     []State{StateError},
		},
		{
			name:     "replay after end",
			from:     StateEnded,
			triggers: []trigger{trigOpenRequested, trigPlaying},
			want:     []State{StateOpening, StatePlaying},
		},
		{
			name:     "retry after error",
			from:     StateError,
			triggers: []trigger{trigOpenRequested},
			want:     []State{StateOpening},
		},
		{
			name:     "stop from anywhere",
			from:     StateBuffering,
			triggers: []trigger{trigStopped},
			want:     []State{StateStopped},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := stateMachine{current: tt.from}
			var got []State
			for _, trig := range tt.triggers {
				if _, next, changed := m.fire(trig); changed {
					got = append(got, next)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateMachineIgnoresUnknownAndSelfTransitions(t *testing.T) {
	tests := []struct {
		from State
		trig trigger
	}{
		{StatePlaying, trigBuffering}, // underrun is recoverable
		{StatePlaying, trigPlaying},
		{StateStopped, trigStopped},
		{StateStopped, trigPlaying},
		{StateStopped, trigEndReached},
		{StateOpening, trigEndReached},
		{StatePaused, trigPaused},
		{StateError, trigFatal},
		{StateOpening, trigOpenRequested},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.trig.String(), func(t *testing.T) {
			m := stateMachine{current: tt.from}
			prev, next, changed := m.fire(tt.trig)
			assert.False(t, changed)
			assert.Equal(t, tt.from, prev)
			assert.Equal(t, tt.from, next)
			assert.Equal(t, tt.from, m.current)
		})
	}
}

func TestFatalReachesErrorFromEveryOtherState(t *testing.T) {
	for _, s := range []State{StateStopped, StateOpening, StateBuffering, StatePlaying, StatePaused, StateEnded} {
		m := stateMachine{current: s}
		_, next, changed := m.fire(trigFatal)
		assert.True(t, changed, s.String())
		assert.Equal(t, StateError, next)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "playing", StatePlaying.String())
	assert.Equal(t, "unknown", State(42).String())
}
