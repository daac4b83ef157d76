package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PizzaHomicide/mediaplayer/internal/engine"
	"github.com/PizzaHomicide/mediaplayer/internal/engine/enginetest"
	"github.com/PizzaHomicide/mediaplayer/internal/media"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func newTestPlayer(t *testing.T, configure ...func(*Options, *enginetest.Engine)) (*Player, *enginetest.Engine) {
	t.Helper()
	fake := enginetest.New()
	opts := Options{TimeInterval: 10 * time.Millisecond, StopTimeout: 200 * time.Millisecond}
	for _, fn := range configure {
		fn(&opts, fake)
	}
	p := New(engine.Own(fake), nil, opts)
	t.Cleanup(func() { _ = p.Close() })
	return p, fake
}

func newHandle(t *testing.T, location string) *media.Handle {
	t.Helper()
	h, err := media.New(location, media.Metadata{})
	require.NoError(t, err)
	return h
}

func waitState(t *testing.T, p *Player, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return p.State() == want }, waitFor, tick, "state never became %s, is %s", want, p.State())
}

// startPlaying binds media if needed and drives the fake engine into Playing
func startPlaying(t *testing.T, p *Player, fake *enginetest.Engine) {
	t.Helper()
	if p.Media().IsAbsent() {
		require.NoError(t, p.SetMedia(newHandle(t, "/media/a.mkv")))
	}
	require.NoError(t, p.Play())
	fake.EmitStartFile()
	fake.EmitPlaying()
	waitState(t, p, StatePlaying)
}

// nextState skips time notifications and returns the next state notification
func nextState(t *testing.T, s *Subscription) Notification {
	t.Helper()
	for {
		n := recv(t, s)
		if n.Signal == SignalStateChanged {
			return n
		}
	}
}

func assertNoState(t *testing.T, s *Subscription, d time.Duration) {
	t.Helper()
	deadline := time.After(d)
	for {
		select {
		case n, ok := <-s.Notifications():
			if !ok {
				return
			}
			if n.Signal == SignalStateChanged {
				t.Fatalf("unexpected state notification %s -> %s", n.Previous, n.State)
			}
		case <-deadline:
			return
		}
	}
}

// collectUntil gathers notifications up to and including the first one matching stop
func collectUntil(t *testing.T, s *Subscription, stop func(Notification) bool) []Notification {
	t.Helper()
	var got []Notification
	for {
		n := recv(t, s)
		got = append(got, n)
		if stop(n) {
			return got
		}
	}
}

func indexOf(ns []Notification, match func(Notification) bool) int {
	for i, n := range ns {
		if match(n) {
			return i
		}
	}
	return -1
}

func TestPlayOpenBufferPlay(t *testing.T) {
	p, fake := newTestPlayer(t)
	require.NoError(t, p.SetMedia(newHandle(t, "/media/a.mkv")))
	sub := p.Subscribe()
	assert.Equal(t, StateStopped, p.State())

	require.NoError(t, p.Play())
	assert.Equal(t, StateOpening, p.State())
	fake.EmitStartFile()
	fake.EmitBuffering(30)
	fake.EmitPlaying()
	fake.EmitTime(0)

	assert.Equal(t, stateNote(StateStopped, StateOpening), nextState(t, sub))
	assert.Equal(t, stateNote(StateOpening, StateBuffering), nextState(t, sub))
	assert.Equal(t, stateNote(StateBuffering, StatePlaying), nextState(t, sub))
	assert.True(t, p.IsPlaying())
	assert.False(t, p.WillPlay())
	assertNoState(t, sub, 50*time.Millisecond)

	calls := fake.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, enginetest.Call{Name: "open", Args: []any{"/media/a.mkv"}}, calls[0])
}

func TestPlayRequiresValidMedia(t *testing.T) {
	p, fake := newTestPlayer(t)

	err := p.Play()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrNoMedia)

	h := newHandle(t, "/media/a.mkv")
	require.NoError(t, p.SetMedia(h))
	h.Invalidate()
	assert.ErrorIs(t, p.Play(), ErrInvalidMedia)

	assert.Equal(t, StateStopped, p.State())
	assert.Zero(t, fake.CallCount("open"))
}

func TestPlayWhileActiveIsNoop(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)

	require.NoError(t, p.Play())
	assert.Equal(t, 1, fake.CallCount("open"))
	assert.Zero(t, fake.CallCount("play"))
}

func TestPauseAndResume(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	sub := p.Subscribe()

	require.NoError(t, p.Pause())
	assert.Equal(t, StatePaused, p.State())
	assert.True(t, p.WillPlay())
	require.NoError(t, p.Pause(), "pausing while paused is a no-op")

	require.NoError(t, p.Play())
	assert.Equal(t, StatePlaying, p.State())

	require.NoError(t, p.TogglePause())
	assert.Equal(t, StatePaused, p.State())
	require.NoError(t, p.TogglePause())
	assert.Equal(t, StatePlaying, p.State())

	assert.Equal(t, stateNote(StatePlaying, StatePaused), nextState(t, sub))
	assert.Equal(t, stateNote(StatePaused, StatePlaying), nextState(t, sub))
	assert.Equal(t, stateNote(StatePlaying, StatePaused), nextState(t, sub))
	assert.Equal(t, stateNote(StatePaused, StatePlaying), nextState(t, sub))
}

func TestPauseOutsidePlaybackIsRejected(t *testing.T) {
	p, fake := newTestPlayer(t)

	err := p.Pause()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrNotPlaying)
	assert.Zero(t, fake.CallCount("pause"))
}

func TestStopIsIdempotent(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	sub := p.Subscribe()

	require.NoError(t, p.Stop())
	assert.Equal(t, StateStopped, p.State())
	require.NoError(t, p.Stop())

	assert.Equal(t, stateNote(StatePlaying, StateStopped), nextState(t, sub))
	assertNoState(t, sub, 50*time.Millisecond)
	assert.Equal(t, 1, fake.CallCount("stop"))
}

func TestStopFromEndedIsLocal(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	fake.EmitEOF()
	waitState(t, p, StateEnded)

	require.NoError(t, p.Stop())
	assert.Equal(t, StateStopped, p.State())
	assert.Zero(t, fake.CallCount("stop"))
}

func TestStopTimeoutForcesLocalStop(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	fake.SetStopAck(false)
	sub := p.Subscribe()

	start := time.Now()
	require.NoError(t, p.Stop())
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, StateStopped, p.State())

	require.NoError(t, p.Play())
	// the engine finally confirms the old stop; it must not end the new session
	fake.EmitEndFile("stop", "")
	fake.EmitPlaying()
	waitState(t, p, StatePlaying)

	assert.Equal(t, stateNote(StatePlaying, StateStopped), nextState(t, sub))
	assert.Equal(t, stateNote(StateStopped, StateOpening), nextState(t, sub))
	assert.Equal(t, stateNote(StateOpening, StatePlaying), nextState(t, sub))
}

func TestStopRefusedByEngine(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	fake.Fail("stop", errors.New("engine busy"))

	err := p.Stop()
	var cmdErr *EngineCommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "stop", cmdErr.Command)
	assert.Equal(t, StatePlaying, p.State())
}

func TestReopenAfterPausedStopWaitsForTheFile(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	require.NoError(t, p.Pause())
	require.NoError(t, p.Stop())
	sub := p.Subscribe()

	// the engine was left paused, so opening reports an unpause before anything is loaded
	require.NoError(t, p.Play())
	assert.Equal(t, stateNote(StateStopped, StateOpening), nextState(t, sub))
	assertNoState(t, sub, 50*time.Millisecond)
	assert.Equal(t, StateOpening, p.State())

	fake.EmitStartFile()
	fake.EmitError("unrecognized file format")
	waitState(t, p, StateError)
	assert.Equal(t, stateNote(StateOpening, StateError), nextState(t, sub))
}

func TestReopenAfterPausedStopAppliesQueuedWritesOnPlayback(t *testing.T) {
	p, fake := newTestPlayer(t)
	fake.SetValue(engine.PropChapterCount, 4)
	startPlaying(t, p, fake)
	require.NoError(t, p.Pause())
	require.NoError(t, p.Stop())

	require.NoError(t, p.SetChapter(2))
	require.NoError(t, p.Play())
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, p.Chapter(), "nothing is applied before the file plays")

	fake.EmitStartFile()
	fake.EmitPlaying()
	waitState(t, p, StatePlaying)
	require.Eventually(t, func() bool { return p.Chapter() == 2 }, waitFor, tick)
}

func TestStopDuringOpenStopsEngine(t *testing.T) {
	p, fake := newTestPlayer(t)
	require.NoError(t, p.SetMedia(newHandle(t, "/media/a.mkv")))
	fake.BlockOpen(true)
	sub := p.Subscribe()

	played := make(chan error, 1)
	go func() { played <- p.Play() }()
	require.Eventually(t, func() bool { return fake.CallCount("open") == 1 }, waitFor, tick)

	require.NoError(t, p.Stop())
	assert.ErrorIs(t, <-played, ErrInterrupted)
	assert.Equal(t, 1, fake.CallCount("stop"), "the engine may already have the file")
	assert.Equal(t, StateStopped, p.State())
	assertNoState(t, sub, 50*time.Millisecond)

	// the swallowed confirmation does not leak into the next session
	fake.BlockOpen(false)
	startPlaying(t, p, fake)
	require.NoError(t, p.Stop())
	assert.Equal(t, 2, fake.CallCount("stop"))
	assert.Equal(t, stateNote(StateStopped, StateOpening), nextState(t, sub))
	assert.Equal(t, stateNote(StateOpening, StatePlaying), nextState(t, sub))
	assert.Equal(t, stateNote(StatePlaying, StateStopped), nextState(t, sub))
}

func TestStopInterruptsCommandsThatKeepRetrying(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	fake.SetAutoAck(false)

	retried := make(chan struct{})
	go func() {
		defer close(retried)
		for errors.Is(p.Pause(), ErrInterrupted) {
		}
	}()
	require.Eventually(t, func() bool { return fake.CallCount("pause") >= 1 }, waitFor, tick)

	stopped := make(chan error, 1)
	go func() { stopped <- p.Stop() }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Stop never got past a command that restarted after each interrupt")
	}
	assert.Equal(t, StateStopped, p.State())
	<-retried
}

func TestEndOfStreamFlushesFinalTime(t *testing.T) {
	p, fake := newTestPlayer(t, func(o *Options, _ *enginetest.Engine) { o.TimeInterval = time.Hour })
	startPlaying(t, p, fake)
	sub := p.Subscribe()

	fake.EmitTime(1000)
	fake.EmitTime(2000)
	fake.EmitTime(3000)
	fake.EmitEOF()
	waitState(t, p, StateEnded)

	got := collectUntil(t, sub, func(n Notification) bool { return n.Signal == SignalStateChanged })
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, timeNote(3000), got[len(got)-2], "final time precedes the transition")
	assert.Equal(t, stateNote(StatePlaying, StateEnded), got[len(got)-1])
	assert.Equal(t, int64(3000), p.Time())
}

func TestPlayAfterEndReopensFromZero(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	fake.EmitTime(5000)
	fake.EmitEOF()
	waitState(t, p, StateEnded)

	require.NoError(t, p.Play())
	assert.Equal(t, StateOpening, p.State())
	assert.Zero(t, p.Time())
	assert.Equal(t, 2, fake.CallCount("open"))
}

func TestEngineFaultDrivesError(t *testing.T) {
	p, fake := newTestPlayer(t)
	require.NoError(t, p.SetMedia(newHandle(t, "/media/broken.mkv")))
	require.NoError(t, p.Play())
	fake.EmitStartFile()
	fake.EmitError("unrecognized file format")
	waitState(t, p, StateError)

	var fault *EngineFaultError
	require.ErrorAs(t, p.LastError(), &fault)
	assert.Equal(t, ErrCodeOpenFailed, fault.Code)
	assert.Equal(t, "unrecognized file format", fault.Message)

	// sticky until a fresh play
	fake.EmitPlaying()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateError, p.State())

	require.NoError(t, p.Play())
	assert.Equal(t, StateOpening, p.State())
	assert.NoError(t, p.LastError())
}

func TestEngineGoneDrivesError(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)

	fake.Emit(engine.RawEvent{Event: "shutdown"})
	waitState(t, p, StateError)

	var fault *EngineFaultError
	require.ErrorAs(t, p.LastError(), &fault)
	assert.Equal(t, ErrCodeEngineGone, fault.Code)
}

func TestRecoverableUnderrunKeepsPlaying(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	sub := p.Subscribe()

	fake.EmitBuffering(10)
	assertNoState(t, sub, 50*time.Millisecond)
	assert.Equal(t, StatePlaying, p.State())
}

func TestOpenRefusedLeavesStateUnchanged(t *testing.T) {
	p, fake := newTestPlayer(t)
	require.NoError(t, p.SetMedia(newHandle(t, "/media/a.mkv")))
	sub := p.Subscribe()
	fake.Fail("open", errors.New("engine busy"))

	err := p.Play()
	var cmdErr *EngineCommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "open", cmdErr.Command)
	assert.Equal(t, StateStopped, p.State())
	assertNoState(t, sub, 50*time.Millisecond)
}

func TestSetMediaWhilePlaying(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	fake.EmitTime(4000)
	require.Eventually(t, func() bool { return p.Time() == 4000 }, waitFor, tick)
	sub := p.Subscribe()

	b := newHandle(t, "/media/b.mkv")
	require.NoError(t, p.SetMedia(b))
	assert.Equal(t, StateStopped, p.State())
	assert.Zero(t, p.Time())
	got, ok := p.Media().Get()
	require.True(t, ok)
	assert.Same(t, b, got)

	require.NoError(t, p.Play())
	fake.EmitStartFile()
	fake.EmitTime(100)

	notes := collectUntil(t, sub, func(n Notification) bool { return n.Signal == SignalTimeChanged && n.Time == 100 })
	stopped := indexOf(notes, func(n Notification) bool { return n == stateNote(StatePlaying, StateStopped) })
	reset := indexOf(notes, func(n Notification) bool { return n == timeNote(0) })
	opening := indexOf(notes, func(n Notification) bool { return n == stateNote(StateStopped, StateOpening) })
	require.NotEqual(t, -1, stopped)
	require.NotEqual(t, -1, reset)
	require.NotEqual(t, -1, opening)
	assert.Less(t, stopped, opening)
	assert.Less(t, reset, len(notes)-1, "time reset before the new media's first time update")

	calls := fake.Calls()
	assert.Equal(t, enginetest.Call{Name: "open", Args: []any{"/media/b.mkv"}}, calls[len(calls)-1])
}

func TestSetMediaResetsSelections(t *testing.T) {
	p, fake := newTestPlayer(t)
	fake.SetTracks(
		engine.Track{ID: 1, Type: engine.TrackAudio},
		engine.Track{ID: 2, Type: engine.TrackAudio},
	)
	startPlaying(t, p, fake)
	require.NoError(t, p.SetRate(2))
	require.NoError(t, p.SetAudioTrack(1))
	require.NoError(t, p.SetFullscreen(true))

	require.NoError(t, p.SetMedia(newHandle(t, "/media/b.mkv")))
	assert.Equal(t, 1, p.Rate())
	assert.Equal(t, 0, p.AudioTrack())
	assert.Equal(t, -1, p.SubtitleTrack())
	assert.True(t, p.Fullscreen(), "fullscreen belongs to the window, not the media")

	// the engine-wide speed is put back when the next media starts
	require.NoError(t, p.Play())
	fake.EmitPlaying()
	require.Eventually(t, func() bool {
		v, _ := fake.Value(engine.PropRate)
		return v == 1
	}, waitFor, tick)
}

func TestSetMediaStopTimeout(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	fake.SetStopAck(false)

	b := newHandle(t, "/media/b.mkv")
	err := p.SetMedia(b)
	var timeout *BindingTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 200*time.Millisecond, timeout.Timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, StateStopped, p.State())
	got, _ := p.Media().Get()
	assert.Same(t, b, got)
}

func TestSetMediaStopRefused(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	refused := errors.New("engine busy")
	fake.Fail("stop", refused)

	err := p.SetMedia(newHandle(t, "/media/b.mkv"))
	var timeout *BindingTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, StateStopped, p.State())
}

func TestSetMediaValidation(t *testing.T) {
	p, _ := newTestPlayer(t)
	h := newHandle(t, "/media/a.mkv")
	h.Invalidate()

	var verr *ValidationError
	require.ErrorAs(t, p.SetMedia(h), &verr)
	assert.True(t, p.Media().IsAbsent())
}

func TestSetMediaNilDetaches(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)

	require.NoError(t, p.SetMedia(nil))
	assert.True(t, p.Media().IsAbsent())
	assert.Equal(t, StateStopped, p.State())
	assert.ErrorIs(t, p.Play(), ErrNoMedia)
}

func TestMediaInvalidatedDuringOpen(t *testing.T) {
	p, fake := newTestPlayer(t)
	h := newHandle(t, "/media/a.mkv")
	require.NoError(t, p.SetMedia(h))
	require.NoError(t, p.Play())

	h.Invalidate()
	fake.EmitPlaying()
	waitState(t, p, StateError)

	var fault *EngineFaultError
	require.ErrorAs(t, p.LastError(), &fault)
	assert.Equal(t, ErrCodeMediaInvalid, fault.Code)
	require.Eventually(t, func() bool { return fake.CallCount("stop") == 1 }, waitFor, tick)

	// the engine's stop confirmation is expected and does not move the state
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateError, p.State())
}

func TestTimeIsNonDecreasingWhilePlaying(t *testing.T) {
	p, fake := newTestPlayer(t, func(o *Options, _ *enginetest.Engine) { o.TimeInterval = time.Millisecond })
	startPlaying(t, p, fake)
	sub := p.Subscribe()

	for _, ms := range []int64{100, 200, 150, 300, 250, 400} {
		fake.EmitTime(ms)
	}

	notes := collectUntil(t, sub, func(n Notification) bool { return n.Time == 400 })
	var last int64
	for _, n := range notes {
		require.Equal(t, SignalTimeChanged, n.Signal)
		assert.GreaterOrEqual(t, n.Time, last)
		last = n.Time
	}
	assert.Equal(t, int64(400), p.Time())
}

func TestTimeNotificationsAreCoalesced(t *testing.T) {
	p, fake := newTestPlayer(t, func(o *Options, _ *enginetest.Engine) { o.TimeInterval = 100 * time.Millisecond })
	startPlaying(t, p, fake)
	sub := p.Subscribe()

	for ms := int64(1); ms <= 50; ms++ {
		fake.EmitTime(ms * 10)
	}

	first := recv(t, sub)
	second := recv(t, sub)
	assert.Equal(t, SignalTimeChanged, first.Signal)
	assert.Equal(t, timeNote(500), second, "latest value delivered on the trailing edge")
	assertQuiet(t, sub, 150*time.Millisecond)
}

func TestSeekMovesTimeAndAllowsRewind(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	fake.EmitTime(5000)
	require.Eventually(t, func() bool { return p.Time() == 5000 }, waitFor, tick)
	sub := p.Subscribe()

	require.NoError(t, p.SetTime(1000))
	assert.Equal(t, int64(1000), p.Time())
	assert.Equal(t, timeNote(1000), recv(t, sub))
	assert.Equal(t, enginetest.Call{Name: "seek", Args: []any{int64(1000)}}, fake.Calls()[len(fake.Calls())-1])

	// the engine lands on a keyframe just before the target
	fake.EmitTime(960)
	require.Eventually(t, func() bool { return p.Time() == 960 }, waitFor, tick)

	var verr *ValidationError
	assert.ErrorAs(t, p.SetTime(-1), &verr)
}

func TestSeekWhilePausedStaysPaused(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	require.NoError(t, p.Pause())

	require.NoError(t, p.SetTime(2000))
	fake.EmitPlaying() // mpv reports playback-restart after every seek
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatePaused, p.State())
}

func TestAudioTrackOutOfRangeKeepsPreviousValue(t *testing.T) {
	p, fake := newTestPlayer(t)
	fake.SetTracks(
		engine.Track{ID: 1, Type: engine.TrackVideo},
		engine.Track{ID: 1, Type: engine.TrackAudio, Lang: "jpn"},
		engine.Track{ID: 2, Type: engine.TrackAudio, Lang: "eng"},
	)
	startPlaying(t, p, fake)
	require.Equal(t, 2, p.CountOfAudioTracks())

	require.NoError(t, p.SetAudioTrack(1))
	assert.Equal(t, 1, p.AudioTrack())

	err := p.SetAudioTrack(2)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "audio track", verr.Property)
	assert.Equal(t, 1, p.AudioTrack())

	require.NoError(t, p.SetAudioTrack(-1))
	assert.Equal(t, -1, p.AudioTrack())
}

func TestSubtitleTrackBounds(t *testing.T) {
	p, fake := newTestPlayer(t)
	fake.SetTracks(engine.Track{ID: 1, Type: engine.TrackSubtitle, Lang: "eng"})
	startPlaying(t, p, fake)

	var verr *ValidationError
	assert.ErrorAs(t, p.SetSubtitleTrack(1), &verr)
	assert.ErrorAs(t, p.SetSubtitleTrack(-2), &verr)
	assert.Equal(t, -1, p.SubtitleTrack())

	require.NoError(t, p.SetSubtitleTrack(0))
	assert.Equal(t, 0, p.SubtitleTrack())
	v, _ := fake.Value(engine.PropSubtitleTrack)
	assert.Equal(t, 0, v)
}

func TestQueuedWritesApplyAtFirstPlaying(t *testing.T) {
	p, fake := newTestPlayer(t)
	fake.SetTracks(
		engine.Track{ID: 1, Type: engine.TrackAudio},
		engine.Track{ID: 2, Type: engine.TrackAudio},
	)

	require.NoError(t, p.SetRate(2))
	require.NoError(t, p.SetAudioTrack(1))
	require.NoError(t, p.SetAudioChannel(AudioChannelLeft))
	require.NoError(t, p.SetTime(3000))
	assert.Equal(t, 1, p.Rate(), "getters report applied values only")
	assert.Zero(t, fake.CallCount("set"))

	require.NoError(t, p.SetMedia(newHandle(t, "/media/a.mkv")))
	require.NoError(t, p.Play())
	fake.EmitStartFile()
	fake.EmitPlaying()

	require.Eventually(t, func() bool { return p.Time() == 3000 }, waitFor, tick)
	assert.Equal(t, 2, p.Rate())
	assert.Equal(t, 1, p.AudioTrack())
	assert.Equal(t, AudioChannelLeft, p.AudioChannel())

	v, _ := fake.Value(engine.PropRate)
	assert.Equal(t, 2, v)
	v, _ = fake.Value(engine.PropAudioChannel)
	assert.Equal(t, "left", v)
	assert.Equal(t, 1, fake.CallCount("seek"))
}

func TestQueuedWriteOutOfBoundsIsDropped(t *testing.T) {
	p, fake := newTestPlayer(t)
	fake.SetTracks(engine.Track{ID: 1, Type: engine.TrackAudio})

	require.NoError(t, p.SetAudioTrack(5))
	startPlaying(t, p, fake)

	require.Eventually(t, func() bool { return fake.CallCount("get") > 0 }, waitFor, tick)
	// takes the command lock, so the queued write has been dealt with when it returns
	require.NoError(t, p.SetFullscreen(true))

	assert.Equal(t, 0, p.AudioTrack())
	_, set := fake.Value(engine.PropAudioTrack)
	assert.False(t, set)
}

func TestDirectWriteSupersedesQueued(t *testing.T) {
	p, fake := newTestPlayer(t)
	require.NoError(t, p.SetMedia(newHandle(t, "/media/a.mkv")))
	require.NoError(t, p.SetRate(2))

	require.NoError(t, p.Play())
	fake.EmitStartFile()
	fake.EmitBuffering(0)
	waitState(t, p, StateBuffering)

	require.NoError(t, p.SetRate(3))
	fake.EmitPlaying()
	waitState(t, p, StatePlaying)
	require.NoError(t, p.SetFullscreen(false))

	assert.Equal(t, 3, p.Rate())
	sets := 0
	for _, c := range fake.Calls() {
		if c.Name == "set" && c.Args[0] == engine.PropRate {
			sets++
		}
	}
	assert.Equal(t, 1, sets)
}

func TestStopUnblocksWaitingSetter(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	fake.BlockSetProperty(true)

	errCh := make(chan error, 1)
	go func() { errCh <- p.SetRate(2) }()
	require.Eventually(t, func() bool { return fake.CallCount("set") == 1 }, waitFor, tick)

	require.NoError(t, p.Stop())
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrInterrupted)
	case <-time.After(waitFor):
		t.Fatal("setter still blocked after stop")
	}
	assert.Equal(t, StateStopped, p.State())
	assert.Equal(t, 1, p.Rate())
}

func TestRateValidation(t *testing.T) {
	t.Run("zero", func(t *testing.T) {
		p, _ := newTestPlayer(t)
		var verr *ValidationError
		assert.ErrorAs(t, p.SetRate(0), &verr)
	})

	t.Run("reverse without engine support", func(t *testing.T) {
		p, _ := newTestPlayer(t, func(o *Options, _ *enginetest.Engine) { o.AllowReverse = true })
		var verr *ValidationError
		require.ErrorAs(t, p.SetRate(-1), &verr)
		assert.Contains(t, verr.Reason, "backwards")
	})

	t.Run("reverse not allowed", func(t *testing.T) {
		p, _ := newTestPlayer(t, func(_ *Options, e *enginetest.Engine) {
			e.SetCapabilities(engine.Capabilities{ReversePlayback: true})
		})
		var verr *ValidationError
		require.ErrorAs(t, p.SetRate(-1), &verr)
		assert.Contains(t, verr.Reason, "disabled")
	})

	t.Run("reverse allowed", func(t *testing.T) {
		p, fake := newTestPlayer(t, func(o *Options, e *enginetest.Engine) {
			o.AllowReverse = true
			e.SetCapabilities(engine.Capabilities{ReversePlayback: true})
		})
		startPlaying(t, p, fake)
		require.NoError(t, p.SetRate(-2))
		assert.Equal(t, -2, p.Rate())
	})
}

func TestGeometryWaitsForVideoOutput(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	assert.False(t, p.HasVideoOutput())

	require.NoError(t, p.SetVideoAspectRatio("16:9"))
	require.NoError(t, p.SetVideoCropGeometry("1920x800+0+140"))
	assert.Equal(t, "", p.VideoAspectRatio())
	_, set := fake.Value(engine.PropAspectRatio)
	assert.False(t, set)

	fake.EmitVideo(1920, 1080)
	require.Eventually(t, func() bool { return p.VideoAspectRatio() == "16:9" }, waitFor, tick)
	require.Eventually(t, func() bool { return p.VideoCropGeometry() == "1920x800+0+140" }, waitFor, tick)
	assert.True(t, p.HasVideoOutput())
	w, h := p.VideoSize()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	v, _ := fake.Value(engine.PropAspectRatio)
	assert.Equal(t, "16:9", v)

	// applied straight away now
	require.NoError(t, p.SetVideoAspectRatio("4:3"))
	assert.Equal(t, "4:3", p.VideoAspectRatio())
}

func TestGeometryValidation(t *testing.T) {
	p, _ := newTestPlayer(t)

	for _, ratio := range []string{"", "16", "16:0", "a:b", "-4:3", "16:9:1"} {
		var verr *ValidationError
		assert.ErrorAs(t, p.SetVideoAspectRatio(ratio), &verr, ratio)
	}

	var verr *ValidationError
	assert.ErrorAs(t, p.SetVideoCropGeometry("  "), &verr)
	assert.ErrorAs(t, p.SetVideoTeletext(-1), &verr)
	assert.ErrorAs(t, p.SetAudioChannel(AudioChannel(9)), &verr)
	assert.ErrorAs(t, p.SetChapter(-1), &verr)
	assert.ErrorAs(t, p.SetAudioTrack(-3), &verr)
}

func TestFullscreenAppliesImmediately(t *testing.T) {
	p, fake := newTestPlayer(t)

	require.NoError(t, p.SetFullscreen(true))
	assert.True(t, p.Fullscreen())
	v, _ := fake.Value(engine.PropFullscreen)
	assert.Equal(t, true, v)
}

func TestChapterBounds(t *testing.T) {
	p, fake := newTestPlayer(t)
	fake.SetValue(engine.PropChapterCount, 3)
	startPlaying(t, p, fake)
	assert.Equal(t, 3, p.CountOfChapters())

	require.NoError(t, p.SetChapter(2))
	assert.Equal(t, 2, p.Chapter())

	var verr *ValidationError
	assert.ErrorAs(t, p.SetChapter(3), &verr)
	assert.Equal(t, 2, p.Chapter())
}

func TestEngineQueries(t *testing.T) {
	p, fake := newTestPlayer(t)
	fake.SetValue(engine.PropLength, int64(90000))
	fake.SetValue(engine.PropFramesPerSecond, 23.976)

	h, err := media.New("/media/a.mkv", media.Metadata{Duration: time.Minute})
	require.NoError(t, err)
	require.NoError(t, p.SetMedia(h))
	assert.Equal(t, int64(60000), p.Length(), "metadata until the engine has the media")
	assert.Zero(t, p.FramesPerSecond())

	startPlaying(t, p, fake)
	assert.Equal(t, int64(90000), p.Length())
	assert.InDelta(t, 23.976, p.FramesPerSecond(), 0.0001)
}

func TestSelectTrackByName(t *testing.T) {
	p, fake := newTestPlayer(t)
	fake.SetTracks(
		engine.Track{ID: 1, Type: engine.TrackAudio, Title: "Main", Lang: "jpn"},
		engine.Track{ID: 2, Type: engine.TrackAudio, Title: "Director Commentary", Lang: "eng"},
		engine.Track{ID: 1, Type: engine.TrackSubtitle, Title: "Signs", Lang: "eng"},
		engine.Track{ID: 2, Type: engine.TrackSubtitle, Title: "Full", Lang: "eng"},
	)
	startPlaying(t, p, fake)

	track, err := p.SelectAudioTrackByName("commentary")
	require.NoError(t, err)
	assert.Equal(t, 2, track.ID)
	assert.Equal(t, 1, p.AudioTrack())

	track, err = p.SelectSubtitleTrackByName("full")
	require.NoError(t, err)
	assert.Equal(t, 2, track.ID)
	assert.Equal(t, 1, p.SubtitleTrack())

	var verr *ValidationError
	_, err = p.SelectAudioTrackByName("klingon")
	assert.ErrorAs(t, err, &verr)
}

type fakeSink struct {
	mu       sync.Mutex
	ready    bool
	rendered []engine.Frame
}

func (s *fakeSink) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *fakeSink) Render(f engine.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rendered = append(s.rendered, f)
	return nil
}

func (s *fakeSink) setReady(v bool) {
	s.mu.Lock()
	s.ready = v
	s.mu.Unlock()
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rendered)
}

func TestFramesDroppedWhenSinkNotReady(t *testing.T) {
	fake := enginetest.New()
	sink := &fakeSink{}
	p := New(engine.Own(fake), sink, Options{})
	t.Cleanup(func() { _ = p.Close() })

	for i := 0; i < 3; i++ {
		fake.DeliverFrame(engine.Frame{Width: 2, Height: 2, PTS: int64(i * 40)})
	}
	assert.Equal(t, uint64(3), p.DroppedFrames())
	assert.Zero(t, sink.count())

	sink.setReady(true)
	fake.DeliverFrame(engine.Frame{PTS: 120})
	assert.Equal(t, 1, sink.count())

	p.SetRenderSink(nil)
	fake.DeliverFrame(engine.Frame{PTS: 160})
	assert.Equal(t, uint64(4), p.DroppedFrames())
	assert.Equal(t, 1, sink.count())
}

func TestFrameDeliveryRacesWithSinkSwap(t *testing.T) {
	fake := enginetest.New()
	p := New(engine.Own(fake), &fakeSink{ready: true}, Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			fake.DeliverFrame(engine.Frame{PTS: int64(i)})
		}
	}()
	for i := 0; i < 50; i++ {
		p.SetRenderSink(&fakeSink{ready: true})
	}
	require.NoError(t, p.Close())
	wg.Wait()

	before := p.DroppedFrames()
	fake.DeliverFrame(engine.Frame{})
	assert.Equal(t, before+1, p.DroppedFrames(), "no sink after close")
}

func TestCloseReleasesEverything(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	sub := p.Subscribe()

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, fake.Closed())

	assert.ErrorIs(t, p.Play(), ErrClosed)
	assert.ErrorIs(t, p.Stop(), ErrClosed)
	assert.ErrorIs(t, p.SetRate(2), ErrClosed)
	assert.ErrorIs(t, p.SetMedia(nil), ErrClosed)

	for range sub.Notifications() {
	}
}

func TestCloseInterruptsBlockedCommand(t *testing.T) {
	p, fake := newTestPlayer(t)
	startPlaying(t, p, fake)
	fake.BlockSetProperty(true)

	errCh := make(chan error, 1)
	go func() { errCh <- p.SetAudioChannel(AudioChannelStereo) }()
	require.Eventually(t, func() bool { return fake.CallCount("set") == 1 }, waitFor, tick)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, <-errCh, ErrInterrupted)
}
