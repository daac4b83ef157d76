package models

import (
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/PizzaHomicide/mediaplayer/internal/engine"
	"github.com/PizzaHomicide/mediaplayer/internal/media"
	"github.com/PizzaHomicide/mediaplayer/internal/player"
)

// Controller is the part of *player.Player the TUI drives
type Controller interface {
	State() player.State
	Time() int64
	Length() int64
	Rate() int
	AudioTrack() int
	SubtitleTrack() int
	AudioChannel() player.AudioChannel
	Fullscreen() bool
	LastError() error
	Media() mo.Option[*media.Handle]
	AudioTracks() []engine.Track
	SubtitleTracks() []engine.Track

	Play() error
	TogglePause() error
	Stop() error
	SetTime(ms int64) error
	SetRate(rate int) error
	SetAudioTrack(idx int) error
	SetSubtitleTrack(idx int) error
	SetAudioChannel(c player.AudioChannel) error
	SetFullscreen(on bool) error

	Subscribe() *player.Subscription
}

var _ Controller = (*player.Player)(nil)

// Snapshot is everything the player view renders.  Reading it may query the engine, so it is taken off the UI
// goroutine.
type Snapshot struct {
	Title          string
	State          player.State
	Time           int64
	Length         int64
	Rate           int
	AudioTrack     int
	SubtitleTrack  int
	AudioTracks    []string
	SubtitleTracks []string
	AudioChannel   player.AudioChannel
	Fullscreen     bool
	Err            error
}

func takeSnapshot(c Controller) Snapshot {
	title := "No media"
	if h, ok := c.Media().Get(); ok {
		title = h.Title()
	}
	return Snapshot{
		Title:          title,
		State:          c.State(),
		Time:           c.Time(),
		Length:         c.Length(),
		Rate:           c.Rate(),
		AudioTrack:     c.AudioTrack(),
		SubtitleTrack:  c.SubtitleTrack(),
		AudioTracks:    lo.Map(c.AudioTracks(), func(t engine.Track, _ int) string { return player.TrackLabel(t) }),
		SubtitleTracks: lo.Map(c.SubtitleTracks(), func(t engine.Track, _ int) string { return player.TrackLabel(t) }),
		AudioChannel:   c.AudioChannel(),
		Fullscreen:     c.Fullscreen(),
		Err:            c.LastError(),
	}
}
