package mpv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/PizzaHomicide/mediaplayer/internal/engine"
)

// pan filters that fold both output channels onto one input channel
const (
	panLeft  = "lavfi=[pan=stereo|c0=c0|c1=c0]"
	panRight = "lavfi=[pan=stereo|c0=c1|c1=c1]"
)

// mpvTrack is one entry of mpv's track-list property
type mpvTrack struct {
	ID       int    `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Lang     string `json:"lang"`
	Codec    string `json:"codec"`
	Selected bool   `json:"selected"`
}

// SetProperty translates a player property into one or more mpv property writes
func (e *Engine) SetProperty(ctx context.Context, prop engine.Property, value any) error {
	switch prop {
	case engine.PropFullscreen:
		v, err := as[bool](prop, value)
		if err != nil {
			return err
		}
		return e.setProperty(ctx, "fullscreen", v)

	case engine.PropAspectRatio:
		v, err := as[string](prop, value)
		if err != nil {
			return err
		}
		if v == "" {
			v = "no"
		}
		return e.setProperty(ctx, "video-aspect-override", v)

	case engine.PropCropGeometry:
		v, err := as[string](prop, value)
		if err != nil {
			return err
		}
		return e.setProperty(ctx, "video-crop", v)

	case engine.PropTeletextPage:
		v, err := as[int](prop, value)
		if err != nil {
			return err
		}
		return e.setProperty(ctx, "teletext-page", v)

	case engine.PropRate:
		v, err := as[int](prop, value)
		if err != nil {
			return err
		}
		direction := "forward"
		if v < 0 {
			direction = "backward"
			v = -v
		}
		if err := e.setProperty(ctx, "play-direction", direction); err != nil {
			return err
		}
		return e.setProperty(ctx, "speed", v)

	case engine.PropAudioTrack:
		return e.selectTrack(ctx, prop, value, "audio", "aid")

	case engine.PropSubtitleTrack:
		return e.selectTrack(ctx, prop, value, "sub", "sid")

	case engine.PropAudioChannel:
		v, err := as[string](prop, value)
		if err != nil {
			return err
		}
		return e.setAudioChannel(ctx, v)

	case engine.PropChapter:
		v, err := as[int](prop, value)
		if err != nil {
			return err
		}
		return e.setProperty(ctx, "chapter", v)
	}

	return fmt.Errorf("%w: %s", engine.ErrUnsupported, prop)
}

func (e *Engine) setAudioChannel(ctx context.Context, channel string) error {
	var channels, filter string
	switch channel {
	case "default":
		channels = "auto"
	case "stereo":
		channels = "stereo"
	case "dolby":
		channels = "5.1"
	case "left":
		channels, filter = "stereo", panLeft
	case "right":
		channels, filter = "stereo", panRight
	default:
		return fmt.Errorf("%w: audio channel %q", engine.ErrUnsupported, channel)
	}

	if err := e.setProperty(ctx, "audio-channels", channels); err != nil {
		return err
	}
	return e.setProperty(ctx, "af", filter)
}

// selectTrack maps an index among the tracks of one type onto mpv's global track id
func (e *Engine) selectTrack(ctx context.Context, prop engine.Property, value any, trackType, mpvProp string) error {
	idx, err := as[int](prop, value)
	if err != nil {
		return err
	}
	if idx < 0 {
		return e.setProperty(ctx, mpvProp, "no")
	}

	tracks, err := e.tracks(ctx)
	if err != nil {
		return err
	}
	ofType := lo.Filter(tracks, func(t engine.Track, _ int) bool {
		return string(t.Type) == trackType
	})
	if idx >= len(ofType) {
		return fmt.Errorf("%s index %d out of range, %d tracks", trackType, idx, len(ofType))
	}
	return e.setProperty(ctx, mpvProp, ofType[idx].ID)
}

// GetProperty reads a player property from mpv, converting units where they differ
func (e *Engine) GetProperty(ctx context.Context, prop engine.Property) (any, error) {
	switch prop {
	case engine.PropTime:
		return e.getMillis(ctx, "time-pos")
	case engine.PropLength:
		return e.getMillis(ctx, "duration")
	case engine.PropVideoWidth:
		return get[int](ctx, e, "width")
	case engine.PropVideoHeight:
		return get[int](ctx, e, "height")
	case engine.PropHasVideoOutput:
		return get[bool](ctx, e, "vo-configured")
	case engine.PropFramesPerSecond:
		return get[float64](ctx, e, "container-fps")
	case engine.PropChapterCount:
		return get[int](ctx, e, "chapters")
	case engine.PropChapter:
		return get[int](ctx, e, "chapter")
	case engine.PropFullscreen:
		return get[bool](ctx, e, "fullscreen")
	case engine.PropTracks:
		return e.tracks(ctx)
	}
	return nil, fmt.Errorf("%w: %s", engine.ErrUnsupported, prop)
}

func (e *Engine) tracks(ctx context.Context) ([]engine.Track, error) {
	raw, err := get[[]mpvTrack](ctx, e, "track-list")
	if err != nil {
		return nil, err
	}
	return lo.Map(raw, func(t mpvTrack, _ int) engine.Track {
		return engine.Track{
			ID:       t.ID,
			Type:     engine.TrackType(t.Type),
			Title:    t.Title,
			Lang:     t.Lang,
			Codec:    t.Codec,
			Selected: t.Selected,
		}
	}), nil
}

func (e *Engine) getMillis(ctx context.Context, name string) (int64, error) {
	secs, err := get[float64](ctx, e, name)
	if err != nil {
		return 0, err
	}
	return int64(secs * 1000), nil
}

func get[T any](ctx context.Context, e *Engine, name string) (T, error) {
	var v T
	data, err := e.ipc.Request(ctx, "get_property", name)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to decode mpv property %s: %w", name, err)
	}
	return v, nil
}

func as[T any](prop engine.Property, value any) (T, error) {
	v, ok := value.(T)
	if !ok {
		return v, fmt.Errorf("property %s: unexpected value type %T", prop, value)
	}
	return v, nil
}
