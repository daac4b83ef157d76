package player

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"github.com/PizzaHomicide/mediaplayer/internal/engine"
	"github.com/PizzaHomicide/mediaplayer/internal/log"
)

func filterTracks(tracks []engine.Track, trackType engine.TrackType) []engine.Track {
	return lo.Filter(tracks, func(t engine.Track, _ int) bool {
		return t.Type == trackType
	})
}

// TrackLabel is the text a track is displayed and searched by
func TrackLabel(t engine.Track) string {
	parts := lo.Compact([]string{t.Title, t.Lang})
	if len(parts) == 0 {
		if t.Codec != "" {
			return fmt.Sprintf("#%d (%s)", t.ID, t.Codec)
		}
		return fmt.Sprintf("#%d", t.ID)
	}
	return strings.Join(parts, " ")
}

// loadTracks asks the engine for the track list and caches it
func (p *Player) loadTracks(ctx context.Context) ([]engine.Track, error) {
	v, err := p.eng.GetProperty(ctx, engine.PropTracks)
	if err != nil {
		return nil, err
	}
	tracks, ok := v.([]engine.Track)
	if !ok {
		return nil, fmt.Errorf("unexpected track list type %T", v)
	}

	p.mu.Lock()
	p.tracks = tracks
	p.mu.Unlock()
	return tracks, nil
}

// activeContext returns the session context when media is loaded in the engine
func (p *Player) activeContext() (context.Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session, p.machine.current.active()
}

func (p *Player) currentTracks() []engine.Track {
	ctx, active := p.activeContext()
	if !active {
		return nil
	}
	tracks, err := p.loadTracks(ctx)
	if err != nil {
		log.Debug("Using cached track list", "error", err)
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.tracks
	}
	return tracks
}

// query reads a property from the engine while media is loaded.  It reports false otherwise, or when the
// engine cannot answer.
func query[T any](p *Player, prop engine.Property) (T, bool) {
	var zero T
	ctx, active := p.activeContext()
	if !active {
		return zero, false
	}
	v, err := p.eng.GetProperty(ctx, prop)
	if err != nil {
		log.Debug("Engine query failed", "property", prop, "error", err)
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// AudioTracks lists the audio tracks of the open media
func (p *Player) AudioTracks() []engine.Track {
	return filterTracks(p.currentTracks(), engine.TrackAudio)
}

// SubtitleTracks lists the subtitle tracks of the open media
func (p *Player) SubtitleTracks() []engine.Track {
	return filterTracks(p.currentTracks(), engine.TrackSubtitle)
}

func (p *Player) CountOfAudioTracks() int {
	return len(p.AudioTracks())
}

func (p *Player) CountOfSubtitleTracks() int {
	return len(p.SubtitleTracks())
}

func (p *Player) CountOfChapters() int {
	n, _ := query[int](p, engine.PropChapterCount)
	return n
}

func (p *Player) FramesPerSecond() float64 {
	fps, _ := query[float64](p, engine.PropFramesPerSecond)
	return fps
}

// Length returns the media duration in milliseconds, from the engine when media is loaded and from the handle's
// metadata otherwise.  0 means unknown.
func (p *Player) Length() int64 {
	if ms, ok := query[int64](p, engine.PropLength); ok {
		return ms
	}
	if h, ok := p.Media().Get(); ok {
		return h.Metadata().Duration.Milliseconds()
	}
	return 0
}

// VideoSize returns the dimensions reported with the current video output, or zeros
func (p *Player) VideoSize() (width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoW, p.videoH
}

func (p *Player) HasVideoOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoOutput
}

// SelectAudioTrackByName selects the audio track whose title or language best matches name
func (p *Player) SelectAudioTrackByName(name string) (engine.Track, error) {
	tracks := p.AudioTracks()
	idx, err := bestTrack(tracks, name, "audio track")
	if err != nil {
		return engine.Track{}, err
	}
	return tracks[idx], p.SetAudioTrack(idx)
}

// SelectSubtitleTrackByName selects the subtitle track whose title or language best matches name
func (p *Player) SelectSubtitleTrackByName(name string) (engine.Track, error) {
	tracks := p.SubtitleTracks()
	idx, err := bestTrack(tracks, name, "subtitle track")
	if err != nil {
		return engine.Track{}, err
	}
	return tracks[idx], p.SetSubtitleTrack(idx)
}

func bestTrack(tracks []engine.Track, name, property string) (int, error) {
	labels := lo.Map(tracks, func(t engine.Track, _ int) string { return TrackLabel(t) })
	ranks := fuzzy.RankFindNormalizedFold(name, labels)
	if len(ranks) == 0 {
		return 0, &ValidationError{Property: property, Value: name, Reason: "no track matches"}
	}
	sort.Sort(ranks)
	return ranks[0].OriginalIndex, nil
}
