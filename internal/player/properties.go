package player

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/PizzaHomicide/mediaplayer/internal/engine"
	"github.com/PizzaHomicide/mediaplayer/internal/log"
)

// AspectRatio is a parsed "W:H" display aspect ratio.  The zero value means the media's own ratio.
type AspectRatio struct {
	Width, Height int
}

// ParseAspectRatio accepts "W:H" with positive integers
func ParseAspectRatio(s string) (AspectRatio, error) {
	w, h, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return AspectRatio{}, fmt.Errorf("aspect ratio %q is not of the form W:H", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return AspectRatio{}, fmt.Errorf("aspect ratio width %q is not a positive integer", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return AspectRatio{}, fmt.Errorf("aspect ratio height %q is not a positive integer", h)
	}
	return AspectRatio{Width: width, Height: height}, nil
}

func (a AspectRatio) String() string {
	if a.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d:%d", a.Width, a.Height)
}

func (a AspectRatio) IsZero() bool {
	return a.Width == 0 && a.Height == 0
}

// AudioChannel selects how audio channels are routed to the output
type AudioChannel int

const (
	AudioChannelDefault AudioChannel = iota
	AudioChannelStereo
	AudioChannelLeft
	AudioChannelRight
	AudioChannelDolby
)

var audioChannelNames = []string{"default", "stereo", "left", "right", "dolby"}

// AudioChannels lists every channel mode in cycling order
func AudioChannels() []AudioChannel {
	return []AudioChannel{AudioChannelDefault, AudioChannelStereo, AudioChannelLeft, AudioChannelRight, AudioChannelDolby}
}

func (c AudioChannel) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return audioChannelNames[c]
}

func (c AudioChannel) Valid() bool {
	return c >= AudioChannelDefault && c <= AudioChannelDolby
}

// ParseAudioChannel maps a name such as "left" to its AudioChannel
func ParseAudioChannel(s string) (AudioChannel, error) {
	idx := lo.IndexOf(audioChannelNames, strings.ToLower(strings.TrimSpace(s)))
	if idx < 0 {
		return AudioChannelDefault, fmt.Errorf("unknown audio channel %q, expected one of %s", s, strings.Join(audioChannelNames, ", "))
	}
	return AudioChannel(idx), nil
}

// setting identifies a writable property
type setting int

const (
	settingRate setting = iota
	settingAudioChannel
	settingAudioTrack
	settingSubtitleTrack
	settingTeletext
	settingChapter
	settingStartTime
	settingAspectRatio
	settingCropGeometry
	settingFullscreen
)

// Applied in this order at the first Playing of a session
var sessionSettings = []setting{
	settingRate,
	settingAudioChannel,
	settingAudioTrack,
	settingSubtitleTrack,
	settingTeletext,
	settingChapter,
	settingStartTime,
}

// Applied once video output exists
var geometrySettings = []setting{settingAspectRatio, settingCropGeometry}

func (s setting) String() string {
	switch s {
	case settingRate:
		return "rate"
	case settingAudioChannel:
		return "audio channel"
	case settingAudioTrack:
		return "audio track"
	case settingSubtitleTrack:
		return "subtitle track"
	case settingTeletext:
		return "teletext page"
	case settingChapter:
		return "chapter"
	case settingStartTime:
		return "time"
	case settingAspectRatio:
		return "aspect ratio"
	case settingCropGeometry:
		return "crop geometry"
	case settingFullscreen:
		return "fullscreen"
	default:
		return "unknown"
	}
}

func (s setting) property() engine.Property {
	switch s {
	case settingRate:
		return engine.PropRate
	case settingAudioChannel:
		return engine.PropAudioChannel
	case settingAudioTrack:
		return engine.PropAudioTrack
	case settingSubtitleTrack:
		return engine.PropSubtitleTrack
	case settingTeletext:
		return engine.PropTeletextPage
	case settingChapter:
		return engine.PropChapter
	case settingAspectRatio:
		return engine.PropAspectRatio
	case settingCropGeometry:
		return engine.PropCropGeometry
	case settingFullscreen:
		return engine.PropFullscreen
	default:
		return engine.PropTime
	}
}

// engineValue converts a stored value into the type the engine property expects
func engineValue(v any) any {
	switch v := v.(type) {
	case AudioChannel:
		return v.String()
	case AspectRatio:
		return v.String()
	}
	return v
}

// settings holds the last applied value of every writable property
type settings struct {
	rate          int
	audioChannel  AudioChannel
	audioTrack    int
	subtitleTrack int
	teletext      int
	chapter       int
	aspect        AspectRatio
	crop          string
	fullscreen    bool
}

func defaultSettings() settings {
	return settings{rate: 1, subtitleTrack: -1}
}

func (s *settings) store(k setting, v any) {
	switch k {
	case settingRate:
		s.rate = v.(int)
	case settingAudioChannel:
		s.audioChannel = v.(AudioChannel)
	case settingAudioTrack:
		s.audioTrack = v.(int)
	case settingSubtitleTrack:
		s.subtitleTrack = v.(int)
	case settingTeletext:
		s.teletext = v.(int)
	case settingChapter:
		s.chapter = v.(int)
	case settingAspectRatio:
		s.aspect = v.(AspectRatio)
	case settingCropGeometry:
		s.crop = v.(string)
	case settingFullscreen:
		s.fullscreen = v.(bool)
	}
}

// restoreWrites lists the writes that bring engine-wide properties changed in s back to their defaults.
// Track and chapter selection are per file in the engine and need no restoring.
func (s settings) restoreWrites() map[setting]any {
	def := defaultSettings()
	writes := make(map[setting]any)
	if s.rate != def.rate {
		writes[settingRate] = def.rate
	}
	if s.audioChannel != def.audioChannel {
		writes[settingAudioChannel] = def.audioChannel
	}
	if s.teletext != def.teletext {
		writes[settingTeletext] = def.teletext
	}
	if s.aspect != def.aspect {
		writes[settingAspectRatio] = def.aspect
	}
	if s.crop != def.crop {
		writes[settingCropGeometry] = def.crop
	}
	return writes
}

func hasAny(pending map[setting]any, keys []setting) bool {
	return lo.SomeBy(keys, func(k setting) bool {
		_, ok := pending[k]
		return ok
	})
}

// set applies a statically valid value now if the engine can take it, otherwise queues it
func (p *Player) set(k setting, value any) error {
	ctx, err := p.lockCommand()
	if err != nil {
		return err
	}
	defer p.cmdMu.Unlock()

	p.mu.Lock()
	var ready bool
	switch k {
	case settingFullscreen:
		ready = true
	case settingAspectRatio, settingCropGeometry:
		ready = p.videoOutput
	default:
		ready = p.machine.current.active()
	}
	if !ready {
		p.pending[k] = value
		p.mu.Unlock()
		log.Debug("Queued property write", "property", k.String(), "value", value)
		return nil
	}
	p.mu.Unlock()

	return p.apply(ctx, k, value)
}

// apply checks media dependent bounds and writes the value to the engine.  Must be called with cmdMu held.
func (p *Player) apply(ctx context.Context, k setting, value any) error {
	switch k {
	case settingAudioTrack, settingSubtitleTrack:
		idx := value.(int)
		if idx >= 0 {
			tracks, err := p.loadTracks(ctx)
			if err != nil {
				return p.commandError("get tracks", ctx, err)
			}
			trackType := engine.TrackAudio
			if k == settingSubtitleTrack {
				trackType = engine.TrackSubtitle
			}
			if count := len(filterTracks(tracks, trackType)); idx >= count {
				return &ValidationError{Property: k.String(), Value: idx, Reason: fmt.Sprintf("must be within [-1, %d)", count)}
			}
		}

	case settingChapter:
		v, err := p.eng.GetProperty(ctx, engine.PropChapterCount)
		if err != nil {
			return p.commandError("get chapters", ctx, err)
		}
		count, _ := v.(int)
		if idx := value.(int); idx >= count {
			return &ValidationError{Property: k.String(), Value: idx, Reason: fmt.Sprintf("must be within [0, %d)", count)}
		}

	case settingStartTime:
		ms := value.(int64)
		if err := p.eng.Seek(ctx, ms); err != nil {
			return p.commandError("seek", ctx, err)
		}
		p.post(ctlSeek, ms)
		p.mu.Lock()
		delete(p.pending, k)
		p.mu.Unlock()
		log.Debug("Seeked", "ms", ms)
		return nil
	}

	if err := p.eng.SetProperty(ctx, k.property(), engineValue(value)); err != nil {
		return p.commandError("set "+k.String(), ctx, err)
	}

	p.mu.Lock()
	p.applied.store(k, value)
	delete(p.pending, k)
	p.mu.Unlock()
	log.Debug("Applied property", "property", k.String(), "value", value)
	return nil
}

// applyPending writes queued values in keys order.  Values rejected now are dropped; values cut off by an
// interruption go back in the queue unless a newer write replaced them.
func (p *Player) applyPending(ctx context.Context, keys []setting) {
	defer p.wg.Done()

	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	taken := make(map[setting]any)
	for _, k := range keys {
		if v, ok := p.pending[k]; ok {
			taken[k] = v
			delete(p.pending, k)
		}
	}
	p.mu.Unlock()

	for i, k := range keys {
		v, ok := taken[k]
		if !ok {
			continue
		}
		err := p.apply(ctx, k, v)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			p.requeue(keys[i:], taken)
			return
		}
		log.Warn("Dropping queued property write", "property", k.String(), "value", v, "error", err)
	}
}

func (p *Player) requeue(keys []setting, values map[setting]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			continue
		}
		if _, newer := p.pending[k]; !newer {
			p.pending[k] = v
		}
	}
}

func (p *Player) getApplied() settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied
}

// Rate returns the applied playback rate: 1 is normal speed, 2 double, negative values play backwards
func (p *Player) Rate() int {
	return p.getApplied().rate
}

// SetRate changes the playback rate.  Zero is invalid; negative rates need an engine that can play backwards
// and AllowReverse.
func (p *Player) SetRate(rate int) error {
	if rate == 0 {
		return &ValidationError{Property: "rate", Value: rate, Reason: "must not be zero"}
	}
	if rate < 0 {
		if !p.eng.Capabilities().ReversePlayback {
			return &ValidationError{Property: "rate", Value: rate, Reason: "engine cannot play backwards"}
		}
		if !p.opts.AllowReverse {
			return &ValidationError{Property: "rate", Value: rate, Reason: "reverse playback is disabled"}
		}
	}
	return p.set(settingRate, rate)
}

// AudioTrack returns the applied audio track index, -1 when audio is disabled
func (p *Player) AudioTrack() int {
	return p.getApplied().audioTrack
}

// SetAudioTrack selects an audio track by index among the audio tracks, -1 disables audio
func (p *Player) SetAudioTrack(idx int) error {
	if idx < -1 {
		return &ValidationError{Property: "audio track", Value: idx, Reason: "must be -1 or a track index"}
	}
	return p.set(settingAudioTrack, idx)
}

// SubtitleTrack returns the applied subtitle track index, -1 when subtitles are off
func (p *Player) SubtitleTrack() int {
	return p.getApplied().subtitleTrack
}

// SetSubtitleTrack selects a subtitle track by index among the subtitle tracks, -1 disables subtitles
func (p *Player) SetSubtitleTrack(idx int) error {
	if idx < -1 {
		return &ValidationError{Property: "subtitle track", Value: idx, Reason: "must be -1 or a track index"}
	}
	return p.set(settingSubtitleTrack, idx)
}

func (p *Player) AudioChannel() AudioChannel {
	return p.getApplied().audioChannel
}

func (p *Player) SetAudioChannel(c AudioChannel) error {
	if !c.Valid() {
		return &ValidationError{Property: "audio channel", Value: int(c), Reason: "unknown channel"}
	}
	return p.set(settingAudioChannel, c)
}

// VideoTeletext returns the applied teletext page, 0 when teletext is off
func (p *Player) VideoTeletext() int {
	return p.getApplied().teletext
}

func (p *Player) SetVideoTeletext(page int) error {
	if page < 0 {
		return &ValidationError{Property: "teletext page", Value: page, Reason: "must not be negative"}
	}
	return p.set(settingTeletext, page)
}

func (p *Player) Chapter() int {
	return p.getApplied().chapter
}

func (p *Player) SetChapter(chapter int) error {
	if chapter < 0 {
		return &ValidationError{Property: "chapter", Value: chapter, Reason: "must not be negative"}
	}
	return p.set(settingChapter, chapter)
}

// VideoAspectRatio returns the applied aspect ratio as "W:H", or "" for the media default
func (p *Player) VideoAspectRatio() string {
	return p.getApplied().aspect.String()
}

// SetVideoAspectRatio overrides the display aspect ratio.  Without video output the value is kept until a
// video output appears.
func (p *Player) SetVideoAspectRatio(ratio string) error {
	ar, err := ParseAspectRatio(ratio)
	if err != nil {
		return &ValidationError{Property: "aspect ratio", Value: ratio, Reason: err.Error()}
	}
	return p.set(settingAspectRatio, ar)
}

func (p *Player) VideoCropGeometry() string {
	return p.getApplied().crop
}

// SetVideoCropGeometry passes geometry to the engine as is.  Without video output the value is kept until a
// video output appears.
func (p *Player) SetVideoCropGeometry(geometry string) error {
	geometry = strings.TrimSpace(geometry)
	if geometry == "" {
		return &ValidationError{Property: "crop geometry", Value: geometry, Reason: "must not be empty"}
	}
	return p.set(settingCropGeometry, geometry)
}

func (p *Player) Fullscreen() bool {
	return p.getApplied().fullscreen
}

func (p *Player) SetFullscreen(on bool) error {
	return p.set(settingFullscreen, on)
}
