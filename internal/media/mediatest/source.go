// Package mediatest provides a deterministic in-memory media.Source for tests.
package mediatest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kikiluvv/clipseq/internal/media"
	"github.com/kikiluvv/clipseq/internal/timebase"
)

// Order controls how video and audio packets are interleaved in the container
type Order int

const (
	// OrderByTime interleaves packets by presentation time (video first on ties)
	OrderByTime Order = iota
	// OrderVideoFirst stores every video packet before any audio packet
	OrderVideoFirst
	// OrderAudioFirst stores every audio packet before any video packet
	OrderAudioFirst
	// OrderChunked alternates runs of ChunkSize packets from each stream
	OrderChunked
)

// Layout describes a synthetic file
type Layout struct {
	VideoTimeBase timebase.Rational
	FrameRate     timebase.Rational
	Frames        int
	KeyInterval   int

	// StartPTS offsets every timestamp, as in containers whose first frame
	// is not at zero. It is in the video time base.
	StartPTS int64
	// KeyframeSeek makes Seek land on the last video keyframe at or before
	// the target, like a real demuxer, instead of on the target itself
	KeyframeSeek bool

	// A zero AudioTimeBase means the file has no audio stream
	AudioTimeBase       timebase.Rational
	AudioPacketDuration int64
	AudioPackets        int

	Order     Order
	ChunkSize int
}

// DefaultLayout is ten seconds of 30 fps video (time base 1/30) with 48 kHz audio
func DefaultLayout() Layout {
	return Layout{
		VideoTimeBase:       timebase.Rational{Num: 1, Den: 30},
		FrameRate:           timebase.Rational{Num: 30, Den: 1},
		Frames:              300,
		KeyInterval:         30,
		AudioTimeBase:       timebase.Audio48k,
		AudioPacketDuration: 1024,
		AudioPackets:        469,
		Order:               OrderByTime,
	}
}

// HasAudio reports whether the layout carries an audio stream
func (l Layout) HasAudio() bool {
	return l.AudioTimeBase.Valid() && l.AudioPackets > 0
}

// Streams returns the stream descriptors for the layout
func (l Layout) Streams() (media.Stream, *media.Stream) {
	video := media.Stream{
		Index:      0,
		Kind:       media.KindVideo,
		TimeBase:   l.VideoTimeBase,
		FrameRate:  l.FrameRate,
		StartPTS:   l.StartPTS,
		FrameCount: int64(l.Frames),
		Codec:      media.CodecParams{CodecName: "h264", Width: 320, Height: 240, PixFmt: "yuv420p"},
	}
	video.Duration = int64(l.Frames) * video.FrameDuration()

	if !l.HasAudio() {
		return video, nil
	}
	audio := &media.Stream{
		Index:      1,
		Kind:       media.KindAudio,
		TimeBase:   l.AudioTimeBase,
		StartPTS:   timebase.Rescale(l.StartPTS, l.VideoTimeBase, l.AudioTimeBase),
		Duration:   int64(l.AudioPackets) * l.AudioPacketDuration,
		FrameCount: int64(l.AudioPackets),
		Codec:      media.CodecParams{CodecName: "aac", SampleRate: int(l.AudioTimeBase.Den), Channels: 2},
	}
	return video, audio
}

// Packets generates the container-ordered packet list for the layout
func (l Layout) Packets() []media.Packet {
	video, audio := l.Streams()
	frameDur := video.FrameDuration()

	videoPkts := make([]media.Packet, 0, l.Frames)
	for i := 0; i < l.Frames; i++ {
		pts := video.StartPTS + int64(i)*frameDur
		videoPkts = append(videoPkts, media.Packet{
			Kind:     media.KindVideo,
			Stream:   video.Index,
			PTS:      pts,
			DTS:      pts,
			Duration: frameDur,
			KeyFrame: l.KeyInterval <= 0 || i%l.KeyInterval == 0,
			Size:     8,
			Data:     []byte(fmt.Sprintf("v%07d", i)),
		})
	}

	var audioPkts []media.Packet
	if audio != nil {
		audioPkts = make([]media.Packet, 0, l.AudioPackets)
		for i := 0; i < l.AudioPackets; i++ {
			pts := audio.StartPTS + int64(i)*l.AudioPacketDuration
			audioPkts = append(audioPkts, media.Packet{
				Kind:     media.KindAudio,
				Stream:   audio.Index,
				PTS:      pts,
				DTS:      pts,
				Duration: l.AudioPacketDuration,
				KeyFrame: true,
				Size:     8,
				Data:     []byte(fmt.Sprintf("a%07d", i)),
			})
		}
	}

	var out []media.Packet
	switch l.Order {
	case OrderVideoFirst:
		out = append(append(out, videoPkts...), audioPkts...)
	case OrderAudioFirst:
		out = append(append(out, audioPkts...), videoPkts...)
	case OrderChunked:
		size := l.ChunkSize
		if size <= 0 {
			size = 7
		}
		for len(videoPkts) > 0 || len(audioPkts) > 0 {
			n := min(size, len(videoPkts))
			out = append(out, videoPkts[:n]...)
			videoPkts = videoPkts[n:]
			n = min(size, len(audioPkts))
			out = append(out, audioPkts[:n]...)
			audioPkts = audioPkts[n:]
		}
	default:
		out = append(append(out, videoPkts...), audioPkts...)
		sort.SliceStable(out, func(i, j int) bool {
			return l.videoTime(out[i]) < l.videoTime(out[j])
		})
	}
	return out
}

// videoTime orders packets on a common clock. Nanoseconds keep audio and
// video packets that land between video ticks distinguishable.
func (l Layout) videoTime(p media.Packet) int64 {
	if p.Kind == media.KindAudio {
		return int64(timebase.ToDuration(p.PTS, l.AudioTimeBase))
	}
	return int64(timebase.ToDuration(p.PTS, l.VideoTimeBase))
}

// Source is an in-memory media.Source with failure injection
type Source struct {
	layout  Layout
	video   media.Stream
	audio   *media.Stream
	packets []media.Packet
	cursor  int
	closed  bool

	// SeekErr is returned from every Seek when set
	SeekErr error
	// ReadErr is returned by ReadPacket when the cursor reaches ReadErrAt
	ReadErr   error
	ReadErrAt int

	// Seeks records every successful seek target
	Seeks []int64
	// Reads counts packets handed out, including ones the caller discards
	Reads int
}

// NewSource builds a source from a layout
func NewSource(l Layout) *Source {
	video, audio := l.Streams()
	return &Source{
		layout:    l,
		video:     video,
		audio:     audio,
		packets:   l.Packets(),
		ReadErrAt: -1,
	}
}

func (s *Source) VideoStream() (media.Stream, bool) {
	return s.video, true
}

func (s *Source) AudioStream() (media.Stream, bool) {
	if s.audio == nil {
		return media.Stream{}, false
	}
	return *s.audio, true
}

// Seek positions the cursor on the first packet in container order whose
// pts, expressed in the video time base, is at or after pts. With
// KeyframeSeek the target is first moved back to the preceding keyframe.
func (s *Source) Seek(pts int64) error {
	if s.closed {
		return errors.New("mediatest: source closed")
	}
	if s.SeekErr != nil {
		return s.SeekErr
	}
	target := pts
	if s.layout.KeyframeSeek {
		target = s.keyframeAtOrBefore(pts)
	}
	s.cursor = len(s.packets)
	for i, p := range s.packets {
		if s.videoPTS(p) >= target {
			s.cursor = i
			break
		}
	}
	s.Seeks = append(s.Seeks, pts)
	return nil
}

func (s *Source) keyframeAtOrBefore(pts int64) int64 {
	key := int64(math.MinInt64)
	for _, p := range s.packets {
		if p.Kind == media.KindVideo && p.KeyFrame && p.PTS <= pts && p.PTS > key {
			key = p.PTS
		}
	}
	return key
}

func (s *Source) videoPTS(p media.Packet) int64 {
	if p.Kind == media.KindAudio {
		return timebase.Rescale(p.PTS, s.audio.TimeBase, s.video.TimeBase)
	}
	return p.PTS
}

func (s *Source) ReadPacket() (media.Packet, error) {
	if s.closed {
		return media.Packet{}, errors.New("mediatest: source closed")
	}
	if s.ReadErr != nil && s.cursor == s.ReadErrAt {
		return media.Packet{}, s.ReadErr
	}
	if s.cursor >= len(s.packets) {
		return media.Packet{}, media.ErrEndOfStream
	}
	p := s.packets[s.cursor]
	s.cursor++
	s.Reads++
	return p, nil
}

func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called
func (s *Source) Closed() bool {
	return s.closed
}

// Opener serves layouts keyed by url and remembers every source it opened
type Opener struct {
	mu      sync.Mutex
	layouts map[string]Layout
	opened  []*Source

	// Err fails every Open when set
	Err error
}

// NewOpener creates an opener serving the given layouts
func NewOpener(layouts map[string]Layout) *Opener {
	if layouts == nil {
		layouts = make(map[string]Layout)
	}
	return &Opener{layouts: layouts}
}

// Add registers a layout under url
func (o *Opener) Add(url string, l Layout) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.layouts[url] = l
}

func (o *Opener) Open(ctx context.Context, url string) (media.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Err != nil {
		return nil, o.Err
	}
	l, ok := o.layouts[url]
	if !ok {
		return nil, fmt.Errorf("mediatest: no such file: %s", url)
	}
	src := NewSource(l)
	o.opened = append(o.opened, src)
	return src, nil
}

// Opened returns every source handed out so far
func (o *Opener) Opened() []*Source {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Source(nil), o.opened...)
}
