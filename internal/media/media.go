// Package media defines the contract between clips and the demuxer that
// supplies their packets.
package media

import (
	"context"
	"errors"

	"github.com/kikiluvv/clipseq/internal/timebase"
)

// ErrEndOfStream is returned by Source.ReadPacket once the container is
// exhausted. A short payload read is an error, never ErrEndOfStream.
var ErrEndOfStream = errors.New("end of stream")

// StreamKind identifies which elementary stream a packet belongs to
type StreamKind int

const (
	KindUnknown StreamKind = iota
	KindVideo
	KindAudio
)

func (k StreamKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// ParseStreamKind maps ffprobe codec_type values onto StreamKind
func ParseStreamKind(s string) StreamKind {
	switch s {
	case "video":
		return KindVideo
	case "audio":
		return KindAudio
	default:
		return KindUnknown
	}
}

// CodecParams is read-only codec metadata captured when a source is opened
type CodecParams struct {
	CodecName  string
	Width      int
	Height     int
	PixFmt     string
	SampleRate int
	Channels   int
	BitRate    int64
}

// Stream describes one elementary stream of an opened source.
// StartPTS and Duration are in TimeBase units.
type Stream struct {
	Index      int
	Kind       StreamKind
	TimeBase   timebase.Rational
	FrameRate  timebase.Rational
	StartPTS   int64
	Duration   int64
	FrameCount int64
	Codec      CodecParams
}

// FrameDuration returns the length of one frame in the stream's time base
func (s Stream) FrameDuration() int64 {
	return timebase.FrameDuration(s.FrameRate, s.TimeBase)
}

// LastPTS is the pts of the final frame, or StartPTS for an empty stream
func (s Stream) LastPTS() int64 {
	last := s.StartPTS + s.Duration - s.FrameDuration()
	if last < s.StartPTS {
		return s.StartPTS
	}
	return last
}

// Packet is one demuxed packet. PTS is in the time base of the packet's stream.
type Packet struct {
	Kind     StreamKind
	Stream   int
	PTS      int64
	DTS      int64
	Duration int64
	KeyFrame bool
	Pos      int64
	Size     int
	Data     []byte
}

// Source is an opened media file. Seek positions are in the video time base.
type Source interface {
	VideoStream() (Stream, bool)
	AudioStream() (Stream, bool)
	Seek(pts int64) error
	ReadPacket() (Packet, error)
	Close() error
}

// Opener acquires a Source for a url
type Opener interface {
	Open(ctx context.Context, url string) (Source, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(ctx context.Context, url string) (Source, error)

func (f OpenerFunc) Open(ctx context.Context, url string) (Source, error) {
	return f(ctx, url)
}

// IsEndOfStream reports whether err marks the end of the container
func IsEndOfStream(err error) bool {
	return errors.Is(err, ErrEndOfStream)
}
