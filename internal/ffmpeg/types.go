package ffmpeg

import (
	"time"

	"github.com/kikiluvv/clipseq/internal/media"
)

// ProbeInfo contains stream and container metadata of a media file
type ProbeInfo struct {
	FilePath   string
	FormatName string
	Duration   time.Duration
	Bitrate    int64
	Streams    []media.Stream
}

// Video returns the first video stream
func (p *ProbeInfo) Video() (media.Stream, bool) {
	return p.first(media.KindVideo)
}

// Audio returns the first audio stream
func (p *ProbeInfo) Audio() (media.Stream, bool) {
	return p.first(media.KindAudio)
}

func (p *ProbeInfo) first(kind media.StreamKind) (media.Stream, bool) {
	for _, s := range p.Streams {
		if s.Kind == kind {
			return s, true
		}
	}
	return media.Stream{}, false
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// ProgressFunc is a callback for progress updates during ffmpeg operations.
type ProgressFunc func(*Progress)
