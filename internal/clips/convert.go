package clips

import (
	"time"

	"github.com/kikiluvv/clipseq/internal/timebase"
)

// AbsPTS converts a clip-relative pts to a source video pts
func (c *Clip) AbsPTS(relativePTS int64) int64 {
	return c.origStartPTS + relativePTS
}

// RelativePTS converts a source video pts to a clip-relative pts.
// Negative results lie before the clip start.
func (c *Clip) RelativePTS(absPTS int64) int64 {
	return absPTS - c.origStartPTS
}

// TSVideo converts a raw source video timestamp to clip-relative video pts
func (c *Clip) TSVideo(pktTS int64) int64 {
	return c.RelativePTS(pktTS)
}

// TSAudio converts a raw source video timestamp to clip-relative audio pts.
// The offset is removed before rescaling so clips cut from the same file
// don't share an audio offset.
func (c *Clip) TSAudio(pktTS int64) int64 {
	return timebase.Rescale(c.RelativePTS(pktTS), c.video.TimeBase, c.audioTimeBase())
}

// AudioToVideoPTS rescales a source audio pts into the video time base
func (c *Clip) AudioToVideoPTS(audioPTS int64) int64 {
	return timebase.Rescale(audioPTS, c.audioTimeBase(), c.video.TimeBase)
}

func (c *Clip) audioTimeBase() timebase.Rational {
	if !c.hasAudio {
		return c.video.TimeBase
	}
	return c.audio.TimeBase
}

// FramePTS converts a frame index of the source file to video pts. Frame 0
// is the first frame of the video stream, wherever its pts starts.
func (c *Clip) FramePTS(frameIdx int64) int64 {
	return c.video.StartPTS + frameIdx*c.frameDur
}

// FrameIdx is the inverse of FramePTS
func (c *Clip) FrameIdx(pts int64) int64 {
	return (pts - c.video.StartPTS) / c.frameDur
}

// EndFrameIdx is the source frame index of the end boundary
func (c *Clip) EndFrameIdx() int64 {
	return c.FrameIdx(c.origEndPTS)
}

// StartTime is the start boundary as an offset from the first video frame,
// the origin ffmpeg's -ss counts from
func (c *Clip) StartTime() time.Duration {
	return timebase.ToDuration(c.origStartPTS-c.video.StartPTS, c.video.TimeBase)
}

// Duration is the playing time of the trimmed range, last frame included
func (c *Clip) Duration() time.Duration {
	return timebase.ToDuration(c.origEndPTS-c.origStartPTS+c.frameDur, c.video.TimeBase)
}
