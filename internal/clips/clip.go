package clips

import (
	"cmp"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kikiluvv/clipseq/internal/media"
	"github.com/kikiluvv/clipseq/internal/timebase"
	"github.com/rs/zerolog"
)

// Clip is a trimmed view of one source file positioned on an editing timeline.
//
// The trim boundary (OrigStartPTS..OrigEndPTS, inclusive) and the read cursor
// are in the source's video time base. The timeline position (StartPTS..EndPTS,
// inclusive) is in the sequence time base.
//
// A Clip is not safe for concurrent use. Distinct clips, even over the same
// file, hold separate sources and may be used from different goroutines.
type Clip struct {
	ID string

	url    string
	opener media.Opener
	logger zerolog.Logger

	source   media.Source
	open     bool
	freed    bool
	video    media.Stream
	audio    media.Stream
	hasAudio bool
	frameDur int64

	origStartPTS    int64
	origEndPTS      int64
	seekPTS         int64
	seekFloor       int64
	currentFrameIdx int64
	state           ReadState
	pendingSeek     bool

	startPTS       int64
	endPTS         int64
	seqTimeBase    timebase.Rational
	seqTimeBaseSet bool
}

// Option configures a Clip at construction
type Option func(*Clip)

// WithLogger attaches a logger; clips are silent by default
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Clip) {
		c.logger = logger
	}
}

// WithSequenceTimeBase sets the time base of the timeline position.
// Without it the source video time base is used.
func WithSequenceTimeBase(tb timebase.Rational) Option {
	return func(c *Clip) {
		if tb.Valid() {
			c.seqTimeBase = tb
			c.seqTimeBaseSet = true
		}
	}
}

// WithPosition places the clip at startPTS on the timeline
func WithPosition(startPTS int64) Option {
	return func(c *Clip) {
		if startPTS >= 0 {
			c.startPTS = startPTS
			c.endPTS = startPTS
		}
	}
}

// New creates a closed clip for url. No I/O happens until Open.
func New(url string, opener media.Opener, opts ...Option) (*Clip, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	if opener == nil {
		return nil, ErrNilOpener
	}

	c := &Clip{
		ID:       uuid.New().String(),
		url:      url,
		opener:   opener,
		logger:   zerolog.Nop(),
		frameDur: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().
		Str("component", "clip").
		Str("clip_id", c.ID).
		Logger()

	return c, nil
}

// Open acquires the media source and resets the trim boundary to the whole
// video stream.
func (c *Clip) Open(ctx context.Context) error {
	if c.freed {
		return ErrFreed
	}
	if c.open {
		return ErrAlreadyOpen
	}

	src, err := c.opener.Open(ctx, c.url)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.url, err)
	}

	video, ok := src.VideoStream()
	if !ok {
		_ = src.Close()
		return fmt.Errorf("open %s: %w", c.url, ErrNoVideoStream)
	}
	audio, hasAudio := src.AudioStream()

	c.source = src
	c.open = true
	c.video = video
	c.audio = audio
	c.hasAudio = hasAudio
	c.frameDur = video.FrameDuration()
	if !c.seqTimeBaseSet {
		c.seqTimeBase = video.TimeBase
	}

	c.origStartPTS = video.StartPTS
	c.origEndPTS = video.LastPTS()
	c.rearm()
	c.updateTimelineEnd()

	c.logger.Debug().
		Str("url", c.url).
		Str("video_time_base", video.TimeBase.String()).
		Bool("has_audio", hasAudio).
		Int64("orig_end_pts", c.origEndPTS).
		Msg("clip opened")

	return nil
}

// OpenBounds opens the clip and trims it to frames startIdx..endIdx.
// The clip is closed again if the bounds are rejected.
func (c *Clip) OpenBounds(ctx context.Context, startIdx, endIdx int64) error {
	if err := c.Open(ctx); err != nil {
		return err
	}
	if err := c.SetBounds(startIdx, endIdx); err != nil {
		_ = c.Close()
		return err
	}
	return nil
}

// Close releases the media source. Closing a closed clip is a no-op.
func (c *Clip) Close() error {
	if !c.open {
		return nil
	}

	err := c.source.Close()
	c.source = nil
	c.open = false

	c.logger.Debug().Str("url", c.url).Msg("clip closed")

	if err != nil {
		return fmt.Errorf("close %s: %w", c.url, err)
	}
	return nil
}

// Free closes the clip and drops everything it owns. A freed clip cannot be
// reopened.
func (c *Clip) Free() error {
	err := c.Close()
	c.freed = true
	c.url = ""
	c.opener = nil
	return err
}

// rearm moves the cursor back to the clip start and starts a fresh read pass.
// The source seek is deferred to the next ReadPacket.
func (c *Clip) rearm() {
	c.seekPTS = c.origStartPTS
	c.seekFloor = c.origStartPTS
	c.currentFrameIdx = 0
	c.state = c.initialState()
	c.pendingSeek = true
}

func (c *Clip) initialState() ReadState {
	if !c.hasAudio {
		return StateAudioDone
	}
	return StateReading
}

func (c *Clip) updateTimelineEnd() {
	length := timebase.Rescale(c.origEndPTS-c.origStartPTS, c.video.TimeBase, c.seqTimeBase)
	c.endPTS = c.startPTS + length
}

// Compare orders clips by timeline start
func Compare(a, b *Clip) int {
	return cmp.Compare(a.startPTS, b.startPTS)
}

func (c *Clip) URL() string            { return c.url }
func (c *Clip) IsOpen() bool           { return c.open }
func (c *Clip) OrigStartPTS() int64    { return c.origStartPTS }
func (c *Clip) OrigEndPTS() int64      { return c.origEndPTS }
func (c *Clip) Cursor() int64          { return c.seekPTS }
func (c *Clip) CurrentFrameIdx() int64 { return c.currentFrameIdx }
func (c *Clip) StartPTS() int64        { return c.startPTS }
func (c *Clip) EndPTS() int64          { return c.endPTS }
func (c *Clip) State() ReadState       { return c.state }

// SequenceTimeBase is the time base of StartPTS and EndPTS
func (c *Clip) SequenceTimeBase() timebase.Rational { return c.seqTimeBase }

// VideoTimeBase returns the source video time base while the clip is open
func (c *Clip) VideoTimeBase() (timebase.Rational, bool) {
	if !c.open {
		return timebase.Rational{}, false
	}
	return c.video.TimeBase, true
}

// AudioTimeBase returns the source audio time base while the clip is open
// and the source has audio
func (c *Clip) AudioTimeBase() (timebase.Rational, bool) {
	if !c.open || !c.hasAudio {
		return timebase.Rational{}, false
	}
	return c.audio.TimeBase, true
}

// VideoStream returns nil when the clip is closed
func (c *Clip) VideoStream() *media.Stream {
	if !c.open {
		return nil
	}
	s := c.video
	return &s
}

// AudioStream returns nil when the clip is closed or the source has no audio
func (c *Clip) AudioStream() *media.Stream {
	if !c.open || !c.hasAudio {
		return nil
	}
	s := c.audio
	return &s
}

func (c *Clip) VideoParams() *media.CodecParams {
	if s := c.VideoStream(); s != nil {
		return &s.Codec
	}
	return nil
}

func (c *Clip) AudioParams() *media.CodecParams {
	if s := c.AudioStream(); s != nil {
		return &s.Codec
	}
	return nil
}

func (c *Clip) String() string {
	return fmt.Sprintf("%s url=%s bounds=[%d, %d] timeline=[%d, %d]",
		c.ID, c.url, c.origStartPTS, c.origEndPTS, c.startPTS, c.endPTS)
}
