package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/clipseq/internal/clips"
	"github.com/kikiluvv/clipseq/internal/timebase"
)

// ClipSpec describes one clip to place on a sequence
type ClipSpec struct {
	URL string
	// StartFrame..EndFrame trims the source; EndFrame < 0 keeps the source end
	StartFrame int64
	EndFrame   int64
	// Position is the timeline start in the sequence time base; negative
	// places the clip right after the previous one
	Position int64
}

// Trimmed reports whether the spec narrows the source range
func (s ClipSpec) Trimmed() bool {
	return s.StartFrame > 0 || s.EndFrame >= 0
}

func (s ClipSpec) String() string {
	var b strings.Builder
	b.WriteString(s.URL)
	if s.Trimmed() {
		b.WriteString(":" + strconv.FormatInt(s.StartFrame, 10) + "-")
		if s.EndFrame >= 0 {
			b.WriteString(strconv.FormatInt(s.EndFrame, 10))
		}
	}
	if s.Position >= 0 {
		b.WriteString("@" + strconv.FormatInt(s.Position, 10))
	}
	return b.String()
}

// ParseClipSpec reads "path[:start-end][@position]". The end frame may be
// left out ("clip.mp4:30-") to keep the rest of the file.
func ParseClipSpec(s string) (ClipSpec, error) {
	spec := ClipSpec{URL: s, EndFrame: -1, Position: -1}

	if i := strings.LastIndex(spec.URL, "@"); i >= 0 {
		pos, err := strconv.ParseInt(spec.URL[i+1:], 10, 64)
		if err == nil {
			if pos < 0 {
				return ClipSpec{}, fmt.Errorf("clip spec %q: negative position", s)
			}
			spec.Position = pos
			spec.URL = spec.URL[:i]
		}
	}

	if i := strings.LastIndex(spec.URL, ":"); i >= 0 {
		if start, end, ok := parseFrameRange(spec.URL[i+1:]); ok {
			if end >= 0 && end < start {
				return ClipSpec{}, fmt.Errorf("clip spec %q: end frame before start frame", s)
			}
			spec.StartFrame, spec.EndFrame = start, end
			spec.URL = spec.URL[:i]
		}
	}

	if spec.URL == "" {
		return ClipSpec{}, fmt.Errorf("clip spec %q: empty path", s)
	}
	return spec, nil
}

func parseFrameRange(s string) (start, end int64, ok bool) {
	a, b, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(a, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false
	}
	if b == "" {
		return start, -1, true
	}
	end, err = strconv.ParseInt(b, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// Sequence is an ordered set of opened clips sharing one timeline
type Sequence struct {
	Name      string
	TimeBase  timebase.Rational
	Clips     *clips.List
	CreatedAt time.Time
}

// Duration is the wall-clock length of the timeline, last frame included
func (s *Sequence) Duration() time.Duration {
	var end time.Duration
	for _, c := range s.Clips.All() {
		clipEnd := timebase.ToDuration(c.StartPTS(), s.TimeBase) + c.Duration()
		end = max(end, clipEnd)
	}
	return end
}

// Close frees every clip of the sequence
func (s *Sequence) Close() {
	s.Clips.Clear()
}

// PassStats counts what one read pass over one clip returned
type PassStats struct {
	ClipID       string
	URL          string
	Pass         int
	VideoPackets int
	AudioPackets int
	Bytes        int64
	FirstPTS     int64
	LastPTS      int64
	Elapsed      time.Duration
}

// Summary aggregates pass statistics
type Summary struct {
	Clips        int
	Passes       int
	VideoPackets int
	AudioPackets int
	Bytes        int64
}

// ExportOptions configures per-clip export
type ExportOptions struct {
	OutputDir  string
	CopyCodec  bool
	VideoCodec string
	AudioCodec string
	CRF        int
}

// Config holds pipeline-specific configuration
type Config struct {
	Workers int
	Passes  int
	// TimeBase of the sequence timeline
	TimeBase timebase.Rational
}
