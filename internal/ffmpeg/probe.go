package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kikiluvv/clipseq/internal/media"
	"github.com/kikiluvv/clipseq/internal/timebase"
)

// Probe extracts container and stream metadata from a media file
func (e *Executor) Probe(ctx context.Context, filePath string) (*ProbeInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	output, err := e.probe(ctx,
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	if err != nil {
		return nil, err
	}

	info, err := parseProbe(output)
	if err != nil {
		return nil, err
	}
	info.FilePath = filePath
	return info, nil
}

func parseProbe(data []byte) (*ProbeInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &ProbeInfo{
		FormatName: probe.Format.FormatName,
	}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(dur * float64(time.Second))
	}

	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	for _, ps := range probe.Streams {
		s, ok := ps.stream()
		if !ok {
			continue
		}
		info.Streams = append(info.Streams, s)
	}

	return info, nil
}

// stream converts an ffprobe stream entry. Streams that are neither audio nor
// video, or that carry no usable time base, are skipped.
func (ps probeStream) stream() (media.Stream, bool) {
	kind := media.ParseStreamKind(ps.CodecType)
	if kind == media.KindUnknown {
		return media.Stream{}, false
	}

	tb, err := timebase.Parse(ps.TimeBase)
	if err != nil {
		return media.Stream{}, false
	}

	s := media.Stream{
		Index:    ps.Index,
		Kind:     kind,
		TimeBase: tb,
		StartPTS: ps.StartPTS,
		Duration: ps.DurationTS,
		Codec: media.CodecParams{
			CodecName: ps.CodecName,
			Width:     ps.Width,
			Height:    ps.Height,
			PixFmt:    ps.PixFmt,
			Channels:  ps.Channels,
		},
	}

	if n, err := strconv.ParseInt(ps.NbFrames, 10, 64); err == nil {
		s.FrameCount = n
	}
	if br, err := strconv.ParseInt(ps.BitRate, 10, 64); err == nil {
		s.Codec.BitRate = br
	}
	if sr, err := strconv.Atoi(ps.SampleRate); err == nil {
		s.Codec.SampleRate = sr
	}

	if kind == media.KindVideo {
		// r_frame_rate is 0/0 for some containers
		for _, rate := range []string{ps.RFrameRate, ps.AvgFrameRate} {
			if fr, err := timebase.Parse(rate); err == nil && fr.Num > 0 {
				s.FrameRate = fr
				break
			}
		}
	}

	return s, true
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	Index        int    `json:"index"`
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	PixFmt       string `json:"pix_fmt"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	TimeBase     string `json:"time_base"`
	StartPTS     int64  `json:"start_pts"`
	DurationTS   int64  `json:"duration_ts"`
	NbFrames     string `json:"nb_frames"`
	BitRate      string `json:"bit_rate"`
}
