package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kikiluvv/clipseq/internal/media"
	"github.com/kikiluvv/clipseq/internal/timebase"
	"github.com/rs/zerolog"
)

var errSourceClosed = errors.New("source closed")

var _ media.Opener = (*Executor)(nil)

// Source serves packets of one file from an ffprobe packet index, reading
// payloads straight from the file at each packet's byte offset.
type Source struct {
	logger   zerolog.Logger
	file     *os.File
	video    media.Stream
	audio    media.Stream
	hasAudio bool
	packets  []media.Packet
	cursor   int
	closed   bool
}

// Open probes url, indexes the packets of its first video and audio streams
// and opens the file for reading. It implements media.Opener.
func (e *Executor) Open(ctx context.Context, url string) (media.Source, error) {
	info, err := e.Probe(ctx, url)
	if err != nil {
		return nil, err
	}

	video, hasVideo := info.Video()
	audio, hasAudio := info.Audio()

	selected := make(map[int]media.StreamKind, 2)
	if hasVideo {
		selected[video.Index] = media.KindVideo
	}
	if hasAudio {
		selected[audio.Index] = media.KindAudio
	}

	packets, err := e.packetIndex(ctx, url, selected)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(url)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", url, err)
	}

	src := newSource(e.logger, file, packets)
	if hasVideo {
		src.video = fitStream(video, packets, media.KindVideo)
	}
	if hasAudio {
		src.audio = fitStream(audio, packets, media.KindAudio)
		src.hasAudio = true
	}

	e.logger.Info().
		Str("file", url).
		Str("format", info.FormatName).
		Bool("has_video", hasVideo).
		Bool("has_audio", hasAudio).
		Int("packets", len(packets)).
		Msg("source opened")

	return src, nil
}

func newSource(logger zerolog.Logger, file *os.File, packets []media.Packet) *Source {
	return &Source{
		logger:  logger,
		file:    file,
		packets: packets,
	}
}

// fitStream corrects stream timing from the packet index: containers often
// report duration_ts and frame rate loosely or not at all.
func fitStream(s media.Stream, packets []media.Packet, kind media.StreamKind) media.Stream {
	var lastPTS, lastDur, firstDur, count int64
	for _, p := range packets {
		if p.Kind != kind {
			continue
		}
		if count == 0 {
			firstDur = p.Duration
		}
		if p.PTS >= lastPTS || count == 0 {
			lastPTS = p.PTS
			lastDur = p.Duration
		}
		count++
	}
	if count == 0 {
		return s
	}

	if kind == media.KindVideo && !s.FrameRate.Valid() && firstDur > 0 {
		s.FrameRate = timebase.New(s.TimeBase.Den, s.TimeBase.Num*firstDur)
	}

	step := lastDur
	if kind == media.KindVideo {
		step = s.FrameDuration()
	}
	if d := lastPTS + step - s.StartPTS; d > 0 {
		s.Duration = d
	}
	if s.FrameCount == 0 {
		s.FrameCount = count
	}
	return s
}

func (s *Source) VideoStream() (media.Stream, bool) {
	return s.video, s.video.Kind == media.KindVideo
}

func (s *Source) AudioStream() (media.Stream, bool) {
	return s.audio, s.hasAudio
}

// Seek positions the source on the last video keyframe at or before pts.
// Audio packets stored ahead of that keyframe but presented after it are
// kept in front of the cursor.
func (s *Source) Seek(pts int64) error {
	if s.closed {
		return errSourceClosed
	}

	key := -1
	for i, p := range s.packets {
		if p.Kind == media.KindVideo && p.KeyFrame && p.PTS <= pts {
			key = i
		}
	}
	if key < 0 {
		s.cursor = 0
		return nil
	}

	keyPTS := s.packets[key].PTS
	cursor := key
	if s.hasAudio {
		for i := key - 1; i >= 0; i-- {
			p := s.packets[i]
			if p.Kind != media.KindAudio {
				continue
			}
			if timebase.Rescale(p.PTS, s.audio.TimeBase, s.video.TimeBase) < keyPTS {
				break
			}
			cursor = i
		}
	}

	s.cursor = cursor
	s.logger.Debug().
		Int64("target_pts", pts).
		Int64("keyframe_pts", keyPTS).
		Int("cursor", cursor).
		Msg("seek")
	return nil
}

// ReadPacket returns the next indexed packet with its payload
func (s *Source) ReadPacket() (media.Packet, error) {
	if s.closed {
		return media.Packet{}, errSourceClosed
	}
	if s.cursor >= len(s.packets) {
		return media.Packet{}, media.ErrEndOfStream
	}

	pkt := s.packets[s.cursor]
	if pkt.Pos >= 0 && pkt.Size > 0 {
		data := make([]byte, pkt.Size)
		n, err := s.file.ReadAt(data, pkt.Pos)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return media.Packet{}, fmt.Errorf("read packet at offset %d (%d of %d bytes): %w", pkt.Pos, n, pkt.Size, err)
		}
		pkt.Data = data
	}

	s.cursor++
	return pkt, nil
}

func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
