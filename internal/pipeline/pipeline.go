package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kikiluvv/clipseq/internal/clips"
	"github.com/kikiluvv/clipseq/internal/config"
	"github.com/kikiluvv/clipseq/internal/ffmpeg"
	"github.com/kikiluvv/clipseq/internal/media"
	"github.com/kikiluvv/clipseq/internal/timebase"
	"github.com/kikiluvv/clipseq/pkg/util"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// ErrNoExporter is returned by Export when the pipeline has no ffmpeg executor
var ErrNoExporter = errors.New("pipeline has no ffmpeg executor")

// Pipeline assembles sequences from clip specs, reads them and exports them
type Pipeline struct {
	logger zerolog.Logger
	// clips derive their own component logger from base
	base   zerolog.Logger
	config *Config
	opener media.Opener
	ffmpeg *ffmpeg.Executor
}

// New creates a pipeline backed by ffmpeg
func New(logger zerolog.Logger, cfg *Config, appCfg *config.Config) (*Pipeline, error) {
	if appCfg == nil {
		appCfg = config.Default()
	}
	if cfg == nil {
		cfg = ConfigFrom(appCfg)
	}

	ffmpegExec, err := ffmpeg.NewWithPaths(logger, appCfg.FFmpeg.BinaryPath, appCfg.FFmpeg.ProbePath, appCfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	p := NewWithOpener(logger, cfg, ffmpegExec)
	p.ffmpeg = ffmpegExec
	return p, nil
}

// NewWithOpener creates a pipeline reading through opener. It cannot export.
func NewWithOpener(logger zerolog.Logger, cfg *Config, opener media.Opener) *Pipeline {
	if cfg == nil {
		cfg = ConfigFrom(config.Default())
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Passes < 1 {
		cfg.Passes = 1
	}
	if !cfg.TimeBase.Valid() {
		cfg.TimeBase = timebase.MPEG
	}

	return &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		base:   logger,
		config: cfg,
		opener: opener,
	}
}

// ConfigFrom derives pipeline settings from the application config
func ConfigFrom(appCfg *config.Config) *Config {
	cfg := &Config{
		Workers: appCfg.Concurrency,
		Passes:  appCfg.Sequence.Passes,
	}
	if tb, ok := appCfg.SequenceTimeBase(); ok {
		cfg.TimeBase = tb
	}
	return cfg
}

// Assemble opens a clip per spec and lays them out on one timeline.
// Clips without a position follow the previous clip in spec order.
// On failure every clip opened so far is freed.
func (p *Pipeline) Assemble(ctx context.Context, name string, specs []ClipSpec) (*Sequence, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("sequence %q has no clips", name)
	}

	p.logger.Info().
		Str("sequence", name).
		Int("clips", len(specs)).
		Str("time_base", p.config.TimeBase.String()).
		Msg("assembling sequence")

	opened := make([]*clips.Clip, len(specs))
	freeAll := func() {
		for _, c := range opened {
			if c != nil {
				_ = c.Free()
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	for i, spec := range specs {
		g.Go(func() error {
			c, err := p.openClip(gctx, spec)
			if err != nil {
				return fmt.Errorf("clip %d (%s): %w", i, spec, err)
			}
			opened[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		freeAll()
		return nil, err
	}

	seq := &Sequence{
		Name:      name,
		TimeBase:  p.config.TimeBase,
		Clips:     clips.NewList(),
		CreatedAt: time.Now(),
	}

	var next int64
	for i, c := range opened {
		if specs[i].Position < 0 {
			if err := c.Move(next); err != nil {
				freeAll()
				return nil, err
			}
		}
		next = c.EndPTS() + p.frameStep(c)
		seq.Clips.Insert(c)

		p.logger.Debug().
			Str("clip_id", c.ID).
			Str("url", c.URL()).
			Int64("start_pts", c.StartPTS()).
			Int64("end_pts", c.EndPTS()).
			Msg("clip placed")
	}

	p.logger.Info().
		Str("sequence", name).
		Int64("timeline_end", seq.Clips.TimelineEnd()).
		Dur("duration", seq.Duration()).
		Msg("sequence assembled")

	return seq, nil
}

func (p *Pipeline) openClip(ctx context.Context, spec ClipSpec) (*clips.Clip, error) {
	opts := []clips.Option{
		clips.WithLogger(p.base),
		clips.WithSequenceTimeBase(p.config.TimeBase),
	}
	if spec.Position >= 0 {
		opts = append(opts, clips.WithPosition(spec.Position))
	}

	c, err := clips.New(spec.URL, p.opener, opts...)
	if err != nil {
		return nil, err
	}

	if err := c.Open(ctx); err != nil {
		_ = c.Free()
		return nil, err
	}

	if spec.Trimmed() {
		end := spec.EndFrame
		if end < 0 {
			end = c.EndFrameIdx()
		}
		if err := c.SetBounds(spec.StartFrame, end); err != nil {
			_ = c.Free()
			return nil, err
		}
	}
	return c, nil
}

// frameStep is one video frame of c in the sequence time base
func (p *Pipeline) frameStep(c *clips.Clip) int64 {
	video := c.VideoStream()
	if video == nil {
		return 1
	}
	return max(timebase.Rescale(video.FrameDuration(), video.TimeBase, p.config.TimeBase), 1)
}

// Drain runs passes read passes over every clip. Clips are read concurrently,
// each by a single goroutine.
func (p *Pipeline) Drain(ctx context.Context, seq *Sequence, passes int) ([]PassStats, error) {
	if passes < 1 {
		passes = p.config.Passes
	}

	list := seq.Clips.Slice()
	stats := make([]PassStats, len(list)*passes)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	for i, c := range list {
		g.Go(func() error {
			for pass := range passes {
				st, err := p.readPass(gctx, c)
				if err != nil {
					return fmt.Errorf("clip %s pass %d: %w", c.ID, pass, err)
				}
				st.Pass = pass
				stats[i*passes+pass] = st
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := Summarize(stats)
	p.logger.Info().
		Str("sequence", seq.Name).
		Int("clips", sum.Clips).
		Int("passes", passes).
		Int("video_packets", sum.VideoPackets).
		Int("audio_packets", sum.AudioPackets).
		Int64("bytes", sum.Bytes).
		Msg("sequence drained")

	return stats, nil
}

func (p *Pipeline) readPass(ctx context.Context, c *clips.Clip) (PassStats, error) {
	st := PassStats{
		ClipID:   c.ID,
		URL:      c.URL(),
		FirstPTS: -1,
		LastPTS:  -1,
	}
	start := time.Now()

	err := c.ForEachPacket(func(pkt media.Packet) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch pkt.Kind {
		case media.KindVideo:
			st.VideoPackets++
			if st.FirstPTS < 0 {
				st.FirstPTS = pkt.PTS
			}
			st.LastPTS = pkt.PTS
		case media.KindAudio:
			st.AudioPackets++
		}
		st.Bytes += int64(len(pkt.Data))
		return nil
	})
	if err != nil {
		// leave the clip ready for a fresh pass
		_ = c.Reset()
		return st, err
	}

	st.Elapsed = time.Since(start)
	return st, nil
}

// Summarize totals pass statistics
func Summarize(stats []PassStats) Summary {
	return Summary{
		Clips:        len(lo.Uniq(lo.Map(stats, func(s PassStats, _ int) string { return s.ClipID }))),
		Passes:       len(stats),
		VideoPackets: lo.SumBy(stats, func(s PassStats) int { return s.VideoPackets }),
		AudioPackets: lo.SumBy(stats, func(s PassStats) int { return s.AudioPackets }),
		Bytes:        lo.SumBy(stats, func(s PassStats) int64 { return s.Bytes }),
	}
}

// Export writes the trimmed range of every clip to its own file in timeline
// order and returns the paths written.
func (p *Pipeline) Export(ctx context.Context, seq *Sequence, opts ExportOptions) ([]string, error) {
	if p.ffmpeg == nil {
		return nil, ErrNoExporter
	}
	if err := util.EnsureDir(opts.OutputDir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	list := seq.Clips.Slice()
	outputs := make([]string, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	for i, c := range list {
		outputs[i] = ExportPath(opts.OutputDir, i, c.URL())
		g.Go(func() error {
			start := c.StartTime()
			return p.ffmpeg.ExtractClip(gctx, c.URL(), ffmpeg.ClipOptions{
				Start:      start,
				End:        start + c.Duration(),
				Output:     outputs[i],
				CopyCodec:  opts.CopyCodec,
				VideoCodec: opts.VideoCodec,
				AudioCodec: opts.AudioCodec,
				CRF:        opts.CRF,
			})
		})
	}

	if err := g.Wait(); err != nil {
		util.CleanupFiles(outputs...)
		return nil, err
	}

	p.logger.Info().
		Str("sequence", seq.Name).
		Str("output_dir", opts.OutputDir).
		Int("files", len(outputs)).
		Msg("sequence exported")

	return outputs, nil
}

// ExportPath names the export of the idx-th clip of a sequence
func ExportPath(dir string, idx int, url string) string {
	ext := util.GetExtension(url)
	if ext == "" {
		ext = ".mp4"
	}
	return filepath.Join(dir, fmt.Sprintf("%03d_%s%s", idx, util.StemName(url), ext))
}
