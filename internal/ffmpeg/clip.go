package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/kikiluvv/clipseq/pkg/util"
	"github.com/xfrr/goffmpeg/transcoder"
)

const stopTimeout = 5 * time.Second

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start        time.Duration
	End          time.Duration
	Output       string
	CopyCodec    bool // stream copy, no re-encode
	VideoCodec   string
	AudioCodec   string
	CRF          int // Quality (0-51, lower = better)
	ProgressFunc ProgressFunc
}

// ExtractClip writes the Start..End range of input to opts.Output.
// When ctx is cancelled it returns only after ffmpeg has exited, so the
// caller may remove a partial output right away.
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	duration := opts.End - opts.Start
	if duration <= 0 {
		return fmt.Errorf("invalid clip duration: end must be after start")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", duration).
		Bool("copy_codec", opts.CopyCodec).
		Msg("extracting clip")

	var err error
	if opts.CopyCodec {
		err = e.copyClip(ctx, input, opts.Output, opts.Start, duration)
	} else {
		err = e.encodeClip(ctx, input, opts, duration)
	}
	if err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("clip extraction complete")
	return nil
}

// copyClip remuxes the range without decoding through the goffmpeg transcoder.
// goffmpeg resolves its binaries from PATH, so an executor configured with
// other binaries remuxes through Run instead.
func (e *Executor) copyClip(ctx context.Context, input, output string, start, duration time.Duration) error {
	if !e.onPath {
		return e.remuxClip(ctx, input, output, start, duration)
	}

	trans := new(transcoder.Transcoder)

	if err := trans.Initialize(input, output); err != nil {
		return fmt.Errorf("failed to initialize transcoder: %w", err)
	}

	trans.MediaFile().SetSeekTime(util.FormatDuration(start))
	trans.MediaFile().SetDuration(util.FormatDuration(duration))
	trans.MediaFile().SetVideoCodec("copy")
	trans.MediaFile().SetAudioCodec("copy")

	e.logger.Debug().
		Str("source_duration", trans.MediaFile().Metadata().Format.Duration).
		Msg("stream copy started")

	done := trans.Run(false)
	select {
	case err := <-done:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return fmt.Errorf("stream copy: %w", err)
		}
		return nil
	case <-ctx.Done():
		e.stopTranscoder(trans, done)
		return ctx.Err()
	}
}

// stopTranscoder asks ffmpeg to quit and waits for it, killing the process
// if it ignores the request
func (e *Executor) stopTranscoder(trans *transcoder.Transcoder, done <-chan error) {
	_ = trans.Stop()
	select {
	case <-done:
		return
	case <-time.After(stopTimeout):
	}

	e.logger.Warn().Dur("timeout", stopTimeout).Msg("ffmpeg ignored stop request, killing it")
	if cmd := trans.Process(); cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	<-done
}

func (e *Executor) remuxClip(ctx context.Context, input, output string, start, duration time.Duration) error {
	return e.Run(ctx, RunOptions{
		Args: []string{
			"-ss", util.FormatDuration(start),
			"-i", input,
			"-t", util.FormatDuration(duration),
			"-c", "copy",
			output,
		},
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("stream copy")
		},
	})
}

func (e *Executor) encodeClip(ctx context.Context, input string, opts ClipOptions, duration time.Duration) error {
	args := []string{
		"-ss", util.FormatDuration(opts.Start),
		"-i", input,
		"-t", util.FormatDuration(duration),
	}

	codec := opts.VideoCodec
	if codec == "" {
		codec = DefaultVideoCodec
	}
	args = append(args, "-c:v", codec)

	audioCodec := opts.AudioCodec
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}
	args = append(args, "-c:a", audioCodec)

	crf := opts.CRF
	if crf == 0 {
		crf = DefaultCRF
	}
	args = append(args, "-crf", fmt.Sprintf("%d", crf), opts.Output)

	return e.Run(ctx, RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("clip extraction")
		},
	})
}
