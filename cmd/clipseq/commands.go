package main

import (
	"fmt"
	"os"

	"github.com/kikiluvv/clipseq/internal/clips"
	"github.com/kikiluvv/clipseq/internal/config"
	"github.com/kikiluvv/clipseq/internal/ffmpeg"
	"github.com/kikiluvv/clipseq/internal/media"
	"github.com/kikiluvv/clipseq/internal/pipeline"
	"github.com/kikiluvv/clipseq/internal/timebase"
	"github.com/kikiluvv/clipseq/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	return ffmpeg.NewWithPaths(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath, cfg.FFmpeg.Threads)
}

var probeCmd = &cobra.Command{
	Use:   "probe [media file]",
	Short: "Show the streams clipseq would read from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}

		info, err := exec.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %s, %v\n", info.FilePath, info.FormatName, info.Duration)
		for _, s := range info.Streams {
			fmt.Fprintf(out, "  #%d %s %s time_base=%s", s.Index, s.Kind, s.Codec.CodecName, s.TimeBase)
			switch s.Kind {
			case media.KindVideo:
				fmt.Fprintf(out, " %dx%d %s fps", s.Codec.Width, s.Codec.Height, s.FrameRate)
			case media.KindAudio:
				fmt.Fprintf(out, " %d Hz %d ch", s.Codec.SampleRate, s.Codec.Channels)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read [media file]",
	Short: "Read the packets of one trimmed clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		flags := cmd.Flags()
		startFrame, _ := flags.GetInt64("start")
		endFrame, _ := flags.GetInt64("end")
		in, _ := flags.GetString("in")
		outTS, _ := flags.GetString("out")
		passes, _ := flags.GetInt("passes")
		if passes < 1 {
			passes = cfg.Sequence.Passes
		}

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}

		c, err := clips.New(args[0], exec, clips.WithLogger(log.Logger))
		if err != nil {
			return err
		}
		defer c.Free()

		if err := c.Open(cmd.Context()); err != nil {
			return err
		}
		if err := applyReadBounds(c, startFrame, endFrame, in, outTS); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, c)
		for pass := range passes {
			var video, audio int
			err := c.ForEachPacket(func(pkt media.Packet) error {
				if pkt.Kind == media.KindVideo {
					video++
				} else {
					audio++
				}
				return cmd.Context().Err()
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "pass %d: %d video, %d audio packets, %d frames\n", pass, video, audio, c.CurrentFrameIdx())
		}
		return nil
	},
}

// applyReadBounds trims c by frame index or by timestamp; timestamps win
func applyReadBounds(c *clips.Clip, startFrame, endFrame int64, in, out string) error {
	if startFrame > 0 || endFrame >= 0 {
		if endFrame < 0 {
			endFrame = c.EndFrameIdx()
		}
		if err := c.SetBounds(startFrame, endFrame); err != nil {
			return err
		}
	}

	vtb, _ := c.VideoTimeBase()
	if out != "" {
		d, err := util.ParseTimestamp(out)
		if err != nil {
			return err
		}
		if err := c.SetEnd(timebase.FromDuration(d, vtb)); err != nil {
			return err
		}
	}
	if in != "" {
		d, err := util.ParseTimestamp(in)
		if err != nil {
			return err
		}
		if err := c.SetStart(timebase.FromDuration(d, vtb)); err != nil {
			return err
		}
	}
	return nil
}

func parseSpecs(args []string) ([]pipeline.ClipSpec, error) {
	specs := make([]pipeline.ClipSpec, 0, len(args))
	for _, arg := range args {
		spec, err := pipeline.ParseClipSpec(arg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func assemble(cmd *cobra.Command, args []string) (*pipeline.Pipeline, *pipeline.Sequence, error) {
	cfg := config.FromContext(cmd.Context())
	specs, err := parseSpecs(args)
	if err != nil {
		return nil, nil, err
	}

	pipe, err := pipeline.New(log.Logger, nil, cfg)
	if err != nil {
		return nil, nil, err
	}

	name, _ := cmd.Flags().GetString("name")
	seq, err := pipe.Assemble(cmd.Context(), name, specs)
	if err != nil {
		return nil, nil, err
	}
	return pipe, seq, nil
}

var seqCmd = &cobra.Command{
	Use:   "seq [clip spec]...",
	Short: "Assemble a sequence and read every clip",
	Long:  "Each clip spec is path[:start-end][@position]; frames are source frame indices, position is in the sequence time base.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		passes, _ := cmd.Flags().GetInt("passes")

		pipe, seq, err := assemble(cmd, args)
		if err != nil {
			return err
		}
		defer seq.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (time base %s, %v)\n%s\n", seq.Name, seq.TimeBase, seq.Duration(), seq.Clips)

		stats, err := pipe.Drain(cmd.Context(), seq, passes)
		if err != nil {
			return err
		}
		for _, st := range stats {
			fmt.Fprintf(out, "%s pass %d: %d video, %d audio, %d bytes in %v\n",
				st.URL, st.Pass, st.VideoPackets, st.AudioPackets, st.Bytes, st.Elapsed)
		}
		sum := pipeline.Summarize(stats)
		fmt.Fprintf(out, "total: %d clips, %d passes, %d video, %d audio packets\n",
			sum.Clips, sum.Passes, sum.VideoPackets, sum.AudioPackets)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [clip spec]...",
	Short: "Write each clip's trimmed range to its own file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		opts := pipeline.ExportOptions{
			OutputDir:  cfg.Export.OutputDir,
			CopyCodec:  cfg.Export.CopyCodec,
			VideoCodec: cfg.Export.VideoCodec,
			AudioCodec: cfg.Export.AudioCodec,
			CRF:        cfg.Export.CRF,
		}
		if dir, _ := cmd.Flags().GetString("out"); dir != "" {
			opts.OutputDir = dir
		}
		if reencode, _ := cmd.Flags().GetBool("reencode"); reencode {
			opts.CopyCodec = false
		}

		pipe, seq, err := assemble(cmd, args)
		if err != nil {
			return err
		}
		defer seq.Close()

		outputs, err := pipe.Export(cmd.Context(), seq, opts)
		if err != nil {
			return err
		}
		for _, path := range outputs {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "clipseq.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if util.FileExists(path) && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite): %w", path, os.ErrExist)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

func init() {
	readCmd.Flags().Int64("start", 0, "first source frame")
	readCmd.Flags().Int64("end", -1, "last source frame (default: last frame)")
	readCmd.Flags().String("in", "", "start timestamp (HH:MM:SS.mmm), overrides --start")
	readCmd.Flags().String("out", "", "end timestamp (HH:MM:SS.mmm), overrides --end")
	readCmd.Flags().Int("passes", 0, "read passes (default: sequence.passes)")

	seqCmd.Flags().String("name", "sequence", "sequence name")
	seqCmd.Flags().Int("passes", 0, "read passes per clip (default: sequence.passes)")

	exportCmd.Flags().String("name", "sequence", "sequence name")
	exportCmd.Flags().String("out", "", "output directory (default: export.output_dir)")
	exportCmd.Flags().Bool("reencode", false, "re-encode instead of stream copy")

	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
