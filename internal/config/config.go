package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kikiluvv/clipseq/internal/timebase"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	Concurrency int `yaml:"concurrency"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Sequence settings
	Sequence SequenceConfig `yaml:"sequence"`

	// Export settings
	Export ExportConfig `yaml:"export"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
}

type SequenceConfig struct {
	// TimeBase of clip timeline positions; empty uses each clip's video time base
	TimeBase string `yaml:"time_base"`
	Passes   int    `yaml:"passes"`
}

type ExportConfig struct {
	OutputDir  string `yaml:"output_dir"`
	CopyCodec  bool   `yaml:"copy_codec"`
	VideoCodec string `yaml:"video_codec"`
	AudioCodec string `yaml:"audio_codec"`
	CRF        int    `yaml:"crf"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Sequence.Passes < 1 {
		return fmt.Errorf("sequence.passes must be at least 1, got %d", c.Sequence.Passes)
	}
	if c.Sequence.TimeBase != "" {
		if _, err := timebase.Parse(c.Sequence.TimeBase); err != nil {
			return fmt.Errorf("sequence.time_base: %w", err)
		}
	}
	return nil
}

// SequenceTimeBase returns the parsed sequence time base, if one is set
func (c *Config) SequenceTimeBase() (timebase.Rational, bool) {
	tb, err := timebase.Parse(c.Sequence.TimeBase)
	if err != nil {
		return timebase.Rational{}, false
	}
	return tb, true
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Concurrency: 4,
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
		},
		Sequence: SequenceConfig{
			TimeBase: "",
			Passes:   1,
		},
		Export: ExportConfig{
			OutputDir:  "./out",
			CopyCodec:  true,
			VideoCodec: "libx264",
			AudioCodec: "aac",
			CRF:        23,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./clipseq.yaml",
		"./clipseq.yml",
		filepath.Join(os.Getenv("HOME"), ".clipseq", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
