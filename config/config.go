// Package config holds the settings of a dataset build.
//
// Values come from four layers, lowest precedence first: flag defaults, a
// YAML file named by the config flag, environment variables prefixed with
// [EnvPrefix], and flags set explicitly on the command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.jacobcolvin.com/stillframe/dataset"
	"go.jacobcolvin.com/stillframe/frame"
)

// EnvPrefix is prepended to the env tag of every [Config] field.
const EnvPrefix = "STILLFRAME_"

// ErrInvalid indicates a configuration that cannot be used for a build.
var ErrInvalid = errors.New("invalid configuration")

// Flags holds CLI flag names for build configuration, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	VideoDir    string
	Labels      string
	OutputDir   string
	FrameSize   string
	DatasetType string
	MaxWorkers  string
	DryRun      string
	FFmpeg      string
	FFprobe     string
	File        string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags: f,
	}
}

// Config holds the settings of a dataset build.
//
// Create instances with [NewConfig], register CLI flags with
// [Config.RegisterFlags], then call [Config.Load] after flag parsing and
// [Config.Validate] before building.
type Config struct {
	VideoDir    string     `env:"VIDEO_DIR"    yaml:"video_dir"`
	Labels      string     `env:"LABELS"       yaml:"labels"`
	OutputDir   string     `env:"OUTPUT_DIR"   yaml:"output_dir"`
	DatasetType string     `env:"DATASET_TYPE" yaml:"dataset_type"`
	FFmpeg      string     `env:"FFMPEG"       yaml:"ffmpeg"`
	FFprobe     string     `env:"FFPROBE"      yaml:"ffprobe"`
	File        string     `yaml:"-"`
	Flags       Flags      `yaml:"-"`
	FrameSize   frame.Size `env:"FRAME_SIZE"   yaml:"frame_size"`
	MaxWorkers  int        `env:"MAX_WORKERS"  yaml:"max_workers"`
	DryRun      bool       `env:"DRY_RUN"      yaml:"dry_run"`
}

// NewConfig returns a new [Config] with the default flag names.
func NewConfig() *Config {
	f := Flags{
		VideoDir:    "video-dir",
		Labels:      "labels",
		OutputDir:   "output-dir",
		FrameSize:   "frame-size",
		DatasetType: "dataset-type",
		MaxWorkers:  "max-workers",
		DryRun:      "dry-run",
		FFmpeg:      "ffmpeg",
		FFprobe:     "ffprobe",
		File:        "config",
	}

	return f.NewConfig()
}

// RegisterFlags adds build flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	c.FrameSize = dataset.DefaultSize

	flags.StringVar(&c.VideoDir, c.Flags.VideoDir, "data/videos", "directory containing the .avi videos")
	flags.StringVar(&c.Labels, c.Flags.Labels, "data/labels.xlsx", "label spreadsheet (.xlsx or .csv)")
	flags.StringVar(&c.OutputDir, c.Flags.OutputDir, "data/images", "root directory for run directories")
	flags.Var(&c.FrameSize, c.Flags.FrameSize, "target frame size")
	flags.StringVar(&c.DatasetType, c.Flags.DatasetType, string(dataset.TypeMaxConstriction),
		fmt.Sprintf("dataset type, one of: %s", dataset.GetAllTypeStrings()))
	flags.IntVar(&c.MaxWorkers, c.Flags.MaxWorkers, runtime.NumCPU(), "videos processed concurrently (all_frames)")
	flags.BoolVar(&c.DryRun, c.Flags.DryRun, false, "validate and create the run directory without extracting")
	flags.StringVar(&c.FFmpeg, c.Flags.FFmpeg, "ffmpeg", "ffmpeg executable")
	flags.StringVar(&c.FFprobe, c.Flags.FFprobe, "ffprobe", "ffprobe executable")
	flags.StringVar(&c.File, c.Flags.File, "", "YAML config file")
}

// RegisterCompletions registers shell completions for build flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	completions := map[string]cobra.CompletionFunc{
		c.Flags.DatasetType: cobra.FixedCompletions(dataset.GetAllTypeStrings(), cobra.ShellCompDirectiveNoFileComp),
		c.Flags.FrameSize:   cobra.FixedCompletions([]string{"256x256", "512x512", "1024x1024"}, cobra.ShellCompDirectiveNoFileComp),
		c.Flags.MaxWorkers:  cobra.NoFileCompletions,
		c.Flags.VideoDir:    cobra.FixedCompletions(nil, cobra.ShellCompDirectiveFilterDirs),
		c.Flags.OutputDir:   cobra.FixedCompletions(nil, cobra.ShellCompDirectiveFilterDirs),
		c.Flags.Labels:      cobra.FixedCompletions([]string{"xlsx", "csv"}, cobra.ShellCompDirectiveFilterFileExt),
		c.Flags.File:        cobra.FixedCompletions([]string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt),
	}

	for name, fn := range completions {
		err := cmd.RegisterFlagCompletionFunc(name, fn)
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", name, err)
		}
	}

	return nil
}

// Load applies the config file and environment to c. Fields whose flag was
// set explicitly in flags keep their flag value. Call after parsing.
func (c *Config) Load(flags *pflag.FlagSet) error {
	explicit := *c

	if c.File != "" {
		data, err := os.ReadFile(c.File)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}

		err = yaml.Unmarshal(data, c)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, c.File, err)
		}
	}

	err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix})
	if err != nil {
		return fmt.Errorf("%w: environment: %w", ErrInvalid, err)
	}

	for name, keep := range c.fields() {
		if flags.Changed(name) {
			keep(c, &explicit)
		}
	}

	return nil
}

func (c *Config) fields() map[string]func(dst, src *Config) {
	return map[string]func(dst, src *Config){
		c.Flags.VideoDir:    func(dst, src *Config) { dst.VideoDir = src.VideoDir },
		c.Flags.Labels:      func(dst, src *Config) { dst.Labels = src.Labels },
		c.Flags.OutputDir:   func(dst, src *Config) { dst.OutputDir = src.OutputDir },
		c.Flags.FrameSize:   func(dst, src *Config) { dst.FrameSize = src.FrameSize },
		c.Flags.DatasetType: func(dst, src *Config) { dst.DatasetType = src.DatasetType },
		c.Flags.MaxWorkers:  func(dst, src *Config) { dst.MaxWorkers = src.MaxWorkers },
		c.Flags.DryRun:      func(dst, src *Config) { dst.DryRun = src.DryRun },
		c.Flags.FFmpeg:      func(dst, src *Config) { dst.FFmpeg = src.FFmpeg },
		c.Flags.FFprobe:     func(dst, src *Config) { dst.FFprobe = src.FFprobe },
	}
}

// Validate reports every problem with c. Each returned error wraps
// [ErrInvalid].
func (c *Config) Validate() error {
	var errs []error

	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if !isDir(c.VideoDir) {
		invalid("video directory %q does not exist", c.VideoDir)
	}

	t, err := dataset.ParseType(c.DatasetType)
	if err != nil {
		invalid("%w", err)
	}

	if t == dataset.TypeMaxConstriction && !isFile(c.Labels) {
		invalid("labels file %q does not exist", c.Labels)
	}

	if !c.FrameSize.Valid() {
		invalid("frame size %q must be positive", c.FrameSize)
	}

	if c.MaxWorkers < 1 {
		invalid("max workers must be at least 1, got %d", c.MaxWorkers)
	}

	return errors.Join(errs...)
}

// Type returns the parsed dataset type. It is only meaningful after
// [Config.Validate] succeeds.
func (c *Config) Type() dataset.Type {
	t, err := dataset.ParseType(c.DatasetType)
	if err != nil {
		return ""
	}

	return t
}

func isDir(path string) bool {
	if path == "" {
		return false
	}

	fi, err := os.Stat(path)

	return err == nil && fi.IsDir()
}

func isFile(path string) bool {
	if path == "" {
		return false
	}

	fi, err := os.Stat(path)

	return err == nil && !fi.IsDir()
}
