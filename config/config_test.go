package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/stillframe/config"
	"go.jacobcolvin.com/stillframe/dataset"
	"go.jacobcolvin.com/stillframe/frame"
	"go.jacobcolvin.com/stillframe/stringtest"
)

func parse(t *testing.T, args ...string) (*config.Config, *pflag.FlagSet) {
	t.Helper()

	cfg := config.NewConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.RegisterFlags(flags)

	require.NoError(t, flags.Parse(args))

	return cfg, flags
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg, flags := parse(t)
	require.NoError(t, cfg.Load(flags))

	assert.Equal(t, "data/videos", cfg.VideoDir)
	assert.Equal(t, "data/labels.xlsx", cfg.Labels)
	assert.Equal(t, "data/images", cfg.OutputDir)
	assert.Equal(t, dataset.DefaultSize, cfg.FrameSize)
	assert.Equal(t, string(dataset.TypeMaxConstriction), cfg.DatasetType)
	assert.Positive(t, cfg.MaxWorkers)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, "ffmpeg", cfg.FFmpeg)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, filepath.Join(t.TempDir(), "stillframe.yaml"), stringtest.Input(`
		video_dir: /srv/videos
		dataset_type: all_frames
		frame_size: 256x128
		max_workers: 3
	`))

	cfg, flags := parse(t, "--config", path, "--max-workers", "9")
	require.NoError(t, cfg.Load(flags))

	assert.Equal(t, "/srv/videos", cfg.VideoDir)
	assert.Equal(t, "all_frames", cfg.DatasetType)
	assert.Equal(t, frame.Size{Width: 256, Height: 128}, cfg.FrameSize)
	assert.Equal(t, 9, cfg.MaxWorkers)
	assert.Equal(t, "data/images", cfg.OutputDir)
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		content string
		invalid bool
	}{
		"missing file": {},
		"bad size": {
			content: "frame_size: huge\n",
			invalid: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "stillframe.yaml")
			if tc.content != "" {
				writeFile(t, path, tc.content)
			}

			cfg, flags := parse(t, "--config", path)

			err := cfg.Load(flags)
			require.Error(t, err)

			if tc.invalid {
				require.ErrorIs(t, err, config.ErrInvalid)
			} else {
				require.ErrorIs(t, err, os.ErrNotExist)
			}
		})
	}
}

//nolint:paralleltest // Uses t.Setenv.
func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "stillframe.yaml"), `
video_dir: /from/file
output_dir: /from/file
labels: /from/file.xlsx
`)

	t.Setenv("STILLFRAME_OUTPUT_DIR", "/from/env")
	t.Setenv("STILLFRAME_LABELS", "/from/env.csv")
	t.Setenv("STILLFRAME_FRAME_SIZE", "64")
	t.Setenv("STILLFRAME_DRY_RUN", "true")

	cfg, flags := parse(t, "--config", path, "--labels", "/from/flag.xlsx")
	require.NoError(t, cfg.Load(flags))

	assert.Equal(t, "/from/file", cfg.VideoDir)
	assert.Equal(t, "/from/env", cfg.OutputDir)
	assert.Equal(t, "/from/flag.xlsx", cfg.Labels)
	assert.Equal(t, frame.Size{Width: 64, Height: 64}, cfg.FrameSize)
	assert.True(t, cfg.DryRun)
}

//nolint:paralleltest // Uses t.Setenv.
func TestLoadBadEnv(t *testing.T) {
	t.Setenv("STILLFRAME_MAX_WORKERS", "many")

	cfg, flags := parse(t)
	require.ErrorIs(t, cfg.Load(flags), config.ErrInvalid)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	videos := filepath.Join(dir, "videos")
	require.NoError(t, os.Mkdir(videos, 0o755))

	labels := writeFile(t, filepath.Join(dir, "labels.csv"), "video_id,frame_max_constricao\n1,2\n")

	valid := func() config.Config {
		return config.Config{
			VideoDir:    videos,
			Labels:      labels,
			DatasetType: string(dataset.TypeMaxConstriction),
			FrameSize:   frame.Size{Width: 512, Height: 512},
			MaxWorkers:  2,
		}
	}

	tcs := map[string]struct {
		modify  func(*config.Config)
		wantErr bool
	}{
		"valid": {
			modify: func(*config.Config) {},
		},
		"missing video dir": {
			modify:  func(c *config.Config) { c.VideoDir = filepath.Join(dir, "nope") },
			wantErr: true,
		},
		"video dir is a file": {
			modify:  func(c *config.Config) { c.VideoDir = labels },
			wantErr: true,
		},
		"missing labels": {
			modify:  func(c *config.Config) { c.Labels = filepath.Join(dir, "nope.xlsx") },
			wantErr: true,
		},
		"labels not needed for all frames": {
			modify: func(c *config.Config) {
				c.DatasetType = string(dataset.TypeAllFrames)
				c.Labels = ""
			},
		},
		"unknown type": {
			modify:  func(c *config.Config) { c.DatasetType = "best_frames" },
			wantErr: true,
		},
		"zero size": {
			modify:  func(c *config.Config) { c.FrameSize = frame.Size{} },
			wantErr: true,
		},
		"zero workers": {
			modify:  func(c *config.Config) { c.MaxWorkers = 0 },
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tc.modify(&cfg)

			err := cfg.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, config.ErrInvalid)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestType(t *testing.T) {
	t.Parallel()

	cfg := config.Config{DatasetType: "all-frames"}
	assert.Equal(t, dataset.TypeAllFrames, cfg.Type())

	cfg.DatasetType = "other"
	assert.Equal(t, dataset.Type(""), cfg.Type())
}

func TestRegisterCompletions(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cmd := &cobra.Command{Use: "test"}
	cfg.RegisterFlags(cmd.Flags())

	require.NoError(t, cfg.RegisterCompletions(cmd))

	fn, ok := cmd.GetFlagCompletionFunc("dataset-type")
	require.True(t, ok)

	values, directive := fn(cmd, nil, "")
	assert.Equal(t, dataset.GetAllTypeStrings(), values)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
}
