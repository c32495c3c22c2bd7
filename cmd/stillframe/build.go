package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.jacobcolvin.com/stillframe/config"
	"go.jacobcolvin.com/stillframe/dataset"
	"go.jacobcolvin.com/stillframe/labels"
	"go.jacobcolvin.com/stillframe/log"
	"go.jacobcolvin.com/stillframe/rundir"
	"go.jacobcolvin.com/stillframe/video"
)

func newBuildCmd(logCfg *log.Config) *cobra.Command {
	cfg := config.NewConfig()

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Extract a dataset into a new run directory",
		Long: `build creates the next numbered run directory under the output directory and
extracts images into it.

With --dataset-type=max_constriction the labeled frame of every video listed
in the labels file is written as {id}_max_constriction.png. With
--dataset-type=all_frames every frame of every video is written as
{id}_frame_{n}.png, processing up to --max-workers videos at once.

Settings are read from flag defaults, then the --config file, then
STILLFRAME_* environment variables, then explicitly set flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logCfg.NewLogger(os.Stderr)
			if err != nil {
				return err
			}

			return runBuild(cmd.Context(), logger, cfg, cmd.Flags())
		},
	}

	cfg.RegisterFlags(cmd.Flags())
	registerCompletions(cmd, cfg.RegisterCompletions)

	return cmd
}

func runBuild(ctx context.Context, logger *slog.Logger, cfg *config.Config, flags *pflag.FlagSet) error {
	err := cfg.Load(flags)
	if err != nil {
		return err
	}

	err = cfg.Validate()
	if err != nil {
		return err
	}

	typ := cfg.Type()

	dir, err := rundir.Create(cfg.OutputDir, string(typ), cfg.FrameSize.Width)
	if errors.Is(err, rundir.ErrConflict) {
		logger.Warn("run directory already exists, writing into it", slog.String("dir", dir.Path))
	} else if err != nil {
		return err
	}

	logger.Info("created run directory",
		slog.String("dir", dir.Path),
		slog.String("type", string(typ)),
		slog.String("size", cfg.FrameSize.String()),
	)

	if cfg.DryRun {
		logger.Info("dry run, skipping extraction")

		return nil
	}

	src := video.NewSource(video.WithFFmpeg(cfg.FFmpeg), video.WithFFprobe(cfg.FFprobe))
	builder := dataset.NewBuilder(src,
		dataset.WithLogger(logger),
		dataset.WithSize(cfg.FrameSize),
		dataset.WithMaxWorkers(cfg.MaxWorkers),
	)

	manifest := dataset.Manifest{
		Started:   time.Now(),
		Type:      typ,
		FrameSize: cfg.FrameSize.String(),
		VideoDir:  cfg.VideoDir,
	}

	var runErr error

	switch typ {
	case dataset.TypeMaxConstriction:
		rows, err := labels.Read(cfg.Labels)
		if err != nil {
			return err
		}

		logger.Info("loaded labels", slog.Int("rows", len(rows)), slog.String("file", cfg.Labels))

		report, err := builder.FromLabels(ctx, rows, cfg.VideoDir, dir.Path)
		runErr = err

		manifest.Labels = cfg.Labels
		manifest.AddLabelReport(report)

	case dataset.TypeAllFrames:
		report, err := builder.AllFrames(ctx, cfg.VideoDir, dir.Path)
		if report == nil {
			return err
		}

		runErr = err

		manifest.AddFramesReport(report)
	}

	manifest.Finished = time.Now()

	err = dataset.WriteManifest(dir.Path, manifest)
	if err != nil {
		return errors.Join(runErr, err)
	}

	logger.Info("build finished",
		slog.String("images", humanize.Comma(manifest.Images)),
		slog.Int("missed", len(manifest.Missed)),
		slog.Int("failed", len(manifest.Failed)),
		slog.String("took", manifest.Finished.Sub(manifest.Started).Round(time.Millisecond).String()),
		slog.String("manifest", dataset.ManifestName),
	)

	if runErr != nil {
		return fmt.Errorf("build interrupted: %w", runErr)
	}

	return nil
}
