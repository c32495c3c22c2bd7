package main

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.jacobcolvin.com/stillframe/frame"
	"go.jacobcolvin.com/stillframe/log"
	"go.jacobcolvin.com/stillframe/video"
	"go.jacobcolvin.com/stillframe/viewer"
)

type viewOptions struct {
	videoDir    string
	ffmpeg      string
	ffprobe     string
	fps         float64
	start       int
	end         int
	paused      bool
	noInfo      bool
	noAutoClose bool
}

func newViewCmd(logCfg *log.Config) *cobra.Command {
	var opts viewOptions

	cmd := &cobra.Command{
		Use:   "view <video-id>",
		Short: "Play a video in the terminal",
		Long: `view decodes {video-dir}/{video-id}.avi and plays it in the terminal.

Keys: q/esc quit, space pause, left/right step while paused, i toggle info,
a toggle autoclose.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub := log.NewPublisher()
			defer pub.Close() //nolint:errcheck // Close always returns nil.

			logger, err := logCfg.NewLogger(pub)
			if err != nil {
				return err
			}

			return runView(cmd.Context(), logger, pub, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.videoDir, "video-dir", "data/videos", "directory containing the .avi videos")
	flags.IntVar(&opts.start, "start-frame", 0, "first frame to play")
	flags.IntVar(&opts.end, "end-frame", 0, "stop before this frame (0 = last frame)")
	flags.Float64Var(&opts.fps, "fps", 0, "playback rate (0 = video rate)")
	flags.BoolVar(&opts.paused, "paused", false, "start paused")
	flags.BoolVar(&opts.noInfo, "no-info", false, "hide the info overlay")
	flags.BoolVar(&opts.noAutoClose, "no-autoclose", false, "pause on the last frame instead of quitting")
	flags.StringVar(&opts.ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg executable")
	flags.StringVar(&opts.ffprobe, "ffprobe", "ffprobe", "ffprobe executable")

	return cmd
}

func runView(ctx context.Context, logger *slog.Logger, pub *log.Publisher, opts viewOptions, id string) error {
	sub := pub.Subscribe()
	defer sub.Close()

	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		cols, rows = 80, 24
	}

	src := video.NewSource(video.WithFFmpeg(opts.ffmpeg), video.WithFFprobe(opts.ffprobe))

	h, err := src.Open(ctx, video.Path(opts.videoDir, id))
	if err != nil {
		return err
	}

	defer h.Close() //nolint:errcheck // Decoding is finished by then.

	info := h.Info()
	logger.Info("opened video",
		slog.String("video", id),
		slog.String("size", fmt.Sprintf("%dx%d", info.Width, info.Height)),
		slog.Float64("fps", info.FPS),
	)

	size := frame.Size{Width: max(cols, 1), Height: max(rows, 1) * 2}

	var frames []image.Image

	for img, err := range h.Frames(ctx, video.Scaled(size)) {
		if err != nil {
			return fmt.Errorf("decode %s: %w", id, err)
		}

		frames = append(frames, img.RGBA())

		if opts.end > 0 && len(frames) >= opts.end {
			break
		}
	}

	logger.Info("decoded frames", slog.String("frames", humanize.Comma(int64(len(frames)))))

	fps := opts.fps
	if fps <= 0 {
		fps = info.FPS
	}

	m, err := viewer.New(frames, viewer.Options{
		Logs:      sub,
		FPS:       fps,
		Start:     opts.start,
		End:       opts.end,
		Width:     cols,
		Height:    rows,
		Paused:    opts.paused,
		ShowInfo:  !opts.noInfo,
		AutoClose: !opts.noAutoClose,
	})
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("run viewer: %w", err)
	}

	return nil
}
