package dataset

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"go.jacobcolvin.com/stillframe/frame"
	"go.jacobcolvin.com/stillframe/labels"
	"go.jacobcolvin.com/stillframe/video"
)

// DefaultSize is the target frame size used when none is configured.
var DefaultSize = frame.Size{Width: 512, Height: 512}

// FrameSource decodes frames from video files. [*video.Source] implements it.
type FrameSource interface {
	// DecodeFrame decodes the frame at index, returning an error wrapping
	// [video.ErrFrameNotFound] when the stream has no such frame.
	DecodeFrame(ctx context.Context, path string, index int) (*frame.BGR, error)
	// DecodeAll yields every frame in order. A failure is yielded once with
	// a nil frame and ends the sequence.
	DecodeAll(ctx context.Context, path string) iter.Seq2[*frame.BGR, error]
}

// Builder extracts dataset images from videos.
//
// Create instances with [NewBuilder].
type Builder struct {
	src        FrameSource
	logger     *slog.Logger
	size       frame.Size
	maxWorkers int
}

// Option configures a [Builder].
type Option func(*Builder)

// WithLogger sets the logger used for progress and recoverable failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithSize sets the target frame size. Invalid sizes are ignored.
func WithSize(size frame.Size) Option {
	return func(b *Builder) {
		if size.Valid() {
			b.size = size
		}
	}
}

// WithMaxWorkers sets the number of videos processed concurrently by
// [Builder.AllFrames]. Values less than 1 are clamped to 1.
func WithMaxWorkers(n int) Option {
	return func(b *Builder) {
		b.maxWorkers = max(n, 1)
	}
}

// NewBuilder creates a [Builder] reading frames from src. By default it
// targets [DefaultSize], uses one worker per CPU and discards logs.
func NewBuilder(src FrameSource, opts ...Option) *Builder {
	b := &Builder{
		src:        src,
		logger:     slog.New(slog.DiscardHandler),
		size:       DefaultSize,
		maxWorkers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Size returns the target frame size.
func (b *Builder) Size() frame.Size {
	return b.size
}

// FromLabels writes the maximum constriction frame of every labeled video
// into datasetDir, one row at a time.
//
// Missing frames, missing videos and write failures are logged, recorded in
// the report and skipped. The returned error is non-nil only when ctx is
// done, in which case the report covers the rows processed so far.
func (b *Builder) FromLabels(ctx context.Context, rows []labels.Row, videoDir, datasetDir string) (*LabelReport, error) {
	report := &LabelReport{}

	for _, row := range rows {
		err := ctx.Err()
		if err != nil {
			return report, err
		}

		id := row.ID()
		logger := b.logger.With(
			slog.String("video", id),
			slog.Int("frame", row.MaxConstrictionFrame),
		)

		img, err := b.src.DecodeFrame(ctx, video.Path(videoDir, id), row.MaxConstrictionFrame)
		if errors.Is(err, video.ErrFrameNotFound) {
			logger.Error("frame not found")

			report.Missed = append(report.Missed, Miss{VideoID: id, Frame: row.MaxConstrictionFrame})

			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}

			logger.Error("decode frame", slog.Any("error", err))

			report.Failed = append(report.Failed, Failure{VideoID: id, Error: err.Error()})

			continue
		}

		out, resized := frame.Fit(img, b.size)
		if resized {
			logger.Debug("rescaled frame",
				slog.String("from", img.Size().String()),
				slog.String("to", b.size.String()),
			)

			report.Rescaled = append(report.Rescaled, id)
		}

		err = frame.WritePNG(out, filepath.Join(datasetDir, MaxConstrictionName(id)))
		if err != nil {
			logger.Error("write image", slog.Any("error", err))

			report.Failed = append(report.Failed, Failure{VideoID: id, Error: err.Error()})

			continue
		}

		report.Written = append(report.Written, id)
	}

	b.logger.Info(fmt.Sprintf("%d videos needed to be resized to %s", len(report.Rescaled), b.size),
		slog.Any("videos", report.Rescaled),
	)

	return report, nil
}

// AllFrames writes every frame of every ".avi" video in videosDir into
// datasetDir. Videos are processed concurrently, one task per video, by at
// most the configured number of workers.
//
// A video that cannot be opened or fails part way is logged and recorded as
// a failure; frames already written for it are kept. Other videos are not
// affected. AllFrames waits for every task before returning. The returned
// error is non-nil when videosDir cannot be listed or ctx is done.
func (b *Builder) AllFrames(ctx context.Context, videosDir, datasetDir string) (*FramesReport, error) {
	paths, err := ListVideos(videosDir)
	if err != nil {
		return nil, err
	}

	b.logger.Info("extracting all frames",
		slog.Int("videos", len(paths)),
		slog.Int("workers", b.maxWorkers),
		slog.String("size", b.size.String()),
	)

	var (
		report    FramesReport
		mu        sync.Mutex
		written   atomic.Int64
		completed atomic.Int64
	)

	g := new(errgroup.Group)
	g.SetLimit(b.maxWorkers)

	for _, path := range paths {
		id := strings.TrimSuffix(filepath.Base(path), video.Ext)

		g.Go(func() error {
			res, err := b.extractVideo(ctx, path, id, datasetDir, &written)

			done := completed.Add(1)
			logger := b.logger.With(slog.String("video", id))

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				logger.Error("extract frames",
					slog.Int("written", res.Frames),
					slog.Any("error", err),
				)

				report.Failed = append(report.Failed, Failure{
					VideoID: id,
					Frames:  res.Frames,
					Error:   err.Error(),
				})

				return nil
			}

			logger.Info("video done",
				slog.String("frames", humanize.Comma(int64(res.Frames))),
				slog.String("progress", fmt.Sprintf("%d/%d", done, len(paths))),
			)

			report.Videos = append(report.Videos, res)

			return nil
		})
	}

	// Tasks report failures through the report, never through the group.
	//nolint:errcheck // Always nil.
	g.Wait()

	slices.SortFunc(report.Videos, func(a, b VideoResult) int { return strings.Compare(a.VideoID, b.VideoID) })
	slices.SortFunc(report.Failed, func(a, b Failure) int { return strings.Compare(a.VideoID, b.VideoID) })

	report.Frames = written.Load()

	b.logger.Info("all frames extracted",
		slog.String("frames", humanize.Comma(report.Frames)),
		slog.Int("videos", len(report.Videos)),
		slog.Int("failed", len(report.Failed)),
		slog.String("dir", datasetDir),
	)

	return &report, ctx.Err()
}

// extractVideo writes all frames of one video. Panics are returned as
// errors.
func (b *Builder) extractVideo(
	ctx context.Context, path, id, datasetDir string, written *atomic.Int64,
) (res VideoResult, err error) {
	res.VideoID = id

	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	for img, decodeErr := range b.src.DecodeAll(ctx, path) {
		if decodeErr != nil {
			return res, decodeErr
		}

		out, resized := frame.Fit(img, b.size)
		res.Rescaled = res.Rescaled || resized

		writeErr := frame.WritePNG(out, filepath.Join(datasetDir, FrameName(id, res.Frames)))
		if writeErr != nil {
			return res, writeErr
		}

		res.Frames++

		written.Add(1)
	}

	return res, nil
}

// ListVideos returns the paths of all non-directory entries with the video
// extension in dir, sorted by name.
func ListVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	var paths []string

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), video.Ext) {
			continue
		}

		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	return paths, nil
}
