package dataset_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/stillframe/dataset"
	"go.jacobcolvin.com/stillframe/frame"
	"go.jacobcolvin.com/stillframe/labels"
	"go.jacobcolvin.com/stillframe/log"
	"go.jacobcolvin.com/stillframe/rundir"
	"go.jacobcolvin.com/stillframe/stringtest"
	"go.jacobcolvin.com/stillframe/video"
)

var errBroken = errors.New("broken stream")

type fakeVideo struct {
	size   frame.Size
	frames int
	// failAt makes DecodeAll fail after yielding this many frames (if > 0).
	failAt int
	broken bool
	panics bool
}

type fakeSource struct {
	videos map[string]fakeVideo
}

func (f *fakeSource) lookup(path string) (fakeVideo, error) {
	id := strings.TrimSuffix(filepath.Base(path), video.Ext)

	v, ok := f.videos[id]
	if !ok {
		return v, fmt.Errorf("%w: %s", video.ErrFileMissing, path)
	}

	if v.broken {
		return v, fmt.Errorf("%w: %s", video.ErrDecodeOpen, path)
	}

	return v, nil
}

func (v fakeVideo) frame(index int) *frame.BGR {
	img := frame.NewBGR(v.size.Width, v.size.Height)
	for i := range img.Pix {
		img.Pix[i] = byte(index)
	}

	return img
}

func (f *fakeSource) DecodeFrame(_ context.Context, path string, index int) (*frame.BGR, error) {
	v, err := f.lookup(path)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= v.frames {
		return nil, fmt.Errorf("%w: %d", video.ErrFrameNotFound, index)
	}

	return v.frame(index), nil
}

func (f *fakeSource) DecodeAll(_ context.Context, path string) iter.Seq2[*frame.BGR, error] {
	return func(yield func(*frame.BGR, error) bool) {
		v, err := f.lookup(path)
		if err != nil {
			yield(nil, err)

			return
		}

		for i := range v.frames {
			if v.panics && i == 1 {
				panic("decoder exploded")
			}

			if v.failAt > 0 && i == v.failAt {
				yield(nil, errBroken)

				return
			}

			if !yield(v.frame(i), nil) {
				return
			}
		}
	}
}

func touchVideos(t *testing.T, dir string, ids ...string) {
	t.Helper()

	for _, id := range ids {
		require.NoError(t, os.WriteFile(video.Path(dir, id), nil, 0o644))
	}
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func TestParseType(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input       string
		want        dataset.Type
		expectError bool
	}{
		"max constriction": {input: "max_constriction", want: dataset.TypeMaxConstriction},
		"all frames":       {input: "all_frames", want: dataset.TypeAllFrames},
		"hyphenated":       {input: "all-frames", want: dataset.TypeAllFrames},
		"upper case":       {input: "MAX_CONSTRICTION", want: dataset.TypeMaxConstriction},
		"unknown":          {input: "some_frames", expectError: true},
		"empty":            {input: "", expectError: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := dataset.ParseType(tc.input)
			if tc.expectError {
				require.ErrorIs(t, err, dataset.ErrUnknownType)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "7_max_constriction.png", dataset.MaxConstrictionName("7"))
	assert.Equal(t, "12_frame_0.png", dataset.FrameName("12", 0))
	assert.Equal(t, "12_frame_119.png", dataset.FrameName("12", 119))
}

func TestNewBuilderOptions(t *testing.T) {
	t.Parallel()

	b := dataset.NewBuilder(&fakeSource{})
	assert.Equal(t, dataset.DefaultSize, b.Size())

	b = dataset.NewBuilder(&fakeSource{}, dataset.WithSize(frame.Size{Width: 64, Height: 32}))
	assert.Equal(t, frame.Size{Width: 64, Height: 32}, b.Size())

	b = dataset.NewBuilder(&fakeSource{}, dataset.WithSize(frame.Size{}))
	assert.Equal(t, dataset.DefaultSize, b.Size())
}

func TestFromLabels(t *testing.T) {
	t.Parallel()

	size := frame.Size{Width: 8, Height: 8}
	src := &fakeSource{videos: map[string]fakeVideo{
		"7":  {size: size, frames: 120},
		"8":  {size: frame.Size{Width: 16, Height: 12}, frames: 10},
		"9":  {size: size, frames: 50},
		"10": {size: size, frames: 3, broken: true},
	}}

	root := t.TempDir()

	dir, err := rundir.Create(root, string(dataset.TypeMaxConstriction), size.Width)
	require.NoError(t, err)

	var logs bytes.Buffer

	logger := slog.New(log.NewHandler(&logs, log.LevelDebug, log.FormatJSON))
	b := dataset.NewBuilder(src, dataset.WithSize(size), dataset.WithLogger(logger))

	rows := []labels.Row{
		{VideoID: 7, MaxConstrictionFrame: 42},
		{VideoID: 8, MaxConstrictionFrame: 3},
		{VideoID: 9, MaxConstrictionFrame: 200},
		{VideoID: 10, MaxConstrictionFrame: 1},
		{VideoID: 11, MaxConstrictionFrame: 0},
	}

	report, err := b.FromLabels(t.Context(), rows, t.TempDir(), dir.Path)
	require.NoError(t, err)

	assert.Equal(t, []string{"7", "8"}, report.Written)
	assert.Equal(t, []string{"8"}, report.Rescaled)
	assert.Equal(t, []dataset.Miss{{VideoID: "9", Frame: 200}}, report.Missed)

	require.Len(t, report.Failed, 2)
	assert.Equal(t, "10", report.Failed[0].VideoID)
	assert.Equal(t, "11", report.Failed[1].VideoID)

	assert.ElementsMatch(t,
		[]string{"7_max_constriction.png", "8_max_constriction.png"},
		listNames(t, dir.Path),
	)

	f, err := os.Open(filepath.Join(dir.Path, "8_max_constriction.png"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, f.Close()) })

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 8, cfg.Height)

	var notFound []map[string]any

	for _, line := range stringtest.Lines(logs.String()) {
		var entry map[string]any

		require.NoError(t, json.Unmarshal([]byte(line), &entry))

		if entry["msg"] == "frame not found" {
			notFound = append(notFound, entry)
		}
	}

	require.Len(t, notFound, 1)
	assert.Equal(t, "ERROR", notFound[0]["level"])
	assert.Equal(t, "9", notFound[0]["video"])
	assert.InDelta(t, 200, notFound[0]["frame"], 0)
	assert.Contains(t, logs.String(), "1 videos needed to be resized to 8x8")
}

func TestFromLabelsCanceled(t *testing.T) {
	t.Parallel()

	src := &fakeSource{videos: map[string]fakeVideo{
		"1": {size: frame.Size{Width: 4, Height: 4}, frames: 5},
	}}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	out := t.TempDir()

	report, err := dataset.NewBuilder(src).FromLabels(ctx,
		[]labels.Row{{VideoID: 1, MaxConstrictionFrame: 0}}, t.TempDir(), out)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Written)
	assert.Empty(t, listNames(t, out))
}

func TestAllFrames(t *testing.T) {
	t.Parallel()

	size := frame.Size{Width: 4, Height: 4}
	src := &fakeSource{videos: map[string]fakeVideo{
		"1": {size: size, frames: 3},
		"2": {size: frame.Size{Width: 6, Height: 2}, frames: 2},
		"3": {size: size, frames: 5, failAt: 2},
		"4": {size: size, frames: 4, panics: true},
		"5": {size: size, frames: 2, broken: true},
	}}

	videoDir := t.TempDir()
	touchVideos(t, videoDir, "1", "2", "3", "4", "5")
	require.NoError(t, os.WriteFile(filepath.Join(videoDir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(videoDir, "6.avi"), 0o755))

	out := t.TempDir()

	b := dataset.NewBuilder(src, dataset.WithSize(size), dataset.WithMaxWorkers(3))

	report, err := b.AllFrames(t.Context(), videoDir, out)
	require.NoError(t, err)

	assert.Equal(t, []dataset.VideoResult{
		{VideoID: "1", Frames: 3},
		{VideoID: "2", Frames: 2, Rescaled: true},
	}, report.Videos)

	require.Len(t, report.Failed, 3)
	assert.Equal(t, "3", report.Failed[0].VideoID)
	assert.Equal(t, 2, report.Failed[0].Frames)
	assert.Contains(t, report.Failed[0].Error, errBroken.Error())
	assert.Equal(t, "4", report.Failed[1].VideoID)
	assert.Equal(t, 1, report.Failed[1].Frames)
	assert.Contains(t, report.Failed[1].Error, "panic")
	assert.Equal(t, "5", report.Failed[2].VideoID)
	assert.Equal(t, 0, report.Failed[2].Frames)

	assert.Equal(t, int64(3+2+2+1), report.Frames)

	assert.ElementsMatch(t, []string{
		"1_frame_0.png", "1_frame_1.png", "1_frame_2.png",
		"2_frame_0.png", "2_frame_1.png",
		"3_frame_0.png", "3_frame_1.png",
		"4_frame_0.png",
	}, listNames(t, out))
}

func TestAllFramesSingleWorker(t *testing.T) {
	t.Parallel()

	size := frame.Size{Width: 2, Height: 2}
	videos := map[string]fakeVideo{}
	ids := make([]string, 0, 10)

	for i := range 10 {
		id := strconv.Itoa(i)
		videos[id] = fakeVideo{size: size, frames: i + 1}
		ids = append(ids, id)
	}

	videoDir := t.TempDir()
	touchVideos(t, videoDir, ids...)

	out := t.TempDir()

	report, err := dataset.NewBuilder(&fakeSource{videos: videos},
		dataset.WithSize(size), dataset.WithMaxWorkers(0),
	).AllFrames(t.Context(), videoDir, out)
	require.NoError(t, err)

	assert.Len(t, report.Videos, 10)
	assert.Empty(t, report.Failed)
	assert.Equal(t, int64(55), report.Frames)
	assert.Len(t, listNames(t, out), 55)
}

func TestAllFramesMissingDir(t *testing.T) {
	t.Parallel()

	_, err := dataset.NewBuilder(&fakeSource{}).
		AllFrames(t.Context(), filepath.Join(t.TempDir(), "missing"), t.TempDir())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestListVideos(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touchVideos(t, dir, "b", "a", "c")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.AVI"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "e.mp4"), nil, 0o644))

	got, err := dataset.ListVideos(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.avi"),
		filepath.Join(dir, "b.avi"),
		filepath.Join(dir, "c.avi"),
	}, got)
}

func TestManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	m := dataset.Manifest{
		Started:   started,
		Finished:  started.Add(time.Minute),
		Type:      dataset.TypeAllFrames,
		FrameSize: "512x512",
		VideoDir:  "data/videos",
	}
	m.AddFramesReport(&dataset.FramesReport{
		Videos: []dataset.VideoResult{{VideoID: "1", Frames: 3, Rescaled: true}, {VideoID: "2", Frames: 1}},
		Failed: []dataset.Failure{{VideoID: "3", Error: "boom", Frames: 2}},
		Frames: 6,
	})

	require.NoError(t, dataset.WriteManifest(dir, m))

	got, err := dataset.ReadManifest(dir)
	require.NoError(t, err)

	assert.Equal(t, int64(6), got.Images)
	assert.Equal(t, []string{"1"}, got.Rescaled)
	assert.Equal(t, m.Videos, got.Videos)
	assert.Equal(t, m.Failed, got.Failed)
	assert.Equal(t, dataset.TypeAllFrames, got.Type)
	assert.True(t, started.Equal(got.Started))
}
