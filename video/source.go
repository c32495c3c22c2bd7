package video

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"os/exec"
	"path/filepath"

	"go.jacobcolvin.com/stillframe/frame"
)

// Ext is the container extension videos are stored with.
const Ext = ".avi"

var (
	// ErrFileMissing indicates that no video file exists for the given ID.
	ErrFileMissing = errors.New("video file missing")
	// ErrDecodeOpen indicates that a video file exists but no decoding
	// session could be opened for it.
	ErrDecodeOpen = errors.New("cannot open video")
	// ErrFrameNotFound indicates that the stream has no frame at the
	// requested index.
	ErrFrameNotFound = errors.New("frame not found")
	// ErrDecode indicates that the decoder failed part way through a stream.
	ErrDecode = errors.New("decode failed")
	// ErrClosed indicates use of a [Handle] after [Handle.Close].
	ErrClosed = errors.New("video handle closed")
)

// Path returns the file path of the video with the given ID.
func Path(videoDir, videoID string) string {
	return filepath.Join(videoDir, videoID+Ext)
}

// Source opens videos using the ffmpeg and ffprobe executables.
//
// Create instances with [NewSource].
type Source struct {
	ffmpeg  string
	ffprobe string
}

// Option configures a [Source].
type Option func(*Source)

// WithFFmpeg sets the ffmpeg executable name or path.
func WithFFmpeg(path string) Option {
	return func(s *Source) {
		if path != "" {
			s.ffmpeg = path
		}
	}
}

// WithFFprobe sets the ffprobe executable name or path.
func WithFFprobe(path string) Option {
	return func(s *Source) {
		if path != "" {
			s.ffprobe = path
		}
	}
}

// NewSource creates a [Source]. By default ffmpeg and ffprobe are looked up
// in PATH.
func NewSource(opts ...Option) *Source {
	s := &Source{
		ffmpeg:  "ffmpeg",
		ffprobe: "ffprobe",
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open starts a decoding session for the video at path. It returns an error
// wrapping [ErrFileMissing] if the file does not exist, or [ErrDecodeOpen] if
// the decoder is unavailable or cannot read a video stream from it.
func (s *Source) Open(ctx context.Context, path string) (*Handle, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileMissing, path)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeOpen, err)
	}

	_, err = exec.LookPath(s.ffmpeg)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found: %w", ErrDecodeOpen, err)
	}

	info, err := s.probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeOpen, path, err)
	}

	return &Handle{
		path:    path,
		ffmpeg:  s.ffmpeg,
		info:    info,
		running: make(map[int]context.CancelFunc),
	}, nil
}

// DecodeFrame opens the video at path, decodes the frame at index and
// releases the session before returning.
func (s *Source) DecodeFrame(ctx context.Context, path string, index int) (*frame.BGR, error) {
	h, err := s.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	defer h.Close()

	return h.Frame(ctx, index)
}

// DecodeAll opens the video at path and lazily yields every frame in order.
// The session is released when the sequence ends or the caller stops
// iterating. Open failures are yielded as the first and only element.
func (s *Source) DecodeAll(ctx context.Context, path string) iter.Seq2[*frame.BGR, error] {
	return func(yield func(*frame.BGR, error) bool) {
		h, err := s.Open(ctx, path)
		if err != nil {
			yield(nil, err)

			return
		}

		defer h.Close()

		for img, err := range h.Frames(ctx) {
			if !yield(img, err) {
				return
			}
		}
	}
}

// Frame resolves videoID under videoDir and decodes the frame at index.
func (s *Source) Frame(ctx context.Context, videoDir, videoID string, index int) (*frame.BGR, error) {
	return s.DecodeFrame(ctx, Path(videoDir, videoID), index)
}

// All resolves videoID under videoDir and yields all of its frames.
func (s *Source) All(ctx context.Context, videoDir, videoID string) iter.Seq2[*frame.BGR, error] {
	return s.DecodeAll(ctx, Path(videoDir, videoID))
}
