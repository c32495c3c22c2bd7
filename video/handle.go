package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os/exec"
	"strconv"
	"sync"

	"go.jacobcolvin.com/stillframe/frame"
)

// Handle is an open decoding session for one video file.
//
// Each decode runs its own ffmpeg process; [Handle.Close] kills any that are
// still running. A Handle is safe for concurrent use, but the workloads in
// this module use one Handle per goroutine.
//
// Create instances with [Source.Open].
type Handle struct {
	running map[int]context.CancelFunc
	path    string
	ffmpeg  string
	info    Info
	mu      sync.Mutex
	nextID  int
	closed  bool
}

// Info returns the probed stream information.
func (h *Handle) Info() Info {
	return h.info
}

// Path returns the file path of the video.
func (h *Handle) Path() string {
	return h.path
}

// Close stops all running decoders and releases the session. Idempotent.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	h.closed = true
	for id, cancel := range h.running {
		cancel()
		delete(h.running, id)
	}

	return nil
}

// begin registers a new decoder process lifetime. The returned function must
// be called once the process has exited.
func (h *Handle) begin(ctx context.Context) (context.Context, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, nil, ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	id := h.nextID
	h.nextID++
	h.running[id] = cancel

	return ctx, func() {
		h.mu.Lock()
		delete(h.running, id)
		h.mu.Unlock()
		cancel()
	}, nil
}

// Frame decodes the frame at the absolute, 0-based index. It returns an
// error wrapping [ErrFrameNotFound] when the index is negative, past the end
// of the stream, or the decoder yields nothing at that position.
func (h *Handle) Frame(ctx context.Context, index int) (*frame.BGR, error) {
	if index < 0 || (h.info.Frames > 0 && index >= h.info.Frames) {
		return nil, fmt.Errorf("%w: index %d in %s", ErrFrameNotFound, index, h.path)
	}

	ctx, done, err := h.begin(ctx)
	if err != nil {
		return nil, err
	}

	defer done()

	args := []string{
		"-v", "error",
		"-nostdin",
		"-i", h.path,
		"-map", "0:v:0",
		// Filter commas must be escaped inside a filter graph.
		"-vf", "select=eq(n\\," + strconv.Itoa(index) + ")",
		"-vsync", "0",
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"pipe:1",
	}

	//nolint:gosec // Arguments are built from a probed path and an integer.
	cmd := exec.CommandContext(ctx, h.ffmpeg, args...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, h.path, commandError("ffmpeg", err, &stderr))
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: index %d in %s", ErrFrameNotFound, index, h.path)
	}

	img, err := frame.WrapBGR(out, h.info.Width, h.info.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, h.path, err)
	}

	return img, nil
}

type decodeConfig struct {
	scale frame.Size
}

// DecodeOption configures [Handle.Frames].
type DecodeOption func(*decodeConfig)

// Scaled makes the decoder fit every frame into size, keeping the aspect
// ratio and padding with black.
func Scaled(size frame.Size) DecodeOption {
	return func(c *decodeConfig) {
		c.scale = size
	}
}

// Frames lazily decodes every frame in order, starting at index 0, until
// the end of the stream. Each call starts a new decoder. A decoder failure is
// yielded once with a nil frame and ends the sequence. Stopping the iteration
// early kills the decoder.
func (h *Handle) Frames(ctx context.Context, opts ...DecodeOption) iter.Seq2[*frame.BGR, error] {
	cfg := decodeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(yield func(*frame.BGR, error) bool) {
		ctx, done, err := h.begin(ctx)
		if err != nil {
			yield(nil, err)

			return
		}

		defer done()

		width, height := h.info.Width, h.info.Height

		args := []string{
			"-v", "error",
			"-nostdin",
			"-i", h.path,
			"-map", "0:v:0",
		}

		if cfg.scale.Valid() {
			width, height = cfg.scale.Width, cfg.scale.Height
			args = append(args, "-vf", fmt.Sprintf(
				"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
				width, height, width, height,
			))
		}

		args = append(args,
			"-vsync", "0",
			"-f", "rawvideo",
			"-pix_fmt", "bgr24",
			"pipe:1",
		)

		//nolint:gosec // Arguments are built from a probed path and integers.
		cmd := exec.CommandContext(ctx, h.ffmpeg, args...)

		var stderr bytes.Buffer

		cmd.Stderr = &stderr

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(nil, fmt.Errorf("%w: creating stdout pipe: %w", ErrDecode, err))

			return
		}

		err = cmd.Start()
		if err != nil {
			yield(nil, fmt.Errorf("%w: starting ffmpeg: %w", ErrDecode, err))

			return
		}

		waited := false

		defer func() {
			if !waited {
				done()
				//nolint:errcheck // Error is expected after cancellation.
				cmd.Wait()
			}
		}()

		frameSize := width * height * 3

		for {
			buf := make([]byte, frameSize)

			_, err := io.ReadFull(stdout, buf)
			if errors.Is(err, io.EOF) {
				break
			}

			if err != nil {
				yield(nil, fmt.Errorf("%w: %s: reading frame: %w", ErrDecode, h.path, err))

				return
			}

			img, err := frame.WrapBGR(buf, width, height)
			if err != nil {
				yield(nil, fmt.Errorf("%w: %s: %w", ErrDecode, h.path, err))

				return
			}

			if !yield(img, nil) {
				return
			}
		}

		waited = true

		err = cmd.Wait()
		if err != nil {
			yield(nil, fmt.Errorf("%w: %s: %w", ErrDecode, h.path, commandError("ffmpeg", err, &stderr)))
		}
	}
}
