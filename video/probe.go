package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Info describes the first video stream of a file.
type Info struct {
	Width  int
	Height int
	// Frames is the frame count reported by the container, or 0 when the
	// container does not record one.
	Frames int
	// FPS is the nominal frame rate, or 0 when unknown.
	FPS float64
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

func (s *Source) probe(ctx context.Context, path string) (Info, error) {
	//nolint:gosec // The video path comes from the operator's configuration.
	cmd := exec.CommandContext(ctx, s.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate,nb_frames",
		"-of", "json",
		path,
	)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return Info{}, commandError("ffprobe", err, &stderr)
	}

	return parseProbe(out)
}

func parseProbe(data []byte) (Info, error) {
	var out probeOutput

	err := json.Unmarshal(data, &out)
	if err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	if len(out.Streams) == 0 {
		return Info{}, errors.New("no video stream")
	}

	st := out.Streams[0]
	if st.Width <= 0 || st.Height <= 0 {
		return Info{}, fmt.Errorf("video stream has invalid dimensions %dx%d", st.Width, st.Height)
	}

	info := Info{
		Width:  st.Width,
		Height: st.Height,
		FPS:    parseRate(st.AvgFrameRate),
	}

	if info.FPS == 0 {
		info.FPS = parseRate(st.RFrameRate)
	}

	n, err := strconv.Atoi(st.NbFrames)
	if err == nil && n > 0 {
		info.Frames = n
	}

	return info, nil
}

// parseRate parses ffprobe rationals such as "30000/1001". Unparseable or
// degenerate rates yield 0.
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}

	if !found {
		return n
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}

	return n / d
}

func commandError(name string, err error, stderr *bytes.Buffer) error {
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		return fmt.Errorf("running %s: %w", name, err)
	}

	return fmt.Errorf("running %s: %w: %s", name, err, msg)
}
