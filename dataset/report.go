package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"go.jacobcolvin.com/stillframe/atomicfile"
)

// ManifestName is the file name of the run manifest.
const ManifestName = "manifest.yaml"

// Miss is a labeled frame that the video does not contain.
type Miss struct {
	VideoID string `yaml:"video"`
	Frame   int    `yaml:"frame"`
}

// Failure is a video (or label row) that could not be processed.
type Failure struct {
	VideoID string `yaml:"video"`
	Error   string `yaml:"error"`
	// Frames is the number of frames written before the failure.
	Frames int `yaml:"frames,omitempty"`
}

// LabelReport summarizes a [Builder.FromLabels] run.
type LabelReport struct {
	// Written lists the video IDs whose frame was written.
	Written []string
	// Rescaled lists the video IDs whose frame had to be resized.
	Rescaled []string
	Missed   []Miss
	Failed   []Failure
}

// VideoResult is the outcome of one video in a [Builder.AllFrames] run.
type VideoResult struct {
	VideoID  string `yaml:"video"`
	Frames   int    `yaml:"frames"`
	Rescaled bool   `yaml:"rescaled,omitempty"`
}

// FramesReport summarizes a [Builder.AllFrames] run.
type FramesReport struct {
	// Videos lists the fully extracted videos, sorted by ID.
	Videos []VideoResult
	// Failed lists the videos that failed, sorted by ID.
	Failed []Failure
	// Frames is the total number of images written, including frames of
	// videos that later failed.
	Frames int64
}

// Manifest describes a finished run. It is stored as [ManifestName] in the
// run directory.
type Manifest struct {
	Started   time.Time     `yaml:"started"`
	Finished  time.Time     `yaml:"finished"`
	Type      Type          `yaml:"type"`
	FrameSize string        `yaml:"frame_size"`
	VideoDir  string        `yaml:"video_dir"`
	Labels    string        `yaml:"labels,omitempty"`
	Images    int64         `yaml:"images"`
	Rescaled  []string      `yaml:"rescaled,omitempty"`
	Missed    []Miss        `yaml:"missed,omitempty"`
	Failed    []Failure     `yaml:"failed,omitempty"`
	Videos    []VideoResult `yaml:"videos,omitempty"`
}

// AddLabelReport copies the results of a labeled run into m.
func (m *Manifest) AddLabelReport(r *LabelReport) {
	m.Images = int64(len(r.Written))
	m.Rescaled = r.Rescaled
	m.Missed = r.Missed
	m.Failed = r.Failed
}

// AddFramesReport copies the results of an all-frames run into m.
func (m *Manifest) AddFramesReport(r *FramesReport) {
	m.Images = r.Frames
	m.Videos = r.Videos
	m.Failed = r.Failed

	for _, v := range r.Videos {
		if v.Rescaled {
			m.Rescaled = append(m.Rescaled, v.VideoID)
		}
	}
}

// WriteManifest writes m as YAML into dir, replacing any previous manifest.
func WriteManifest(dir string, m Manifest) error {
	out, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	err = atomicfile.WriteFile(filepath.Join(dir, ManifestName), out, 0o644)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// ReadManifest loads the manifest stored in dir.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest

	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}

	err = yaml.Unmarshal(data, &m)
	if err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}

	return m, nil
}
