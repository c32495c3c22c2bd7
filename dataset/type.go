package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Type selects the extraction mode.
type Type string

const (
	// TypeMaxConstriction extracts the labeled maximum constriction frame of
	// each video.
	TypeMaxConstriction Type = "max_constriction"
	// TypeAllFrames extracts every frame of every video.
	TypeAllFrames Type = "all_frames"
)

// ErrUnknownType indicates an unrecognized dataset type string.
var ErrUnknownType = errors.New("unknown dataset type")

// ParseType parses a dataset type. Hyphens are accepted in place of
// underscores.
func ParseType(s string) (Type, error) {
	t := Type(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))

	switch t {
	case TypeMaxConstriction, TypeAllFrames:
		return t, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// GetAllTypeStrings returns all dataset types as strings.
func GetAllTypeStrings() []string {
	return []string{string(TypeMaxConstriction), string(TypeAllFrames)}
}

// MaxConstrictionName returns the file name of a video's labeled frame.
func MaxConstrictionName(videoID string) string {
	return videoID + "_max_constriction.png"
}

// FrameName returns the file name of the n-th (0-based) frame of a video.
func FrameName(videoID string, n int) string {
	return fmt.Sprintf("%s_frame_%d.png", videoID, n)
}
