// Package rundir allocates numbered output directories for dataset runs.
//
// A run directory is named "{index:05d}-{tag}-{width}", e.g.
// "00003-max-constriction-512". The index is one greater than the largest
// leading number found among sibling directories whose name contains the
// tag, so repeated invocations never reuse a directory.
package rundir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrConflict indicates that the computed run directory already exists.
// The existing directory is left untouched.
var ErrConflict = errors.New("run directory already exists")

var leadingDigits = regexp.MustCompile(`^\d+`)

// Dir describes one run directory.
type Dir struct {
	// Root is the output root the directory lives in.
	Root string
	// Tag is the dataset type as it appears in the directory name.
	Tag string
	// Path is Root joined with [Dir.Name].
	Path  string
	Index int
	Width int
}

// Name returns the base name of the directory.
func (d Dir) Name() string {
	return fmt.Sprintf("%05d-%s-%d", d.Index, d.Tag, d.Width)
}

// Tag converts a dataset type such as "max_constriction" into the form used
// in directory names ("max-constriction").
func Tag(datasetType string) string {
	return strings.ReplaceAll(datasetType, "_", "-")
}

// Next returns the next unused run index for tag under root. Any sibling
// directory whose name contains tag counts, as long as its name starts with
// a number. A missing root yields 0.
func Next(root, tag string) (int, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("list %s: %w", root, err)
	}

	next := 0

	for _, e := range entries {
		if !e.IsDir() || !strings.Contains(e.Name(), tag) {
			continue
		}

		m := leadingDigits.FindString(e.Name())
		if m == "" {
			continue
		}

		n, err := strconv.Atoi(m)
		if err != nil {
			// Too many digits for an int; not one of ours.
			continue
		}

		next = max(next, n+1)
	}

	return next, nil
}

// Create allocates and creates the next run directory for datasetType under
// root, creating root itself if needed.
//
// If the computed directory already exists, Create returns the populated
// [Dir] together with an error wrapping [ErrConflict]; callers decide whether
// to continue.
func Create(root, datasetType string, width int) (Dir, error) {
	err := os.MkdirAll(root, 0o755)
	if err != nil {
		return Dir{}, fmt.Errorf("create output root: %w", err)
	}

	tag := Tag(datasetType)

	index, err := Next(root, tag)
	if err != nil {
		return Dir{}, err
	}

	d := Dir{
		Root:  root,
		Tag:   tag,
		Index: index,
		Width: width,
	}
	d.Path = filepath.Join(root, d.Name())

	err = os.Mkdir(d.Path, 0o755)
	if errors.Is(err, os.ErrExist) {
		return d, fmt.Errorf("%w: %s", ErrConflict, d.Path)
	}

	if err != nil {
		return Dir{}, fmt.Errorf("create run directory: %w", err)
	}

	return d, nil
}
