// Package labels reads per-video frame labels from spreadsheets.
//
// Label files are exported from clinical annotation spreadsheets whose
// header names vary in spacing, case and accents. [Normalize] folds headers
// into snake_case ASCII before the required columns are located, so
// "Frame de máxima constrição faríngea" and "frame_max_constricao" both
// resolve to the maximum constriction frame.
package labels

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// ColumnVideoID is the normalized name of the video ID column.
	ColumnVideoID = "video_id"
	// ColumnMaxConstriction is the normalized name of the maximum
	// constriction frame column.
	ColumnMaxConstriction = "frame_max_constricao"
)

var (
	// ErrUnsupportedFormat indicates a label file extension that has no
	// reader.
	ErrUnsupportedFormat = errors.New("unsupported label file format")
	// ErrMissingColumn indicates that a required column is absent.
	ErrMissingColumn = errors.New("missing label column")
	// ErrInvalidValue indicates a cell that is not integer-coercible.
	ErrInvalidValue = errors.New("invalid label value")
)

// aliases maps normalized spreadsheet headers to column names.
var aliases = map[string]string{
	"video":                           ColumnVideoID,
	"frame_de_mxima_constrio_farngea": ColumnMaxConstriction,
}

// Row is one labeled video.
type Row struct {
	VideoID              int
	MaxConstrictionFrame int
}

// ID returns the video ID in the form used in file names.
func (r Row) ID() string {
	return strconv.Itoa(r.VideoID)
}

// Read loads label rows from a ".xlsx" or ".csv" file.
func Read(path string) ([]Row, error) {
	var (
		records [][]string
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path)
	case ".csv":
		records, err = readCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err != nil {
		return nil, err
	}

	return Parse(records)
}

// Parse converts raw records (header row first) into rows. Rows with an empty
// video ID are dropped.
func Parse(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnVideoID)
	}

	idCol, frameCol := -1, -1

	for i, h := range records[0] {
		switch Normalize(h) {
		case ColumnVideoID:
			idCol = i
		case ColumnMaxConstriction:
			frameCol = i
		}
	}

	if idCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnVideoID)
	}

	if frameCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnMaxConstriction)
	}

	rows := make([]Row, 0, len(records)-1)

	for i, rec := range records[1:] {
		line := i + 2

		idCell := cell(rec, idCol)
		if idCell == "" {
			continue
		}

		id, err := toInt(idCell)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %s %q", ErrInvalidValue, line, ColumnVideoID, idCell)
		}

		frameCell := cell(rec, frameCol)

		n, err := toInt(frameCell)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: row %d: %s %q", ErrInvalidValue, line, ColumnMaxConstriction, frameCell)
		}

		rows = append(rows, Row{VideoID: id, MaxConstrictionFrame: n})
	}

	return rows, nil
}

// Normalize folds a spreadsheet header into a column name: spaces become
// underscores, non-ASCII characters are dropped and the result is lower
// case. Known aliases are then applied.
func Normalize(header string) string {
	var sb strings.Builder

	for _, r := range strings.TrimSpace(header) {
		switch {
		case r == ' ':
			sb.WriteByte('_')
		case r < 0x80:
			sb.WriteRune(r)
		}
	}

	name := strings.ToLower(sb.String())
	if alias, ok := aliases[name]; ok {
		return alias
	}

	return name
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}

	return strings.TrimSpace(rec[i])
}

// toInt accepts integers and integral floats such as "42.0", which is how
// spreadsheets commonly export whole numbers.
func toInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not an integer: %s", s)
	}

	return int(f), nil
}
