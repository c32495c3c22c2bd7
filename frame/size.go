package frame

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSize indicates a frame size that could not be parsed or is not
// positive.
var ErrInvalidSize = errors.New("invalid frame size")

// Size is a frame width and height in pixels.
//
// Its text form is "WIDTHxHEIGHT", e.g. "512x512". Size implements
// [github.com/spf13/pflag.Value] and [encoding.TextUnmarshaler], so it can
// be set from flags, YAML files and environment variables alike.
type Size struct {
	Width  int
	Height int
}

// ParseSize parses "WIDTHxHEIGHT". A single number "N" is read as "NxN".
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	ws, hs, found := strings.Cut(s, "x")
	if !found {
		hs = ws
	}

	w, err := strconv.Atoi(strings.TrimSpace(ws))
	if err != nil {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	size := Size{Width: w, Height: h}
	if !size.Valid() {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	return size, nil
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// String returns the "WIDTHxHEIGHT" form.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Set implements [github.com/spf13/pflag.Value].
func (s *Size) Set(v string) error {
	parsed, err := ParseSize(v)
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Type implements [github.com/spf13/pflag.Value].
func (s *Size) Type() string {
	return "WxH"
}

// MarshalText implements [encoding.TextMarshaler].
func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *Size) UnmarshalText(b []byte) error {
	return s.Set(string(b))
}
