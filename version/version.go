// Package version reports build metadata of the stillframe binary.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"text/tabwriter"
)

var (
	// Version is the application version, set via ldflags.
	Version string
	// Branch is the git branch, set via ldflags.
	Branch string
	// BuildUser is the user who built the binary, set via ldflags.
	BuildUser string
	// BuildDate is when the binary was built, set via ldflags.
	BuildDate string

	// Revision is the git commit revision.
	Revision = getRevision()
	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
	// GoOS is the operating system target.
	GoOS = runtime.GOOS
	// GoArch is the architecture target.
	GoArch = runtime.GOARCH
)

// Short returns the version, or "dev" for builds without ldflags.
func Short() string {
	if Version == "" {
		return "dev"
	}

	return Version
}

// Write prints all build metadata to w as aligned "key: value" lines. Unset
// values are omitted.
func Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	fields := []struct {
		key, value string
	}{
		{"version", Short()},
		{"revision", Revision},
		{"branch", Branch},
		{"build user", BuildUser},
		{"build date", BuildDate},
		{"go", GoVersion},
		{"platform", GoOS + "/" + GoArch},
	}

	for _, f := range fields {
		if f.value == "" {
			continue
		}

		_, err := fmt.Fprintf(tw, "%s:\t%s\n", f.key, f.value)
		if err != nil {
			return fmt.Errorf("write version: %w", err)
		}
	}

	err := tw.Flush()
	if err != nil {
		return fmt.Errorf("write version: %w", err)
	}

	return nil
}

func getRevision() string {
	rev := "unknown"

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return rev
	}

	modified := false

	for _, v := range buildInfo.Settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value
		case "vcs.modified":
			modified = v.Value == "true"
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
