package profile

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"go.jacobcolvin.com/stillframe/atomicfile"
)

// Profiler controls the lifecycle of one profiling session.
//
// Call [Profiler.Start] before the profiled work and [Profiler.Stop] after
// it.
//
// Create instances with [Config.NewProfiler].
type Profiler struct {
	cpuFile *os.File
	Config
	stopped bool
}

// Start sets the sampling rates and starts CPU profiling if enabled. It does
// nothing when no profile is enabled.
func (p *Profiler) Start() error {
	if len(p.Paths()) == 0 {
		return nil
	}

	runtime.MemProfileRate = p.MemProfileRate

	fraction := p.MutexProfileFraction
	if fraction == 0 && p.MutexProfile != "" {
		fraction = 1
	}

	runtime.SetMutexProfileFraction(fraction)

	if p.CPUProfile == "" {
		return nil
	}

	f, err := os.Create(p.CPUProfile) //nolint:gosec // Profile path from CLI flag is expected.
	if err != nil {
		return fmt.Errorf("create CPU profile: %w", err)
	}

	err = pprof.StartCPUProfile(f)
	if err != nil {
		//nolint:errcheck // The start error is more useful.
		f.Close()

		return fmt.Errorf("start CPU profile: %w", err)
	}

	p.cpuFile = f

	return nil
}

// Stop stops CPU profiling and writes the enabled snapshot profiles. Calls
// after the first are no-ops.
func (p *Profiler) Stop() error {
	if p.stopped {
		return nil
	}

	p.stopped = true

	if p.cpuFile != nil {
		pprof.StopCPUProfile()

		err := p.cpuFile.Close()
		if err != nil {
			return fmt.Errorf("close CPU profile: %w", err)
		}
	}

	snapshots := []struct {
		name string
		path string
	}{
		{"heap", p.HeapProfile},
		{"goroutine", p.GoroutineProfile},
		{"mutex", p.MutexProfile},
	}

	for _, s := range snapshots {
		if s.path == "" {
			continue
		}

		if s.name == "heap" {
			runtime.GC()
		}

		err := writeProfile(s.name, s.path)
		if err != nil {
			return err
		}
	}

	return nil
}

// Paths returns the output paths of all enabled profiles.
func (p *Profiler) Paths() []string {
	var paths []string

	for _, path := range []string{p.CPUProfile, p.HeapProfile, p.GoroutineProfile, p.MutexProfile} {
		if path != "" {
			paths = append(paths, path)
		}
	}

	return paths
}

func writeProfile(name, path string) error {
	prof := pprof.Lookup(name)
	if prof == nil {
		return fmt.Errorf("unknown profile: %s", name)
	}

	var buf bytes.Buffer

	err := prof.WriteTo(&buf, 0)
	if err != nil {
		return fmt.Errorf("encode %s profile: %w", name, err)
	}

	err = atomicfile.WriteFile(path, buf.Bytes(), 0o644)
	if err != nil {
		return fmt.Errorf("write %s profile: %w", name, err)
	}

	return nil
}
