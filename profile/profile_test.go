package profile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/stillframe/profile"
)

func TestRegisterFlags(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		check func(*testing.T, *profile.Config)
		args  []string
	}{
		"defaults": {
			check: func(t *testing.T, c *profile.Config) {
				t.Helper()

				assert.Empty(t, c.CPUProfile)
				assert.Empty(t, c.HeapProfile)
				assert.Equal(t, 524288, c.MemProfileRate)
				assert.Zero(t, c.MutexProfileFraction)
			},
		},
		"all set": {
			args: []string{
				"--cpu-profile=cpu.prof",
				"--heap-profile=heap.prof",
				"--goroutine-profile=goroutine.prof",
				"--mutex-profile=mutex.prof",
				"--mem-profile-rate=1024",
				"--mutex-profile-fraction=10",
			},
			check: func(t *testing.T, c *profile.Config) {
				t.Helper()

				assert.Equal(t, "cpu.prof", c.CPUProfile)
				assert.Equal(t, "heap.prof", c.HeapProfile)
				assert.Equal(t, "goroutine.prof", c.GoroutineProfile)
				assert.Equal(t, "mutex.prof", c.MutexProfile)
				assert.Equal(t, 1024, c.MemProfileRate)
				assert.Equal(t, 10, c.MutexProfileFraction)
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := profile.NewConfig()
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			cfg.RegisterFlags(flags)

			require.NoError(t, flags.Parse(tc.args))
			tc.check(t, cfg)
		})
	}
}

func TestRegisterCompletions(t *testing.T) {
	t.Parallel()

	cfg := profile.NewConfig()
	cmd := &cobra.Command{Use: "test"}
	cfg.RegisterFlags(cmd.Flags())

	require.NoError(t, cfg.RegisterCompletions(cmd))

	for _, name := range []string{"mem-profile-rate", "mutex-profile-fraction"} {
		fn, ok := cmd.GetFlagCompletionFunc(name)
		require.True(t, ok, name)

		values, directive := fn(cmd, nil, "")
		assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
		assert.Empty(t, values)
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()

	cfg := profile.NewConfig()
	cfg.HeapProfile = "heap.prof"
	cfg.MutexProfile = "mutex.prof"

	assert.Equal(t, []string{"heap.prof", "mutex.prof"}, cfg.NewProfiler().Paths())
	assert.Empty(t, profile.NewConfig().NewProfiler().Paths())
}

//nolint:paralleltest // Profiling mutates process-wide runtime state.
func TestProfilerWritesSnapshots(t *testing.T) {
	dir := t.TempDir()

	cfg := profile.NewConfig()
	cfg.MemProfileRate = 524288
	cfg.HeapProfile = filepath.Join(dir, "heap.prof")
	cfg.GoroutineProfile = filepath.Join(dir, "goroutine.prof")

	p := cfg.NewProfiler()
	require.NoError(t, p.Start())
	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	for _, path := range p.Paths() {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, fi.Size())
	}
}

//nolint:paralleltest // Profiling mutates process-wide runtime state.
func TestProfilerMissingDir(t *testing.T) {
	cfg := profile.NewConfig()
	cfg.MemProfileRate = 524288
	cfg.CPUProfile = filepath.Join(t.TempDir(), "missing", "cpu.prof")

	p := cfg.NewProfiler()
	require.Error(t, p.Start())
}
