// Package profile records runtime profiles around a command.
//
// CPU, heap, goroutine and mutex profiles are enabled through CLI flags.
// Snapshot profiles are written atomically when the profiler stops.
//
//	cfg := profile.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//
//	p := cfg.NewProfiler()
//	err := p.Start()
//	defer p.Stop()
//
// Users can then enable profiling via flags like --cpu-profile=cpu.prof.
package profile
