// Package log builds [log/slog] handlers for stillframe commands.
//
// Three formats are supported: [FormatJSON] and [FormatLogfmt] use the
// standard library handlers, [FormatText] renders colored, human-readable
// lines with [charm.land/log/v2]. Levels are [LevelError], [LevelWarn],
// [LevelInfo] and [LevelDebug].
//
// Commands create a [Config], register its flags, and build one logger per
// run that is handed to every component:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//
//	logger, err := cfg.NewLogger(os.Stderr)
//	builder := dataset.NewBuilder(src, dataset.WithLogger(logger))
//
// Interactive commands that own the terminal route log output into a
// [Publisher] instead and display its lines themselves:
//
//	pub := log.NewPublisher()
//	logger, err := cfg.NewLogger(pub)
//
//	sub := pub.Subscribe()
//	for line := range sub.C() {
//	    // Show line in the UI.
//	}
package log
