// Package main provides the CLI entry point for stillframe, a tool that
// extracts still PNG images from clinical videos to build image datasets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"go.jacobcolvin.com/stillframe/config"
	"go.jacobcolvin.com/stillframe/log"
	"go.jacobcolvin.com/stillframe/profile"
	"go.jacobcolvin.com/stillframe/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd, stopProfiler := newRootCmd()

	err := rootCmd.ExecuteContext(ctx)

	stop()

	stopErr := stopProfiler()
	if stopErr != nil {
		fmt.Fprintf(os.Stderr, "stop profiling: %v\n", stopErr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. The returned function stops the
// profiler started by the executed command, if any.
func newRootCmd() (*cobra.Command, func() error) {
	logCfg := log.NewConfig()
	profCfg := profile.NewConfig()

	var profiler *profile.Profiler

	rootCmd := &cobra.Command{
		Use:   "stillframe",
		Short: "Extract still images from clinical videos",
		Long: `stillframe builds PNG image datasets from .avi videos. It extracts either the
labeled frame of maximum constriction of every video, or every frame of every
video, into a new numbered run directory. It also plays single videos in the
terminal for inspection.`,
		Version:       version.Short(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			profiler = profCfg.NewProfiler()

			return profiler.Start()
		},
	}

	logCfg.RegisterFlags(rootCmd.PersistentFlags())
	profCfg.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newBuildCmd(logCfg),
		newViewCmd(logCfg),
		newSchemaCmd(),
		newVersionCmd(),
	)

	registerCompletions(rootCmd, logCfg.RegisterCompletions, profCfg.RegisterCompletions)

	stopProfiler := func() error {
		if profiler == nil {
			return nil
		}

		return profiler.Stop()
	}

	return rootCmd, stopProfiler
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return version.Write(cmd.OutOrStdout())
		},
	}
}

func registerCompletions(cmd *cobra.Command, fns ...func(*cobra.Command) error) {
	for _, fn := range fns {
		err := fn(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
		}
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the build config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := json.MarshalIndent(config.Schema(), "", "  ")
			if err != nil {
				return fmt.Errorf("encode schema: %w", err)
			}

			out = append(out, '\n')

			_, err = cmd.OutOrStdout().Write(out)
			if err != nil {
				return fmt.Errorf("write schema: %w", err)
			}

			return nil
		},
	}
}
