package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	orchestrators "github.com/astroimagej/aijpack/internal/domain-orchestrators"
)

type buildOptions struct {
	version       string
	skipInstaller bool
	skipSigning   bool
}

func newBuildCommand(a *app) *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build [target...]",
		Short: "Run the full pipeline for one or more targets",
		Long: `Run runtime → app image → sign → installer → notarize for each target.

Targets are the ids from the build definition (mac, armMac, linux, windows by
default); all of them are built when none are named. A failing target does not
stop the others, but the command exits non-zero if any target failed.`,
		Example: `  aijpack build
  aijpack build linux windows --version 6.0.0.00
  CROSSBUILD_APP_IMAGE=true aijpack build armMac --skip-installer`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, a, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.version, "version", "v", "", "version to build (default app.version)")
	cmd.Flags().BoolVar(&opts.skipInstaller, "skip-installer", false, "stop after the app image")
	cmd.Flags().BoolVar(&opts.skipSigning, "skip-signing", false, "never sign or notarize, even when configured")
	return cmd
}

func runBuild(cmd *cobra.Command, a *app, opts *buildOptions, ids []string) error {
	orch, _, err := a.buildOrchestrator(cmd.Context(), orchestrators.BuildOrchestratorConfig{
		SkipInstaller: opts.skipInstaller,
		SkipSigning:   opts.skipSigning,
	})
	if err != nil {
		return err
	}

	summary, err := orch.Build(cmd.Context(), opts.version, ids)
	if summary != nil {
		printBuildSummary(cmd.OutOrStdout(), summary)
	}
	return err
}

func printBuildSummary(w io.Writer, summary *orchestrators.BuildSummary) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	fmt.Fprintf(w, "\nAstroImageJ %s\n\n", summary.Version)
	built := 0
	for _, r := range summary.Results {
		switch {
		case r.Skipped:
			yellow.Fprint(w, "⚠ ")
		case r.Error != nil:
			red.Fprint(w, "✗ ")
		default:
			green.Fprint(w, "✓ ")
			built++
		}
		fmt.Fprintln(w, r.GetBuildSummary())
	}

	line := fmt.Sprintf("\n%d/%d targets built in %s\n", built, len(summary.Results), summary.Duration.Round(time.Millisecond))
	if len(summary.Failed()) > 0 {
		red.Fprint(w, line)
		return
	}
	green.Fprint(w, line)
}
