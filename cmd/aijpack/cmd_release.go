package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	orchestrators "github.com/astroimagej/aijpack/internal/domain-orchestrators"
	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/services"
)

func newReleaseCommand(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Prompt for release inputs and dispatch the release workflow",
		Long: `Fetch the published versions, ask for every input the release workflow
declares (the version defaults to the latest published one) and dispatch the
workflow once the inputs validate. Needs GITHUB_TOKEN unless --dry-run is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !dryRun && a.getenv(envGitHubToken) == "" {
				return fmt.Errorf("%w: %s is not set", entities.ErrValidation, envGitHubToken)
			}
			orch, def, err := a.releaseOrchestrator(cmd.Context())
			if err != nil {
				return err
			}

			result, err := orch.Dispatch(cmd.Context(), orchestrators.DispatchOptions{DryRun: dryRun})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case result.Cancelled:
				fmt.Fprintln(out, color.YellowString("Release cancelled"))
			case result.Dispatched:
				fmt.Fprintf(out, "%s %s on %s (%s)\n",
					color.GreenString("Dispatched release"),
					result.Dispatch.Inputs[services.VersionInputName],
					def.Release.Repository,
					def.Release.Ref)
			default:
				fmt.Fprintf(out, "Dry run: would dispatch %s on %s with %v\n",
					result.Dispatch.WorkflowFile, def.Release.Repository, result.Dispatch.Inputs)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the inputs without dispatching")
	return cmd
}
