package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newMetadataCommand(a *app) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Generate update metadata for a release",
		Long: `Write versions/<version>.json with the digest, signature digest and URLs of
every artifact listed in release.update_data, then prepend the version to
versions.json. Both documents are validated against their JSON schemas first.
An already listed version leaves versions.json unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch, _, err := a.releaseOrchestrator(cmd.Context())
			if err != nil {
				return err
			}
			result, err := orch.GenerateMetadata(cmd.Context(), version)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d artifacts)\n", result.SpecificPath, result.Artifacts)
			if result.IndexUpdated {
				fmt.Fprintf(out, "%s %s\n", result.IndexPath, color.GreenString("updated"))
			} else {
				fmt.Fprintf(out, "%s %s\n", result.IndexPath, color.YellowString("already lists %s", result.Version))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&version, "version", "v", "", "release version (default app.version)")
	return cmd
}
