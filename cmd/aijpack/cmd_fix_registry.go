package main

import (
	"fmt"

	"github.com/spf13/cobra"

	adapters "github.com/astroimagej/aijpack/internal/domain-adapters/gateways"
)

func newFixRegistryCommand(a *app) *cobra.Command {
	var appID, version string
	cmd := &cobra.Command{
		Use:   "fix-registry",
		Short: "Rename the MSI's version registry key to the release version",
		Long: `An MSI install leaves a single version subkey under
HKLM\Software\Unknown\<app id>. This renames it to the release version so the
updater can find it. Windows only; a missing key or an existing version key is
reported and left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := a.definition(cmd.Context())
			if err != nil {
				return err
			}
			if appID == "" {
				appID = def.App.Name
			}
			if version == "" {
				version = def.App.Version
			}

			outcome, err := adapters.NewRegistryFixer(a.runner, a.logger).WithHostOS(a.hostOS).Fix(cmd.Context(), appID, version)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\\%s: %s\n", adapters.KeyPath(appID), version, outcome)
			return nil
		},
	}
	cmd.Flags().StringVar(&appID, "app-id", "", "registry app id (default app.name)")
	cmd.Flags().StringVarP(&version, "version", "v", "", "release version (default app.version)")
	return cmd
}
