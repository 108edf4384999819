package main

import (
	"fmt"

	"github.com/spf13/cobra"

	adapters "github.com/astroimagej/aijpack/internal/domain-adapters/gateways"
)

func newSignAssetsCommand(a *app) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "sign-assets [file...]",
		Short: "Write Sigstore bundles for release assets",
		Long: `Sign each file with cosign sign-blob and write <file>.sigstore.json under
release.signatures_dir/<version>. Without arguments every dmg, msi and tgz in
release.artifacts_dir is signed.`,
		RunE: func(cmd *cobra.Command, files []string) error {
			orch, def, err := a.releaseOrchestrator(cmd.Context())
			if err != nil {
				return err
			}
			if version == "" {
				version = def.App.Version
			}
			if len(files) == 0 {
				files, err = adapters.NewArtifactFinder().FindReleaseAssets(def.Release.ArtifactsDir)
				if err != nil {
					return err
				}
			}

			bundles, err := orch.SignAssets(cmd.Context(), version, files)
			for _, b := range bundles {
				fmt.Fprintln(cmd.OutOrStdout(), b)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&version, "version", "v", "", "release version (default app.version)")
	return cmd
}
