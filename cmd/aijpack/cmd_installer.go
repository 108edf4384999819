package main

import (
	"fmt"

	"github.com/spf13/cobra"

	orchestrators "github.com/astroimagej/aijpack/internal/domain-orchestrators"
)

func newInstallerCommand(a *app) *cobra.Command {
	var imageDir, version string
	cmd := &cobra.Command{
		Use:   "installer <target>",
		Short: "Package an existing app image as dmg, msi or tgz",
		Long: `Package the target's app image: a dmg on macOS, an msi with file associations on
Windows (both through jpackage on a matching host) and AstroImageJ-<version>.tgz
for Linux on any host.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, def, err := a.buildOrchestrator(cmd.Context(), orchestrators.BuildOrchestratorConfig{})
			if err != nil {
				return err
			}
			target, err := singleTarget(def, args[0])
			if err != nil {
				return err
			}
			if version == "" {
				version = def.App.Version
			}
			if imageDir == "" {
				imageDir = orchestrators.PathsFor(def, target).Image
			}

			artifacts, err := orch.Package(cmd.Context(), def, target, imageDir, version)
			if err != nil {
				return err
			}
			for _, art := range artifacts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", art.Type, art.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&imageDir, "image", "", "app image directory (default <output>/images/<SystemID>)")
	cmd.Flags().StringVarP(&version, "version", "v", "", "installer version (default app.version)")
	return cmd
}
