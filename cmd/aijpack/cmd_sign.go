package main

import (
	"fmt"

	"github.com/spf13/cobra"

	orchestrators "github.com/astroimagej/aijpack/internal/domain-orchestrators"
)

func newSignCommand(a *app) *cobra.Command {
	var imageDir, identity string
	cmd := &cobra.Command{
		Use:   "sign <target>",
		Short: "Code sign a macOS app image inside out",
		Long: `Sign every executable, dylib and jar in the bundle, then the embedded runtime,
frameworks, the main launcher and finally the bundle itself. Needs a macOS host and
a signing identity ($DeveloperId, mac.signing_identity or --identity).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, def, err := a.buildOrchestrator(cmd.Context(), orchestrators.BuildOrchestratorConfig{SigningIdentity: identity})
			if err != nil {
				return err
			}
			target, err := singleTarget(def, args[0])
			if err != nil {
				return err
			}
			if imageDir == "" {
				imageDir = orchestrators.PathsFor(def, target).Image
			}
			n, err := orch.SignImage(cmd.Context(), def, target, imageDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed %s (%d codesign calls)\n", imageDir, n)
			return nil
		},
	}
	cmd.Flags().StringVar(&imageDir, "image", "", "app image directory (default <output>/images/<SystemID>)")
	cmd.Flags().StringVar(&identity, "identity", "", "codesign identity (default $DeveloperId)")
	return cmd
}
