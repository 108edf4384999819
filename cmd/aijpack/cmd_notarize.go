package main

import (
	"fmt"

	"github.com/spf13/cobra"

	orchestrators "github.com/astroimagej/aijpack/internal/domain-orchestrators"
)

func newNotarizeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notarize <target>",
		Short: "Notarize and staple the target's DMG",
		Long: `Submit the single .dmg in the target's installer directory with
xcrun notarytool (keychain profile mac.notary_profile), wait for the result
and staple the ticket.`,
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
			dmg, err := orch.NotarizeInstaller(cmd.Context(), def, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notarized %s\n", dmg)
			return nil
		},
	}
}
