package main

import (
	"fmt"

	"github.com/spf13/cobra"

	orchestrators "github.com/astroimagej/aijpack/internal/domain-orchestrators"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
)

func newRuntimeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runtime [target...]",
		Short: "Download, verify and jlink the Java runtime for targets",
		Long: `Resolve the runtime for each target from Adoptium (reusing the metadata cache
while it is fresh), download the archive and its signature, verify the SHA-256
checksum and the PGP signature, and link a trimmed runtime image with jlink.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, def, err := a.buildOrchestrator(ctx, orchestrators.BuildOrchestratorConfig{})
			if err != nil {
				return err
			}
			targets, err := selectTargets(def, args)
			if err != nil {
				return err
			}

			runtimes := orch.ResolveRuntimes(ctx, def, targets)
			failed := 0
			for _, t := range targets {
				dir, err := orch.PrepareRuntime(ctx, def, t, runtimes[t.ID])
				if err != nil {
					a.logger.Error("Runtime failed", interfaces.F("target", t.ID), interfaces.Err(err))
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", t.ID, dir)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d runtimes failed", failed, len(targets))
			}
			return nil
		},
	}
}
