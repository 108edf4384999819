package main

import (
	"fmt"

	"github.com/spf13/cobra"

	adapters "github.com/astroimagej/aijpack/internal/domain-adapters/gateways"
	orchestrators "github.com/astroimagej/aijpack/internal/domain-orchestrators"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
)

func newVerifyCommand(a *app) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "verify [target...]",
		Short: "Verify checksums and signatures of downloaded runtimes",
		Long: `Check the SHA-256 digest and PGP signature of each target's runtime archive
(and jmods archive) against the pinned key. With --offline nothing is downloaded
and the files already in the download directory are checked.`,
		RunE: func(cmd *cobra.Command, ids []string) error {
			ctx := cmd.Context()
			def, err := a.definition(ctx)
			if err != nil {
				return err
			}
			targets, err := selectTargets(def, ids)
			if err != nil {
				return err
			}

			descriptors := a.resolver(def).ResolveRuntimes(ctx, def.Runtime.JavaVersion, def.Targets)
			verifier := a.verifier(def)
			downloader := adapters.NewDownloader(a.logger)

			failed := 0
			for _, t := range targets {
				dir := orchestrators.PathsFor(def, t).Download
				desc := descriptors[t.ID]
				if desc == nil {
					failed++
					a.logger.Error("No runtime metadata", interfaces.F("target", t.ID))
					continue
				}
				if !offline {
					if err := downloader.DownloadRuntime(ctx, desc, dir); err != nil {
						failed++
						a.logger.Error("Download failed", interfaces.F("target", t.ID), interfaces.Err(err))
						continue
					}
				}
				result, err := verifier.VerifyRuntime(ctx, desc, dir)
				if err != nil {
					failed++
					a.logger.Error("Verification failed", interfaces.F("target", t.ID), interfaces.Err(err))
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), verifier.GetVerificationSummary(result))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d runtimes failed verification", failed, len(targets))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "verify files already downloaded")
	return cmd
}
