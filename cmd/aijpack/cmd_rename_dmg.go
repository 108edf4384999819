package main

import (
	"fmt"

	"github.com/spf13/cobra"

	adapters "github.com/astroimagej/aijpack/internal/domain-adapters/gateways"
	orchestrators "github.com/astroimagej/aijpack/internal/domain-orchestrators"
)

func newRenameDmgCommand(a *app) *cobra.Command {
	var dir, volume string
	cmd := &cobra.Command{
		Use:   "rename-dmg [target]",
		Short: "Rename the volume of a DMG",
		Long: `Convert the single .dmg in a directory to read/write, rename its volume, keep the
volume icon and recompress it in place. The directory defaults to the target's
installer directory, the volume name to mac.volume_name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.definition(cmd.Context())
			if err != nil {
				return err
			}
			if dir == "" {
				id := "mac"
				if len(args) == 1 {
					id = args[0]
				}
				target, err := singleTarget(def, id)
				if err != nil {
					return err
				}
				dir = orchestrators.PathsFor(def, target).Installer
			}
			if volume == "" {
				volume = def.Mac.VolumeName
			}

			dmg, err := adapters.NewDmgVolumeRenamer(a.runner, a.logger).RenameInDir(cmd.Context(), dir, volume)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed volume of %s to %q\n", dmg, volume)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory holding exactly one .dmg")
	cmd.Flags().StringVar(&volume, "volume", "", "new volume name (default mac.volume_name)")
	return cmd
}
