package main

import (
	"fmt"

	"github.com/spf13/cobra"

	orchestrators "github.com/astroimagej/aijpack/internal/domain-orchestrators"
)

func newFixMetadataCommand(a *app) *cobra.Command {
	var imageDir, jdkHome string
	cmd := &cobra.Command{
		Use:   "fix-metadata <target>",
		Short: "Write the packaging JDK version into a crossbuilt image's .jpackage.xml",
		Long: `jpackage refuses an app image whose .jpackage.xml names a different JDK version.
Crossbuilt images carry a $VERSION placeholder which this command replaces with
JAVA_VERSION from the packaging JDK's release file ($JAVA_HOME or --jdk).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, def, err := a.buildOrchestrator(cmd.Context(), orchestrators.BuildOrchestratorConfig{JDKHome: jdkHome})
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
			if err := orch.FixMetadata(def, target, imageDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fixed jpackage metadata in %s\n", imageDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&imageDir, "image", "", "app image directory (default <output>/images/<SystemID>)")
	cmd.Flags().StringVar(&jdkHome, "jdk", "", "packaging JDK (default $JAVA_HOME)")
	return cmd
}
