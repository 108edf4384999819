package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/astroimagej/aijpack/internal/external-adapters/yaml"
)

// dotEnvFile holds local secrets (GITHUB_TOKEN, DeveloperId); real environment variables win
const dotEnvFile = ".env"

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "aijpack",
		Short: "Build, package, sign and release AstroImageJ",
		Long: `aijpack turns the AstroImageJ jars into per-platform app images and installers.

It fetches and verifies Java runtimes from Adoptium, trims them with jlink, lays out
app images, signs and notarizes them on macOS, packages dmg/msi/tgz installers and
maintains the update metadata read by the in-app updater.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", yaml.DefaultDefinitionFile, "build definition file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default $AIJ_LOG_LEVEL or info)")

	root.AddCommand(
		newBuildCommand(a),
		newRuntimeCommand(a),
		newAppImageCommand(a),
		newFixMetadataCommand(a),
		newSignCommand(a),
		newInstallerCommand(a),
		newNotarizeCommand(a),
		newRenameDmgCommand(a),
		newFixRegistryCommand(a),
		newSignAssetsCommand(a),
		newMetadataCommand(a),
		newReleaseCommand(a),
		newListCommand(a),
		newVerifyCommand(a),
	)
	return root
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
