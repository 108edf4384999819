package main

import "github.com/spf13/cobra"

func newAppImageCommand(a *app) *cobra.Command {
	opts := &buildOptions{skipInstaller: true}
	cmd := &cobra.Command{
		Use:   "app-image [target...]",
		Short: "Build app images without packaging installers",
		Long: `Build the app image for each target. With crossbuild enabled
(packaging.crossbuild or CROSSBUILD_APP_IMAGE) images are laid out directly for any
target and a prebuilt image in packaging.prebuilt_images_dir/<SystemID> is reused;
otherwise jpackage runs and only targets matching the host OS are built.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, a, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.version, "version", "v", "", "version to build (default app.version)")
	cmd.Flags().BoolVar(&opts.skipSigning, "skip-signing", true, "leave macOS images unsigned")
	return cmd
}
