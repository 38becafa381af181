package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInstallCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install every pipeline's dependencies from its requirements manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, _, err := openProject(root)
			if err != nil {
				return err
			}
			defer proj.Close()

			proj.InstallPipelines(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), renderSuccess(fmt.Sprintf("Installed dependencies for %d pipeline(s)", len(proj.Pipelines()))))
			return nil
		},
	}
}
