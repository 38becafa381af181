package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpdateCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Pull every pipeline's implementation repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, _, err := openProject(root)
			if err != nil {
				return err
			}
			defer proj.Close()

			proj.UpdatePipelines(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), renderSuccess(fmt.Sprintf("Updated %d pipeline(s)", len(proj.Pipelines()))))
			return nil
		},
	}
}
