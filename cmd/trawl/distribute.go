package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oceanbright/trawl/internal/project"
)

func newDistributeCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "distribute <package> <target-dir>",
		Short: "Deliver a validated package to a target directory",
		Long: "Validate the named package under dist against its manifest and copy it " +
			"into the target directory. An inconsistent package is never distributed.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, log, err := openProject(root)
			if err != nil {
				return err
			}
			defer proj.Close()

			name, targetDir := args[0], args[1]

			target := project.NewDirectoryTarget(targetDir, log)
			if err := proj.Distribute(cmd.Context(), name, target); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSuccess(fmt.Sprintf("Distributed package %q to %s", name, targetDir)))
			return nil
		},
	}
}
