package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCmd(root *rootFlags) *cobra.Command {
	var (
		pipelineName   string
		deploymentName string
		extraArgs      []string
	)

	cmd := &cobra.Command{
		Use:   "import <source>...",
		Short: "Import raw data from source paths into deployment data directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, _, err := openProject(root)
			if err != nil {
				return err
			}
			defer proj.Close()

			results, err := proj.RunCommand(cmd.Context(), "import", pipelineName, deploymentName, args, extraArgs, nil)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))
			return nil
		},
	}

	cmd.Flags().StringVarP(&pipelineName, "pipeline", "p", "", "Run only the named pipeline")
	cmd.Flags().StringVarP(&deploymentName, "deployment", "d", "", "Run only for the named deployment")
	cmd.Flags().StringArrayVar(&extraArgs, "extra", nil, "Extra key=value arguments passed to the pipeline")

	return cmd
}
