package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProcessCmd(root *rootFlags) *cobra.Command {
	var (
		pipelineName   string
		deploymentName string
		extraArgs      []string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process imported data in place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, _, err := openProject(root)
			if err != nil {
				return err
			}
			defer proj.Close()

			results, err := proj.RunCommand(cmd.Context(), "process", pipelineName, deploymentName, nil, extraArgs, nil)
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
