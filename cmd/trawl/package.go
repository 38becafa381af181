package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oceanbright/trawl/internal/project"
)

func newPackageCmd(root *rootFlags) *cobra.Command {
	var (
		pipelineName string
		mode         string
		extraArgs    []string
	)

	cmd := &cobra.Command{
		Use:   "package <name> <deployment>...",
		Short: "Compose deployments and package the result under dist",
		Long: "Compose the named deployments with one pipeline, in the order given, " +
			"and materialize the result as a distributable package with a content manifest.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			packageMode, err := project.ParsePackageMode(mode)
			if err != nil {
				return err
			}

			proj, _, err := openProject(root)
			if err != nil {
				return err
			}
			defer proj.Close()

			name, deployments := args[0], args[1:]

			meta, mapping, err := proj.Compose(cmd.Context(), pipelineName, deployments, extraArgs, nil)
			if err != nil {
				return err
			}

			pkg, err := proj.Package(name, meta, mapping, packageMode)
			if err != nil {
				return err
			}

			if err := pkg.Validate(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSuccess(fmt.Sprintf("Packaged %d file(s) into %s", len(mapping), pkg.RootDir())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&pipelineName, "pipeline", "p", "", "Pipeline to compose with")
	cmd.Flags().StringVar(&mode, "mode", string(project.ModeCopy), "How files enter the package: copy, move or link")
	cmd.Flags().StringArrayVar(&extraArgs, "extra", nil, "Extra key=value arguments passed to the pipeline")
	cmd.MarkFlagRequired("pipeline") //nolint:errcheck

	return cmd
}
