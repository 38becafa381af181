package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oceanbright/trawl/internal/config"
	"github.com/oceanbright/trawl/internal/project"
	"github.com/oceanbright/trawl/internal/prompt"
)

func newNewCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a project, pipeline or deployment",
	}

	cmd.AddCommand(newNewProjectCmd(root))
	cmd.AddCommand(newNewPipelineCmd(root))
	cmd.AddCommand(newNewDeploymentCmd(root))

	return cmd
}

func newNewProjectCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "project <dir>",
		Short: "Create a new project directory tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(root)
			if err != nil {
				return err
			}

			proj, err := project.Create(args[0], root.dryRun, log)
			if err != nil {
				return err
			}
			defer proj.Close()

			fmt.Fprintln(cmd.OutOrStdout(), renderSuccess(fmt.Sprintf("Created project %q at %s", proj.Name(), proj.RootDir())))
			return nil
		},
	}
}

func newNewPipelineCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline <name> <url>",
		Short: "Add a pipeline to the project from a git repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, _, err := openProject(root)
			if err != nil {
				return err
			}
			defer proj.Close()

			name, url := args[0], args[1]
			pw, err := proj.CreatePipeline(name, url)
			if err != nil {
				return err
			}

			if prompt.Interactive() {
				instance, err := pw.GetInstance()
				if err != nil {
					return err
				}
				cfg, err := prompt.ForSchema(instance.PipelineConfigSchema(), config.Map{}, os.Stdin, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if err := pw.SaveConfig(cfg); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSuccess(fmt.Sprintf("Created pipeline %q from %s", name, url)))
			return nil
		},
	}
}

func newNewDeploymentCmd(root *rootFlags) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "deployment <name>",
		Short: "Add a deployment to the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, _, err := openProject(root)
			if err != nil {
				return err
			}
			defer proj.Close()

			name := args[0]

			cfg := config.Map{}
			if prompt.Interactive() {
				schema, err := proj.CollectionConfigSchema()
				if err != nil {
					return err
				}
				cfg, err = prompt.ForSchema(schema, config.Map{}, os.Stdin, cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}

			if _, err := proj.CreateDeployment(name, parent, cfg); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSuccess(fmt.Sprintf("Created deployment %q", name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Seed the configuration from an existing deployment")

	return cmd
}
