package main

import (
	"github.com/spf13/cobra"

	"github.com/oceanbright/trawl/internal/logger"
	"github.com/oceanbright/trawl/internal/project"
)

type rootFlags struct {
	projectDir string
	verbose    bool
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "trawl",
		Short:         "Trawl orchestrates marine imagery pipelines across survey deployments",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.projectDir, "project-dir", "C", ".", "Path to the project directory")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Preview execution without making changes")

	cmd.AddCommand(newNewCmd(flags))
	cmd.AddCommand(newImportCmd(flags))
	cmd.AddCommand(newProcessCmd(flags))
	cmd.AddCommand(newPackageCmd(flags))
	cmd.AddCommand(newDistributeCmd(flags))
	cmd.AddCommand(newUpdateCmd(flags))
	cmd.AddCommand(newInstallCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// newLogger builds the command logger, honouring the verbosity flag.
func newLogger(flags *rootFlags) (*logger.Logger, error) {
	level := "info"
	if flags.verbose {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: true})
}

// openProject wraps the project at the configured directory.
func openProject(flags *rootFlags) (*project.Wrapper, *logger.Logger, error) {
	log, err := newLogger(flags)
	if err != nil {
		return nil, nil, err
	}

	proj, err := project.Wrap(flags.projectDir, flags.dryRun, log)
	if err != nil {
		return nil, nil, err
	}
	return proj, log, nil
}
