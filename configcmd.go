package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tenebris-tech/doctoc/config"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			c.logger.Info("wrote config", "file", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return OutputTo(cmd.OutOrStdout(), c.format, c.config.Get())
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
