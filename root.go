package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tenebris-tech/doctoc/config"
	"github.com/tenebris-tech/doctoc/version"
)

// cli carries the persistent flags and what PersistentPreRunE builds from them
type cli struct {
	cfgFile      string
	outputFormat string
	debug        bool

	format OutputFormat
	config *config.Manager
	logger *slog.Logger
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "docx2toc",
		Short: "Generate a linked table of contents in Word documents",
		Long: `docx2toc inserts a table of contents at the start of a .docx file.

Every paragraph styled "Heading 1" (or any style containing "heading")
becomes an entry linked to a bookmark on that heading. "Heading 2" and
"Heading 3" entries are indented one and two levels. Running it again
replaces the previously generated table instead of adding another one.`,
		Version:       version.GitRelease,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(
		&c.cfgFile, "config", "", "config file (default: ./config.yaml or ~/.docx2toc/config.yaml)",
	)
	cmd.PersistentFlags().StringVarP(
		&c.outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	cmd.PersistentFlags().BoolVarP(
		&c.debug, "debug", "d", false, "debug logging (stages, styles, retries)",
	)

	cmd.AddCommand(newGenerateCmd(c))
	cmd.AddCommand(newOutlineCmd(c))
	cmd.AddCommand(newConfigCmd(c))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (c *cli) setup(stderr io.Writer) error {
	level := slog.LevelInfo
	if c.debug {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)

	format, err := ParseOutputFormat(c.outputFormat)
	if err != nil {
		return err
	}
	c.format = format

	mgr, err := config.NewManager(c.cfgFile)
	if err != nil {
		return err
	}
	c.config = mgr
	if file := mgr.ConfigFile(); file != "" {
		c.logger.Debug("loaded config", "file", file)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "docx2toc %s\n", version.GitRelease)
			fmt.Fprintf(out, "  Go:     %s\n", version.GoInfo)
			fmt.Fprintf(out, "  Commit: %s\n", version.GitCommit)
			fmt.Fprintf(out, "  Date:   %s\n", version.GitCommitDate)
		},
	}
}
