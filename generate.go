package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tenebris-tech/doctoc/batch"
	"github.com/tenebris-tech/doctoc/config"
	"github.com/tenebris-tech/doctoc/docx2toc"
	"github.com/tenebris-tech/doctoc/toc"
)

type generateFlags struct {
	out          string
	inPlace      bool
	recursive    bool
	outputDir    string
	skipExisting bool
	watchConfig  bool

	title          string
	linkMode       string
	anchorPrefix   string
	cleanupAnchors bool
}

// generateSummary is printed for a single input file
type generateSummary struct {
	Input             string      `json:"input" yaml:"input"`
	Output            string      `json:"output,omitempty" yaml:"output,omitempty"`
	NoOp              bool        `json:"no_op" yaml:"no_op"`
	Entries           []toc.Entry `json:"entries,omitempty" yaml:"entries,omitempty"`
	RemovedParagraphs int         `json:"removed_paragraphs,omitempty" yaml:"removed_paragraphs,omitempty"`
	Warnings          []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func newGenerateCmd(c *cli) *cobra.Command {
	f := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate <input.docx | directory>",
		Short: "Insert or refresh the table of contents",
		Long: `Insert or refresh the table of contents of a .docx file.

By default the result is written next to the input as <name>.toc.docx.
Use --out to choose the file, or --in-place to overwrite the input.
Documents without headings are left alone and nothing is written.

With --recursive the argument may be a directory; every .docx file below
it is processed. --watch-config applies edits of the config file to the
files that have not been started yet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, c, f, args[0])
		},
	}

	f.addFlags(cmd)
	return cmd
}

func (f *generateFlags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.out, "out", "", "output file (single file only)")
	cmd.Flags().BoolVarP(&f.inPlace, "in-place", "w", false, "overwrite the input file")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "process directories recursively")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "write outputs to this directory (flat structure)")
	cmd.Flags().BoolVar(&f.skipExisting, "skip-existing", true, "skip inputs whose output file exists")
	cmd.Flags().BoolVar(&f.watchConfig, "watch-config", false, "reload the config file between files of a batch run")

	cmd.Flags().StringVar(&f.title, "title", "", "title of the table of contents")
	cmd.Flags().StringVar(&f.linkMode, "link-mode", "", "how entries are linked: replace or end")
	cmd.Flags().StringVar(&f.anchorPrefix, "anchor-prefix", "", "prefix of generated bookmark names")
	cmd.Flags().BoolVar(&f.cleanupAnchors, "cleanup-anchors", false, "delete the bookmarks again after rendering")

	cmd.MarkFlagsMutuallyExclusive("out", "in-place")
	cmd.MarkFlagsMutuallyExclusive("out", "output-dir")
	cmd.MarkFlagsMutuallyExclusive("in-place", "output-dir")
}

// converterOptions merges the current config with the flags set on the
// command line
func (f *generateFlags) converterOptions(cmd *cobra.Command, c *cli) ([]docx2toc.Option, error) {
	return f.optionsFor(cmd, c, *c.config.Get())
}

// optionsFor merges cfg with the flags set on the command line. Flags win
// over every config reload.
func (f *generateFlags) optionsFor(cmd *cobra.Command, c *cli, cfg config.Config) ([]docx2toc.Option, error) {
	flags := cmd.Flags()
	if flags.Changed("title") {
		cfg.Title = f.title
	}
	if flags.Changed("link-mode") {
		cfg.LinkMode = f.linkMode
	}
	if flags.Changed("anchor-prefix") {
		cfg.AnchorPrefix = f.anchorPrefix
	}
	if flags.Changed("cleanup-anchors") {
		cfg.CleanupAnchors = f.cleanupAnchors
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := cfg.ConverterOptions()
	opts = append(opts, docx2toc.WithLogger(c.logger))
	if c.debug {
		opts = append(opts,
			docx2toc.WithOnDocumentParsed(func() {
				c.logger.Debug("document parsed")
			}),
			docx2toc.WithOnStylesParsed(func(count int) {
				c.logger.Debug("styles parsed", "count", count)
			}),
		)
	}
	return opts, nil
}

func runGenerate(cmd *cobra.Command, c *cli, f *generateFlags, input string) error {
	opts, err := f.converterOptions(cmd, c)
	if err != nil {
		return err
	}

	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	if info.IsDir() && !f.recursive {
		return fmt.Errorf("%s is a directory (use --recursive)", input)
	}
	if info.IsDir() || f.outputDir != "" {
		return runBatch(cmd, c, f, input, opts)
	}

	converter := docx2toc.New(opts...)
	output := f.out
	switch {
	case f.inPlace:
		output = input
	case output == "":
		output = converter.OutputPath(input)
	}

	result, err := converter.GenerateFileToFile(cmd.Context(), input, output)
	if err != nil {
		return err
	}

	summary := generateSummary{
		Input:             input,
		NoOp:              result.NoOp,
		RemovedParagraphs: result.RemovedParagraphs,
	}
	if !result.NoOp {
		summary.Output = output
	}
	if result.Block != nil {
		summary.Entries = result.Block.Entries
	}
	for _, w := range result.Warnings {
		summary.Warnings = append(summary.Warnings, w.Error())
	}
	if result.NoOp {
		c.logger.Info("no headings found, document left unchanged", "input", input)
	}
	return OutputTo(cmd.OutOrStdout(), c.format, summary)
}

func runBatch(cmd *cobra.Command, c *cli, f *generateFlags, input string, opts []docx2toc.Option) error {
	if f.out != "" {
		return errors.New("--out cannot be used with directories or --output-dir")
	}

	processor := batch.New(
		batch.WithRecursion(f.recursive),
		batch.WithInPlace(f.inPlace),
		batch.WithOutputDirectory(f.outputDir),
		batch.WithSkipExisting(f.skipExisting),
		batch.WithConverterOptions(opts...),
		batch.WithOnFileStart(func(path string) {
			c.logger.Debug("processing", "file", path)
		}),
		batch.WithOnFileSkipped(func(path, outputPath, reason string) {
			c.logger.Info("skipped", "file", path, "output", outputPath, "reason", reason)
		}),
		batch.WithOnFileComplete(func(path, outputPath string, result *toc.Result, err error) {
			switch {
			case toc.IsTerminal(err):
				c.logger.Error("table of contents pass aborted", "file", path, "error", err)
			case err != nil:
				c.logger.Error("failed", "file", path, "error", err)
			}
		}),
	)

	if f.watchConfig {
		if c.config.ConfigFile() == "" {
			return errors.New("--watch-config needs a config file")
		}
		c.config.OnChange(f.reloader(cmd, c, processor))
		c.config.WatchConfig()
	}

	result, err := processor.Process(cmd.Context(), input)
	if result != nil {
		if outErr := OutputTo(cmd.OutOrStdout(), c.format, result); outErr != nil {
			return outErr
		}
	}
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", result.Failed, result.Failed+result.Updated+result.Unchanged)
	}
	return nil
}

// reloader applies a changed config to the files a batch run has not
// started yet
func (f *generateFlags) reloader(cmd *cobra.Command, c *cli, processor *batch.Processor) func(*config.Config) {
	return func(cfg *config.Config) {
		opts, err := f.optionsFor(cmd, c, *cfg)
		if err != nil {
			c.logger.Warn("ignoring config change", "error", err)
			return
		}
		processor.SetConverterOptions(opts...)
		c.logger.Info("config reloaded", "file", c.config.ConfigFile())
	}
}
