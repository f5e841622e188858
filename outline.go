package main

import (
	"github.com/spf13/cobra"

	"github.com/tenebris-tech/doctoc/docx2toc"
	"github.com/tenebris-tech/doctoc/toc"
)

type outlineSummary struct {
	Input   string      `json:"input" yaml:"input"`
	Entries []toc.Entry `json:"entries" yaml:"entries"`
}

func newOutlineCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "outline <input.docx>",
		Short: "Print the headings a table of contents would list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := append(c.config.Get().ConverterOptions(), docx2toc.WithLogger(c.logger))
			converter := docx2toc.New(opts...)

			entries, err := converter.OutlineFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []toc.Entry{}
			}
			return OutputTo(cmd.OutOrStdout(), c.format, outlineSummary{
				Input:   args[0],
				Entries: entries,
			})
		},
	}
}
