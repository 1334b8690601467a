package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-diary-bot/internal/config"
	"github.com/tbourn/go-diary-bot/internal/extract"
)

func newExtractCmd(cfg func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "extract TEXT...",
		Short:   "Print the attributes extracted from text as JSON",
		Example: `  diarybot extract "выпил 2 чашки кофе"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			// The watcher is pointless for a one-shot run.
			c.NLP.LexiconWatch = false
			a, err := newAnalyzer(cmd.Context(), c.NLP, c.LLM.Timeout)
			if err != nil {
				return err
			}
			attrs, err := extract.New(a).Extract(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(attrs)
		},
	}
}
