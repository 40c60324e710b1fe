package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/docsync-mcp/internal/chunker"
)

func (a *app) chunkCmd() *cobra.Command {
	var showContent bool

	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Split a file into chunks and print them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			sources, err := a.cfg.GrammarSources()
			if err != nil {
				return err
			}
			ch := chunker.New(chunker.NewGrammarRegistry(sources...))

			out := cmd.OutOrStdout()
			chunks := ch.ChunkFile(cmd.Context(), path, string(raw))
			for i, c := range chunks {
				fmt.Fprintf(out, "%3d  %s  ~%d tokens\n", i+1, c.Label(), c.TokenCount())
				if showContent {
					fmt.Fprintf(out, "%s\n\n", c.Content)
				}
			}
			fmt.Fprintf(out, "%d chunks\n", len(chunks))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showContent, "content", false, "print chunk contents")
	return cmd
}
