package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/docsync-mcp/internal/searcher"
)

// corpusSearcher builds a searcher for lexical lookups; it needs no storage
func (a *app) corpusSearcher() *searcher.Searcher {
	return searcher.NewSearcher(nil, nil, searcher.Config{
		CacheTTL:     a.cfg.Search.CacheTTL,
		ExactIDBonus: a.cfg.Search.ExactIDBonus,
	})
}

func (a *app) searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Rank corpus documents by id, title and type",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hits, err := a.corpusSearcher().Search(a.cfg.CorpusRoot, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, h := range hits {
				fmt.Fprintf(out, "%4d  %-24s %s (%s)\n", h.Score, h.Ref.ID, h.Ref.Title, h.Ref.Path)
			}
			if len(hits) == 0 {
				fmt.Fprintln(out, "no results")
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum results (0 for all)")
	return cmd
}

func (a *app) readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <doc-id>",
		Short: "Print a corpus document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.corpusSearcher()
			out := cmd.OutOrStdout()

			doc, ok, err := s.Read(args[0], a.cfg.CorpusRoot)
			if err != nil {
				return err
			}
			if !ok {
				suggestions, err := s.Suggest(args[0], a.cfg.CorpusRoot, 5)
				if err != nil {
					return err
				}
				if len(suggestions) > 0 {
					fmt.Fprintf(out, "did you mean: %s\n", strings.Join(suggestions, ", "))
				}
				return fmt.Errorf("document %q not found", args[0])
			}

			fmt.Fprintf(out, "# %s\n", doc.Title)
			fmt.Fprintf(out, "id: %s  type: %s  path: %s\n\n", doc.ID, doc.Type, doc.Path)
			fmt.Fprint(out, doc.Body)
			return nil
		},
	}
}
