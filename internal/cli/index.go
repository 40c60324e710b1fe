package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/docsync-mcp/internal/corpus"
)

func (a *app) syncCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "sync <project> <path>",
		Short: "Sync a document, or every document under a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, path := args[0], args[1]

			info, err := os.Stat(path)
			if err != nil {
				return err
			}

			d, err := a.deps()
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if info.IsDir() {
				stats, err := d.Indexer.SyncDirectory(ctx, projectID, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "scanned %d documents, %d changed\n", stats.DocumentsScanned, stats.DocumentsChanged)
				fmt.Fprintf(out, "chunks: %d indexed, %d reused\n", stats.ChunksIndexed, stats.ChunksReused)
				for _, msg := range stats.ErrorMessages {
					fmt.Fprintf(out, "error: %s\n", msg)
				}
				fmt.Fprintf(out, "done in %v\n", stats.Duration.Round(time.Millisecond))
				if stats.Errors > 0 {
					return fmt.Errorf("%d documents failed", stats.Errors)
				}
				return nil
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			content := string(raw)
			if title == "" {
				title = corpus.Title(path, content)
			}

			res, err := d.Indexer.SyncDocument(ctx, projectID, path, title, content)
			if err != nil {
				return err
			}
			if res.Unchanged {
				fmt.Fprintf(out, "%s unchanged (version %d)\n", path, res.Document.Version)
				return nil
			}
			fmt.Fprintf(out, "%s synced (version %d): %d indexed, %d reused\n",
				path, res.Document.Version, res.ChunksIndexed, res.ChunksReused)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "document title (default from content)")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project> <path>",
		Short: "Remove a document and its embeddings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.deps()
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			if err := d.Indexer.DeleteDocument(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[1])
			return nil
		},
	}
}

func (a *app) matchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "match <project> <query>",
		Short: "Find stored chunks similar to a query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.deps()
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			matches, err := d.Searcher.MatchChunks(cmd.Context(), args[0], args[1], limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, m := range matches {
				fmt.Fprintf(out, "%2d. %.3f  %s:%d-%d  %s\n", m.Rank, m.Similarity, m.FilePath, m.StartLine, m.EndLine, m.Kind)
			}
			if len(matches) == 0 {
				fmt.Fprintln(out, "no matches")
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum matches")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <project>",
		Short: "Show index statistics for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.deps()
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			status, err := d.Indexer.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "project:    %s\n", status.ProjectID)
			fmt.Fprintf(out, "documents:  %d\n", status.DocumentsCount)
			fmt.Fprintf(out, "embeddings: %d\n", status.EmbeddingsCount)
			fmt.Fprintf(out, "size:       %.2f MB\n", status.IndexSizeMB)
			if !status.LastUpdatedAt.IsZero() {
				fmt.Fprintf(out, "updated:    %s\n", status.LastUpdatedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintf(out, "embedder:   %s/%s\n", d.Embedder.Provider(), d.Embedder.Model())
			return nil
		},
	}
}
