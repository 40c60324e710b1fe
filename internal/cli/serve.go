package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/docsync-mcp/internal/logger"
	"github.com/dshills/docsync-mcp/internal/mcp"
	"github.com/dshills/docsync-mcp/internal/storage"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout is reserved for the MCP protocol
			logger.SetOutput(os.Stderr)
			logger.Info("docsync MCP server %s starting (build %s, driver %s)", version, storage.BuildMode, storage.DriverName)

			d, err := a.deps()
			if err != nil {
				return err
			}
			server := mcp.New(d)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("MCP server ready, listening on stdio (db %s, corpus %s)", a.cfg.DBPath, a.cfg.CorpusRoot)
			if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
				return err
			}

			logger.Info("server stopped")
			return nil
		},
	}
}
