// Package cli implements the docsync command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/docsync-mcp/internal/config"
	"github.com/dshills/docsync-mcp/internal/logger"
	"github.com/dshills/docsync-mcp/internal/mcp"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// app carries the state shared by every subcommand
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCmd builds the docsync command tree
func NewRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "docsync",
		Short:         "docsync keeps a document corpus chunked, embedded and searchable",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger.SetVerbose(cfg.Log.Verbose)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./docsync.yaml or ~/.docsync/docsync.yaml)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.String("db", "", "database path")
	flags.String("root", "", "corpus root for search and read")

	// Flags override config file and environment
	_ = a.v.BindPFlag("log.verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("db_path", flags.Lookup("db"))
	_ = a.v.BindPFlag("corpus_root", flags.Lookup("root"))

	root.AddCommand(
		a.serveCmd(),
		a.chunkCmd(),
		a.syncCmd(),
		a.deleteCmd(),
		a.searchCmd(),
		a.readCmd(),
		a.matchCmd(),
		a.statusCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deps builds every component from the loaded configuration
func (a *app) deps() (mcp.Deps, error) {
	return mcp.BuildDeps(a.cfg)
}
