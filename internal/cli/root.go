// Package cli provides the command-line interface for fsindex.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fsindex/internal/config"
	"github.com/raphaelgruber/fsindex/internal/db"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	cfgFile string
	cfg     = config.Default()

	logger     *slog.Logger
	logCleanup func() error

	dbClient *db.Client
)

// needsDB reports whether a command talks to SurrealDB. Upload and the
// cobra builtins run without a connection.
func needsDB(name string) bool {
	switch name {
	case "index", "load":
		return true
	}
	return false
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fsindex",
	Short: "Parallel filesystem indexer backed by SurrealDB",
	Long: `Fsindex crawls a directory tree with a pool of parallel scanners and
indexes every discovered file into SurrealDB, keyed by an object
identifier derived from the file name.

Reprocessing a tree is safe: inserts are conflict-tolerant, so the first
committed row for an object ID wins and later duplicates are skipped.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Override file wins over flags, field by field.
		if cfgFile != "" {
			if err := cfg.ApplyFile(cfgFile); err != nil {
				return err
			}
		}

		logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)

		if !needsDB(cmd.Name()) {
			return nil
		}

		var err error
		dbClient, err = db.NewClient(cmd.Context(), db.Config{
			Host:      cfg.DBHost,
			Port:      cfg.DBPort,
			Namespace: cfg.DBNamespace,
			Database:  cfg.DBName,
			Username:  cfg.DBUser,
			Password:  cfg.DBPass,
			AuthLevel: "root",
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML/JSON override file; its values win over flags")
	pf.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "SurrealDB host")
	pf.IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "SurrealDB port")
	pf.StringVar(&cfg.DBName, "db-name", cfg.DBName, "database name")
	pf.StringVar(&cfg.DBNamespace, "db-namespace", cfg.DBNamespace, "database namespace")
	pf.StringVar(&cfg.DBUser, "db-user", cfg.DBUser, "database user")
	pf.StringVar(&cfg.DBPass, "db-pass", cfg.DBPass, "database password")
	pf.StringVar(&cfg.Table, "table", cfg.Table, "index table name")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(uploadCmd)
}
