package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fsindex/internal/bulkload"
	"github.com/raphaelgruber/fsindex/internal/db"
)

var loadRootPath string

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Bulk-load index rows from a delimited text file",
	Long: `Load pre-computed index rows from a text file with one
"object_id,full_path" row per line. The filename is derived from the
path's last element.

Rows are upserted synchronously: an existing row with the same object
ID is overwritten, so re-loading a corrected file refreshes stale rows.
Malformed lines are skipped with a warning.

Examples:
  fsindex load ./merged.csv
  fsindex load ./merged.csv --root-path /srv/archive --batch-size 500`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	f := loadCmd.Flags()
	f.StringVar(&loadRootPath, "root-path", "", "root path recorded on every loaded row")
	f.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "rows per bulk insert")
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	idx := db.NewIndex(dbClient, cfg.Table, false)
	if err := idx.Prepare(ctx); err != nil {
		return err
	}

	loader := bulkload.New(idx, cfg.BatchSize, loadRootPath, logger)
	n, err := loader.LoadFile(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d rows into %s\n", n, idx.Table())
	return nil
}
