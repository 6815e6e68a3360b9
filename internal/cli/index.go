package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/fsindex/internal/crawl"
	"github.com/raphaelgruber/fsindex/internal/db"
	"github.com/raphaelgruber/fsindex/internal/metrics"
	"github.com/raphaelgruber/fsindex/internal/scanner"
)

var indexNoProgress bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Crawl a directory tree and index its files",
	Long: `Crawl the tree under --root with a pool of parallel scanners and index
every discovered file into the SurrealDB table.

The object ID defaults to the bare file name. With --filename-regex the
matched portion of the name becomes the ID and non-matching files are
skipped entirely. Unreadable directories are skipped without aborting
the run; they only show up in the scan-error count.

Examples:
  fsindex index --root /srv/archive
  fsindex index --root /srv/archive --filename-regex '[A-Z]{3}-\d{6}'
  fsindex index --root /srv/archive --drop-existing --workers 16
  fsindex index --root /srv/archive --config ./prod.yaml`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	f := indexCmd.Flags()
	f.StringVar(&cfg.Root, "root", "", "root directory to scan (required)")
	f.StringVar(&cfg.FilenameRegex, "filename-regex", "", "pattern extracting the object ID from file names")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "worker pool size")
	f.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "records per bulk insert")
	f.BoolVar(&cfg.DropExisting, "drop-existing", false, "drop and recreate the table before indexing")
	f.BoolVar(&indexNoProgress, "no-progress", false, "disable the interactive progress display")
}

func runIndex(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root must be a directory: %s", cfg.Root)
	}

	var extractor scanner.Extractor
	if cfg.FilenameRegex != "" {
		re, err := scanner.NewRegexpExtractor(cfg.FilenameRegex)
		if err != nil {
			return err
		}
		extractor = re
	}

	collector := metrics.NewCollector()
	coord := crawl.New(
		db.NewIndex(dbClient, cfg.Table, cfg.DropExisting),
		crawl.Options{
			Root:      cfg.Root,
			Extractor: extractor,
			Workers:   cfg.Workers,
			BatchSize: cfg.BatchSize,
		},
		collector,
		logger,
	)

	done := make(chan error, 1)
	go func() { done <- coord.Run(cmd.Context()) }()

	if !indexNoProgress && term.IsTerminal(int(os.Stderr.Fd())) {
		err = runProgress(collector, done)
	} else {
		err = <-done
	}
	if err != nil {
		return err
	}

	snap := collector.Snapshot()
	fmt.Printf("Indexed %d files across %d directories (%.2f files/sec, %d scan errors)\n",
		snap.FilesIndexed, snap.DirsScanned, snap.Rate(), snap.ScanErrors)
	return nil
}
