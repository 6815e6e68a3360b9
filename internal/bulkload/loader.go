// Package bulkload imports pre-computed index rows from delimited text
// files, one record per line. Unlike the crawl pipeline it is synchronous
// and single-threaded: the input is already flat, so there is nothing to
// parallelize.
package bulkload

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelgruber/fsindex/internal/models"
)

// Upserter is the storage slice the loader needs. Writes overwrite rows
// whose object ID already exists, so re-loading a corrected file
// refreshes stale rows instead of leaving them behind.
type Upserter interface {
	UpsertRecords(ctx context.Context, records []models.FileRecord) error
}

// Loader batches parsed lines into bulk upserts.
type Loader struct {
	store     Upserter
	batchSize int
	rootPath  string
	log       *slog.Logger
}

// New creates a loader. rootPath is recorded verbatim on every row.
func New(store Upserter, batchSize int, rootPath string, log *slog.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if log == nil {
		log = slog.Default()
	}
	return &Loader{store: store, batchSize: batchSize, rootPath: rootPath, log: log}
}

// LoadFile opens path and streams it through Load.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()
	return l.Load(ctx, f)
}

// Load reads lines of the form "object_id,full_path", batching rows and
// upserting each batch as it fills. The filename is derived from the
// path's last element. Blank and malformed lines are skipped with a
// warning. Returns the number of rows sent to the store; a store failure
// aborts the load.
func (l *Loader) Load(ctx context.Context, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	// Index rows are short, but paths can be long on deep trees.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	batch := make([]models.FileRecord, 0, l.batchSize)
	total := 0
	lineNo := 0

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		rec, ok := l.parseLine(line)
		if !ok {
			l.log.Warn("skipping malformed line", "line", lineNo)
			continue
		}

		batch = append(batch, rec)
		if len(batch) >= l.batchSize {
			if err := l.store.UpsertRecords(ctx, batch); err != nil {
				return total, fmt.Errorf("upsert batch ending at line %d: %w", lineNo, err)
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return total, fmt.Errorf("read input: %w", err)
	}

	if len(batch) > 0 {
		if err := l.store.UpsertRecords(ctx, batch); err != nil {
			return total, fmt.Errorf("upsert final batch: %w", err)
		}
		total += len(batch)
	}

	l.log.Info("bulk load complete", "rows", total)
	return total, nil
}

// parseLine splits one delimited row. Extra fields are ignored; fewer
// than two, or an empty object ID, makes the line malformed.
func (l *Loader) parseLine(line string) (models.FileRecord, bool) {
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return models.FileRecord{}, false
	}
	objectID := strings.TrimSpace(parts[0])
	fullPath := strings.TrimSpace(parts[1])
	if objectID == "" {
		return models.FileRecord{}, false
	}
	return models.FileRecord{
		ObjectID: objectID,
		Filename: filepath.Base(fullPath),
		FullPath: fullPath,
		RootPath: l.rootPath,
	}, true
}
