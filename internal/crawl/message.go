package crawl

import (
	"context"

	"github.com/raphaelgruber/fsindex/internal/models"
)

// messageKind discriminates result-channel payloads.
type messageKind int

const (
	// kindFiles carries one directory's worth of records, possibly none.
	kindFiles messageKind = iota
	// kindDone tells the writer to flush and exit. Sent exactly once,
	// by the coordinator, after all workers have stopped.
	kindDone
)

// message is what workers send to the writer over the bounded result
// channel. The channel's capacity is the backpressure mechanism: when the
// writer falls behind, sends block and workers pause.
type message struct {
	kind    messageKind
	records []models.FileRecord
}

// Store is the slice of the database the pipeline needs. InsertRecords
// must be idempotent: rows whose object ID already exists are skipped
// silently, so the first committed write for a key wins.
type Store interface {
	// Prepare creates the index table if absent. Called once, before any
	// insert.
	Prepare(ctx context.Context) error
	InsertRecords(ctx context.Context, records []models.FileRecord) error
}
