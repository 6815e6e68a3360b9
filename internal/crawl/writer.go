package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/fsindex/internal/metrics"
	"github.com/raphaelgruber/fsindex/internal/models"
)

// progressEvery controls how often the writer logs cumulative progress.
const progressEvery = 100_000

// writer is the single consumer of the result channel. It buffers records
// and flushes them to the store in conflict-tolerant batches, making the
// bulk insert the unit of durability. Nothing else touches the store
// during a crawl.
type writer struct {
	store     Store
	batchSize int
	collector *metrics.Collector
	log       *slog.Logger
}

// run consumes messages until a done message arrives, flushing whenever
// the buffer reaches the batch size and once more on shutdown.
//
// A flush failure is fatal and is not retried, but run keeps draining the
// channel afterwards (discarding records) so the workers never wedge on a
// full channel; the first error is returned once the pipeline winds down.
func (w *writer) run(ctx context.Context, results <-chan message) error {
	start := time.Now()
	buffer := make([]models.FileRecord, 0, w.batchSize)
	var total int64
	var fatal error

	for msg := range results {
		if msg.kind == kindDone {
			break
		}
		if fatal != nil {
			continue
		}
		buffer = append(buffer, msg.records...)
		if len(buffer) >= w.batchSize {
			n := len(buffer)
			if err := w.flush(ctx, buffer); err != nil {
				fatal = err
				continue
			}
			buffer = buffer[:0]
			prev := total
			total += int64(n)
			if total/progressEvery != prev/progressEvery {
				w.log.Info("indexing progress", "files", total, "elapsed", time.Since(start).Round(time.Millisecond))
			}
		}
	}

	if fatal != nil {
		return fatal
	}

	if len(buffer) > 0 {
		n := len(buffer)
		if err := w.flush(ctx, buffer); err != nil {
			return err
		}
		total += int64(n)
	}

	elapsed := time.Since(start)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(total) / elapsed.Seconds()
	}
	w.log.Info("indexing complete",
		"files", total,
		"elapsed", elapsed.Round(time.Millisecond),
		"rate_per_sec", fmt.Sprintf("%.2f", rate))
	return nil
}

func (w *writer) flush(ctx context.Context, records []models.FileRecord) error {
	start := time.Now()
	if err := w.store.InsertRecords(ctx, records); err != nil {
		return fmt.Errorf("flush %d records: %w", len(records), err)
	}
	w.collector.RecordTiming(metrics.OpFlush, time.Since(start))
	w.collector.AddFilesIndexed(len(records))
	return nil
}
