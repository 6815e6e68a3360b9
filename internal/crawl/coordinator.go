package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/raphaelgruber/fsindex/internal/metrics"
	"github.com/raphaelgruber/fsindex/internal/scanner"
)

// resultBuffer caps in-flight undelivered records between the worker pool
// and the writer.
const resultBuffer = 1000

// DefaultBatchSize is the writer's flush threshold when none is configured.
const DefaultBatchSize = 1000

// Options configures a crawl run.
type Options struct {
	// Root is the directory the traversal starts from.
	Root string
	// Extractor derives object IDs from file names. Nil indexes every
	// file under its bare name.
	Extractor scanner.Extractor
	// Workers is the pool size. Defaults to the host's parallelism.
	Workers int
	// BatchSize is the writer's flush threshold. Defaults to
	// DefaultBatchSize.
	BatchSize int
}

// Coordinator owns the pipeline lifecycle: it prepares storage, seeds the
// queue, starts the writer and the worker pool, waits on the join barrier,
// and shuts the stages down in order.
type Coordinator struct {
	store     Store
	opts      Options
	collector *metrics.Collector
	log       *slog.Logger
}

// New creates a coordinator. Zero-value options get defaults; a nil
// collector or logger gets a private one.
func New(store Store, opts Options, collector *metrics.Collector, log *slog.Logger) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{store: store, opts: opts, collector: collector, log: log}
}

// Run crawls the tree under Options.Root and blocks until every directory,
// including ones discovered mid-run, has been scanned and every buffered
// record flushed. The returned error is a fatal storage failure; scan
// errors are absorbed and only counted on the metrics collector.
func (c *Coordinator) Run(ctx context.Context) error {
	runID := uuid.New().String()[:8]
	log := c.log.With("run_id", runID)

	if err := c.store.Prepare(ctx); err != nil {
		return fmt.Errorf("prepare storage: %w", err)
	}

	queue := NewQueue()
	results := make(chan message, resultBuffer)

	queue.Enqueue(c.opts.Root)

	wr := &writer{
		store:     c.store,
		batchSize: c.opts.BatchSize,
		collector: c.collector,
		log:       log,
	}
	writerErr := make(chan error, 1)
	go func() { writerErr <- wr.run(ctx, results) }()

	log.Info("starting crawl", "root", c.opts.Root, "workers", c.opts.Workers, "batch_size", c.opts.BatchSize)

	var wg sync.WaitGroup
	for i := 0; i < c.opts.Workers; i++ {
		w := &worker{
			id:        i,
			queue:     queue,
			results:   results,
			root:      c.opts.Root,
			extractor: c.opts.Extractor,
			collector: c.collector,
			log:       log,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run()
		}()
	}

	// Blocks until every directory, including ones enqueued by workers
	// along the way, has been scanned and marked done.
	queue.Join()

	// Sentinels strictly after the barrier: stopping workers earlier
	// could strand undiscovered subtrees.
	for i := 0; i < c.opts.Workers; i++ {
		queue.Enqueue(stopTask)
	}
	wg.Wait()

	results <- message{kind: kindDone}
	err := <-writerErr

	snap := c.collector.Snapshot()
	log.Info("crawl finished",
		"dirs_scanned", snap.DirsScanned,
		"files_indexed", snap.FilesIndexed,
		"scan_errors", snap.ScanErrors)
	return err
}
