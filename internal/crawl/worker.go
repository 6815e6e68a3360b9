package crawl

import (
	"log/slog"
	"time"

	"github.com/raphaelgruber/fsindex/internal/metrics"
	"github.com/raphaelgruber/fsindex/internal/scanner"
)

// dequeueTimeout bounds how long an idle worker waits before rechecking
// the queue.
const dequeueTimeout = 500 * time.Millisecond

// worker drains the task queue, scanning one directory per task and
// feeding discovered subdirectories back into the queue. Workers share no
// mutable state with each other beyond the queue and the result channel.
type worker struct {
	id        int
	queue     *Queue
	results   chan<- message
	root      string
	extractor scanner.Extractor
	collector *metrics.Collector
	log       *slog.Logger
}

func (w *worker) run() {
	for {
		dir, ok := w.queue.Dequeue(dequeueTimeout)
		if !ok {
			continue
		}
		if dir == stopTask {
			w.queue.Done()
			return
		}

		start := time.Now()
		records, subdirs, err := scanner.Scan(dir, w.root, w.extractor)
		if err != nil {
			// An unreadable directory contributes nothing; siblings and
			// ancestors keep going.
			w.collector.AddScanError()
			w.log.Debug("skipping unreadable directory", "worker", w.id, "dir", dir, "error", err)
		}
		w.collector.RecordTiming(metrics.OpScan, time.Since(start))

		// Publish before enqueuing subtasks, and mark done only after
		// both: Done preceding the subdir enqueues could release the
		// join barrier with subtrees still undiscovered.
		w.results <- message{kind: kindFiles, records: records}
		for _, sub := range subdirs {
			w.queue.Enqueue(sub)
		}
		w.queue.Done()
		w.collector.AddDirScanned()
	}
}
