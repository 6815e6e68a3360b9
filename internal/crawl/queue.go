package crawl

import (
	"sync"
	"time"
)

// stopTask is the sentinel the coordinator enqueues once per worker after
// the join barrier releases. NUL never appears in a filesystem path.
const stopTask = "\x00stop"

// Queue is an unbounded multi-producer multi-consumer queue of directory
// paths with join semantics: a task counts as unfinished from Enqueue until
// Done, and Join blocks until the unfinished count reaches zero. Workers
// both consume tasks and enqueue the subdirectories those tasks uncover,
// so the barrier covers work discovered mid-run.
type Queue struct {
	mu         sync.Mutex
	cond       *sync.Cond
	items      []string
	unfinished int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a pending task and bumps the unfinished count.
func (q *Queue) Enqueue(path string) {
	q.mu.Lock()
	q.items = append(q.items, path)
	q.unfinished++
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Dequeue pops the oldest task, waiting up to timeout for one to arrive.
// The second return value is false when the timeout expires with the queue
// still empty; idle workers use that to recheck for a stop sentinel.
func (q *Queue) Dequeue(timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	// The broadcast must hold the lock: a bare broadcast could fire
	// between the deadline check and cond.Wait and strand the waiter
	// past its timeout, until some later Enqueue wakes it.
	timer := time.AfterFunc(timeout, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if !time.Now().Before(deadline) {
			return "", false
		}
		q.cond.Wait()
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Done marks one previously dequeued task complete. A worker must call it
// only after the task's records are published and all of its
// subdirectories are enqueued; calling it earlier can release Join while
// undiscovered work is still pending.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.unfinished--
	if q.unfinished < 0 {
		panic("crawl: Queue.Done called more times than Enqueue")
	}
	if q.unfinished == 0 {
		q.cond.Broadcast()
	}
}

// Join blocks until every enqueued task, including tasks enqueued while
// waiting, has been marked done. It returns immediately when nothing is
// outstanding.
func (q *Queue) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.unfinished > 0 {
		q.cond.Wait()
	}
}

// Unfinished reports the current number of enqueued-but-not-done tasks.
func (q *Queue) Unfinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unfinished
}
