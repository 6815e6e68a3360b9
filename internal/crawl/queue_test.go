package crawl

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDequeueTimeout(t *testing.T) {
	q := NewQueue()

	start := time.Now()
	_, ok := q.Dequeue(50 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

// TestQueueDequeueTimeoutConcurrent checks that idle waiters observe their
// own deadline instead of sleeping until some unrelated broadcast: every
// Dequeue on an empty queue must come back close to its timeout even when
// many waiters race on the same condition variable.
func TestQueueDequeueTimeoutConcurrent(t *testing.T) {
	q := NewQueue()
	const waiters = 16
	const timeout = 20 * time.Millisecond

	var wg sync.WaitGroup
	elapsed := make([]time.Duration, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := time.Now()
			_, ok := q.Dequeue(timeout)
			assert.False(t, ok)
			elapsed[i] = time.Since(start)
		}(i)
	}
	wg.Wait()

	for i, d := range elapsed {
		assert.GreaterOrEqual(t, d, timeout, "waiter %d returned early", i)
		assert.Less(t, d, 2*time.Second, "waiter %d slept past its deadline", i)
	}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Enqueue("a")
	q.Enqueue("b")

	first, ok := q.Dequeue(time.Second)
	require.True(t, ok)
	second, ok := q.Dequeue(time.Second)
	require.True(t, ok)
	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
}

func TestQueueJoinImmediateWhenIdle(t *testing.T) {
	q := NewQueue()
	q.Enqueue("root")
	_, ok := q.Dequeue(time.Second)
	require.True(t, ok)
	q.Done()

	done := make(chan struct{})
	go func() {
		q.Join()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Join did not return after the last task was done")
	}
}

// TestQueueJoinCoversTransitiveTasks exercises the barrier with work that
// keeps expanding while Join is already waiting: each consumed task
// enqueues children until a depth limit, mimicking directory discovery.
func TestQueueJoinCoversTransitiveTasks(t *testing.T) {
	q := NewQueue()

	var processed sync.Map
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				task, ok := q.Dequeue(20 * time.Millisecond)
				if !ok {
					continue
				}
				processed.Store(task, true)
				// Expand: "x" -> "xa", "xb" until length 5.
				if len(task) < 5 {
					q.Enqueue(task + "a")
					q.Enqueue(task + "b")
				}
				q.Done()
			}
		}()
	}

	q.Enqueue("r")
	q.Join()
	close(stop)
	wg.Wait()

	// 1 + 2 + 4 + 8 + 16 tasks for depths 1..5.
	count := 0
	processed.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 31, count, "Join must not release before transitively enqueued tasks finish")
	assert.Equal(t, 0, q.Unfinished())
}

func TestQueueDoneBeforeEnqueuePanics(t *testing.T) {
	q := NewQueue()
	assert.Panics(t, func() { q.Done() })
}
