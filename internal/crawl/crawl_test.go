package crawl

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fsindex/internal/metrics"
	"github.com/raphaelgruber/fsindex/internal/models"
	"github.com/raphaelgruber/fsindex/internal/scanner"
)

// fakeStore is an in-memory Store with the same conflict policy as the
// real one: the first committed write for an object ID wins.
type fakeStore struct {
	mu        sync.Mutex
	rows      map[string]models.FileRecord
	prepared  int
	inserts   int
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]models.FileRecord)}
}

func (s *fakeStore) Prepare(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepared++
	return nil
}

func (s *fakeStore) InsertRecords(_ context.Context, records []models.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserts++
	for _, r := range records {
		if _, exists := s.rows[r.ObjectID]; !exists {
			s.rows[r.ObjectID] = r
		}
	}
	return nil
}

func (s *fakeStore) keys() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make(map[string]bool, len(s.rows))
	for k := range s.rows {
		keys[k] = true
	}
	return keys
}

// makeTree creates files (relative paths) under a fresh temp root,
// creating parent directories as needed.
func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	return root
}

// countFilesIndependent walks the tree without the pipeline, as a ground
// truth for completeness checks.
func countFilesIndependent(t *testing.T, root string) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}

func runCrawl(t *testing.T, store Store, opts Options) error {
	t.Helper()
	return New(store, opts, metrics.NewCollector(), nil).Run(context.Background())
}

func TestCrawlCompleteness(t *testing.T) {
	root := makeTree(t,
		"a.txt", "b.txt",
		"d1/c.txt", "d1/d2/d.txt", "d1/d2/d3/e.txt",
		"other/f.txt",
	)

	for _, workers := range []int{1, 8} {
		store := newFakeStore()
		require.NoError(t, runCrawl(t, store, Options{Root: root, Workers: workers, BatchSize: 2}))

		assert.Len(t, store.rows, 6, "workers=%d", workers)
		assert.Equal(t, map[string]bool{
			"a.txt": true, "b.txt": true, "c.txt": true,
			"d.txt": true, "e.txt": true, "f.txt": true,
		}, store.keys(), "workers=%d: final key set must not depend on pool size", workers)
		assert.Equal(t, 1, store.prepared, "table prepared exactly once")
	}
}

func TestCrawlDeepNestingJoinCorrectness(t *testing.T) {
	// Progressive discovery: every directory is found by scanning its
	// parent mid-run. If the barrier released early, deep leaves would
	// be missing.
	files := make([]string, 0, 64)
	dir := ""
	for depth := 0; depth < 16; depth++ {
		files = append(files, dir+"f"+string(rune('a'+depth))+".dat")
		dir += "lvl/"
	}
	root := makeTree(t, files...)

	store := newFakeStore()
	require.NoError(t, runCrawl(t, store, Options{Root: root, Workers: 4, BatchSize: 3}))

	assert.Len(t, store.rows, countFilesIndependent(t, root))
}

func TestCrawlCollisionPolicy(t *testing.T) {
	root := makeTree(t, "d1/same.txt", "d2/same.txt")

	store := newFakeStore()
	require.NoError(t, runCrawl(t, store, Options{Root: root, Workers: 4}))

	require.Len(t, store.rows, 1, "colliding object IDs collapse to one row")
	row := store.rows["same.txt"]
	assert.Equal(t, "same.txt", row.Filename)
	assert.Contains(t, []string{
		filepath.Join(root, "d1", "same.txt"),
		filepath.Join(root, "d2", "same.txt"),
	}, row.FullPath, "either source may win, but one must")
}

func TestCrawlIdempotence(t *testing.T) {
	root := makeTree(t, "a.txt", "sub/b.txt")

	store := newFakeStore()
	require.NoError(t, runCrawl(t, store, Options{Root: root, Workers: 2}))
	first := store.keys()

	require.NoError(t, runCrawl(t, store, Options{Root: root, Workers: 2}))
	assert.Equal(t, first, store.keys(), "second run over an unchanged tree changes nothing")
	assert.Len(t, store.rows, 2)
}

func TestCrawlPatternFiltering(t *testing.T) {
	root := makeTree(t, "a.txt", "b.log", "sub/c.txt")

	ex, err := scanner.NewRegexpExtractor(`\.txt$`)
	require.NoError(t, err)

	store := newFakeStore()
	require.NoError(t, runCrawl(t, store, Options{Root: root, Workers: 4, Extractor: ex}))

	// Both names match on ".txt", so the extracted IDs collide by design
	// of the example pattern; what matters is that b.log never appears.
	for id := range store.rows {
		assert.Equal(t, ".txt", id)
	}
	for _, r := range store.rows {
		assert.NotEqual(t, "b.log", r.Filename)
	}
}

func TestCrawlEmptyRoot(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, runCrawl(t, store, Options{Root: t.TempDir(), Workers: 4}))
	assert.Empty(t, store.rows)
	assert.Equal(t, 1, store.prepared)
}

func TestCrawlFaultIsolation(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root: permission errors cannot be provoked")
	}

	root := makeTree(t, "ok.txt", "sealed/hidden.txt", "sibling/also.txt")
	sealed := filepath.Join(root, "sealed")
	require.NoError(t, os.Chmod(sealed, 0o000))
	t.Cleanup(func() { _ = os.Chmod(sealed, 0o755) })

	store := newFakeStore()
	collector := metrics.NewCollector()
	err := New(store, Options{Root: root, Workers: 4}, collector, nil).Run(context.Background())
	require.NoError(t, err, "an unreadable subtree must not abort the run")

	assert.Equal(t, map[string]bool{"ok.txt": true, "also.txt": true}, store.keys(),
		"siblings and ancestors of the failed directory still get indexed")
	assert.Equal(t, int64(1), collector.Snapshot().ScanErrors)
}

func TestCrawlFlushFailureIsFatal(t *testing.T) {
	root := makeTree(t, "a.txt", "b.txt", "c.txt")

	store := newFakeStore()
	store.insertErr = errors.New("connection reset")

	err := runCrawl(t, store, Options{Root: root, Workers: 2, BatchSize: 1})
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
}

func TestCrawlBatchingFlushCount(t *testing.T) {
	// One file per directory so the single worker delivers records in
	// five separate messages and the flush points are deterministic.
	root := makeTree(t, "d1/a.txt", "d2/b.txt", "d3/c.txt", "d4/d.txt", "d5/e.txt")

	store := newFakeStore()
	require.NoError(t, runCrawl(t, store, Options{Root: root, Workers: 1, BatchSize: 2}))

	assert.Len(t, store.rows, 5)
	// Five records with threshold two: two full batches plus the final
	// shutdown flush.
	assert.Equal(t, 3, store.inserts)
}
