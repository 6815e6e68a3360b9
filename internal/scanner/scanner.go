// Package scanner lists directories and derives object identifiers from
// file names.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/raphaelgruber/fsindex/internal/models"
)

// Extractor derives an object identifier from a file name. Returning false
// drops the file from indexing entirely.
type Extractor interface {
	Extract(filename string) (string, bool)
}

// RegexpExtractor extracts the first substring of the file name matching a
// pattern. Files whose names don't match are excluded.
type RegexpExtractor struct {
	re *regexp.Regexp
}

// NewRegexpExtractor compiles pattern into an extractor.
func NewRegexpExtractor(pattern string) (*RegexpExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile filename pattern: %w", err)
	}
	return &RegexpExtractor{re: re}, nil
}

// Extract returns the matched portion of filename.
func (e *RegexpExtractor) Extract(filename string) (string, bool) {
	loc := e.re.FindStringIndex(filename)
	if loc == nil {
		return "", false
	}
	return filename[loc[0]:loc[1]], true
}

// Scan lists the direct children of dir (non-recursive), returning an index
// record for every matching file and the paths of all subdirectories.
// Symlinked directories are never returned, so a crawl over the results
// stays acyclic as long as the real hierarchy is. With a nil extractor the
// object ID is the bare file name.
//
// The listing error is returned raw; callers own the failure policy
// (the crawler treats an unreadable directory as empty and moves on).
func Scan(dir, root string, ex Extractor) ([]models.FileRecord, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var records []models.FileRecord
	var subdirs []string
	for _, entry := range entries {
		fullPath := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			// IsDir is false for symlinks, so links to directories fall
			// through to the file branch below and get resolved there.
			subdirs = append(subdirs, fullPath)
			continue
		}

		if !regularFile(entry, fullPath) {
			continue
		}

		objectID := entry.Name()
		if ex != nil {
			extracted, ok := ex.Extract(entry.Name())
			if !ok {
				continue
			}
			objectID = extracted
		}

		records = append(records, models.FileRecord{
			ObjectID: objectID,
			Filename: entry.Name(),
			FullPath: fullPath,
			RootPath: root,
		})
	}
	return records, subdirs, nil
}

// regularFile reports whether the entry is a regular file, following one
// level of symlink. Symlinks to directories (and broken links) are skipped.
func regularFile(entry os.DirEntry, fullPath string) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
