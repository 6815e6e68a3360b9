// Package models defines data structures for the file index.
package models

// FileRecord describes one discovered file, keyed by its derived object ID.
// The object ID is either the bare file name or the substring an extractor
// pulled out of it.
type FileRecord struct {
	ObjectID string `json:"object_id"`
	Filename string `json:"filename"`
	FullPath string `json:"full_path"`
	RootPath string `json:"root_path"`
}
