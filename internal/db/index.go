package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/fsindex/internal/models"
)

// Row is a stored index row. The record id mirrors object_id so key
// conflicts resolve at the storage layer.
type Row struct {
	ID       surrealmodels.RecordID `json:"id"`
	ObjectID string                 `json:"object_id"`
	Filename string                 `json:"filename"`
	FullPath string                 `json:"full_path"`
	RootPath string                 `json:"root_path"`
}

// Index gives access to one file index table. It satisfies the crawl
// pipeline's Store interface.
type Index struct {
	c            *Client
	table        string
	dropExisting bool
}

// NewIndex binds a client to an index table. With dropExisting set,
// Prepare recreates the table from scratch.
func NewIndex(c *Client, table string, dropExisting bool) *Index {
	if table == "" {
		table = DefaultTable
	}
	return &Index{c: c, table: table, dropExisting: dropExisting}
}

// Table returns the bound table name.
func (i *Index) Table() string {
	return i.table
}

// Prepare creates the table and its object_id index if absent, dropping
// the existing table first when configured. Safe to call repeatedly.
func (i *Index) Prepare(ctx context.Context) error {
	if i.dropExisting {
		i.c.logger.Info("dropping existing index table", "table", i.table)
		if _, err := surrealdb.Query[any](ctx, i.c.db, fmt.Sprintf("REMOVE TABLE IF EXISTS %s", i.table), nil); err != nil {
			return fmt.Errorf("drop table %s: %w", i.table, wrapQueryError(err))
		}
	}
	if _, err := surrealdb.Query[any](ctx, i.c.db, schemaSQL(i.table), nil); err != nil {
		return fmt.Errorf("create table %s: %w", i.table, wrapQueryError(err))
	}
	return nil
}

// InsertRecords bulk-inserts records, silently skipping rows whose object
// ID is already present. The first committed write for a key wins; later
// conflicting writers are no-ops, not errors.
func (i *Index) InsertRecords(ctx context.Context, records []models.FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]map[string]any, len(records))
	for n, r := range records {
		rows[n] = map[string]any{
			"id":        r.ObjectID,
			"object_id": r.ObjectID,
			"filename":  r.Filename,
			"full_path": r.FullPath,
			"root_path": r.RootPath,
		}
	}

	sql := fmt.Sprintf("INSERT IGNORE INTO %s $records", i.table)
	if _, err := surrealdb.Query[any](ctx, i.c.db, sql, map[string]any{"records": rows}); err != nil {
		return fmt.Errorf("insert %d records: %w", len(records), wrapQueryError(err))
	}
	return nil
}

// UpsertRecords bulk-writes records, overwriting rows whose object ID is
// already present. The last write for a key wins, so re-running a load
// with corrected data refreshes stale rows.
func (i *Index) UpsertRecords(ctx context.Context, records []models.FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]map[string]any, len(records))
	for n, r := range records {
		rows[n] = map[string]any{
			"id":        r.ObjectID,
			"object_id": r.ObjectID,
			"filename":  r.Filename,
			"full_path": r.FullPath,
			"root_path": r.RootPath,
		}
	}

	sql := fmt.Sprintf(`
		INSERT INTO %s $records ON DUPLICATE KEY UPDATE
			filename = $input.filename,
			full_path = $input.full_path,
			root_path = $input.root_path
	`, i.table)
	if _, err := surrealdb.Query[any](ctx, i.c.db, sql, map[string]any{"records": rows}); err != nil {
		return fmt.Errorf("upsert %d records: %w", len(records), wrapQueryError(err))
	}
	return nil
}

// Count returns the number of rows in the index table.
func (i *Index) Count(ctx context.Context) (int, error) {
	type countRow struct {
		Count int `json:"count"`
	}

	sql := fmt.Sprintf("SELECT count() AS count FROM %s GROUP ALL", i.table)
	results, err := surrealdb.Query[[]countRow](ctx, i.c.db, sql, nil)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// Get fetches a row by object ID. Returns ErrNotFound when absent.
func (i *Index) Get(ctx context.Context, objectID string) (*Row, error) {
	results, err := surrealdb.Query[[]Row](ctx, i.c.db, `
		SELECT * FROM type::thing($tb, $id)
	`, map[string]any{"tb": i.table, "id": objectID})
	if err != nil {
		return nil, fmt.Errorf("get row: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}
