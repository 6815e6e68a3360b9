package db

import "fmt"

// DefaultTable is the index table name when none is configured.
const DefaultTable = "file_index"

// schemaSQL returns the idempotent DDL for one index table. The UNIQUE
// index on object_id is redundant with the record id (which mirrors the
// object ID) but kept explicit so lookups by field stay indexed.
func schemaSQL(table string) string {
	return fmt.Sprintf(`
    DEFINE TABLE IF NOT EXISTS %[1]s SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS object_id ON %[1]s TYPE string;
    DEFINE FIELD IF NOT EXISTS filename ON %[1]s TYPE string;
    DEFINE FIELD IF NOT EXISTS root_path ON %[1]s TYPE string;
    DEFINE FIELD IF NOT EXISTS full_path ON %[1]s TYPE string;
    DEFINE INDEX IF NOT EXISTS idx_object_id ON %[1]s FIELDS object_id UNIQUE;
`, table)
}
