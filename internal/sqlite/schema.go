// Package sqlite implements the SQLite query index for the object store.
// The JSON backing file remains the source of truth; the database is a
// disposable cache rebuilt from the registry on every reload and persist.
package sqlite

// Schema DDL for the objects table.
const (
	createObjects = `CREATE TABLE objects (
    key TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    id TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    body TEXT NOT NULL
);`

	idxObjectsType = `CREATE INDEX idx_objects_type ON objects(type);`
)

// schemaDDL lists all statements run when the index is opened.
var schemaDDL = []string{
	createObjects,
	idxObjectsType,
}
