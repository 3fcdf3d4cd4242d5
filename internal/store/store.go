// Package store is the terminal's local durable store: named record
// collections over a single SQLite file, surviving process restarts.
// Records are JSON documents; secondary indexes are expression indexes
// over json_extract, so a collection's document shape stays free-form.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// StorageError wraps any underlying storage failure (quota, corruption,
// locked file). The store never retries internally.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func fail(op, collection string, err error) error {
	return &StorageError{Op: op, Collection: collection, Err: err}
}

// Index declares a non-unique secondary index over one document field.
type Index struct {
	Name     string
	JSONPath string // e.g. "$.barcode"
}

// Collection declares one named record collection. AutoKey collections get
// integer keys assigned by the store, monotonically increasing and never
// reused within a store lifetime; keyed collections extract a string key
// from the document at KeyPath.
type Collection struct {
	Name    string
	AutoKey bool
	KeyPath string // document field holding the primary key
	Indexes []Index
}

// MigrateFunc runs inside the schema transaction when the on-disk version is
// older than the requested one.
type MigrateFunc func(ctx context.Context, tx *sql.Tx, from, to int) error

// Store is safe for use from multiple goroutines; SQLite is opened with a
// single connection so writes serialize at the pool.
type Store struct {
	db   *sql.DB
	cols map[string]Collection
}

// Open opens (creating if needed) the store at dataDir with the given schema.
func Open(ctx context.Context, dataDir string, version int, cols []Collection, migrate MigrateFunc) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fail("open", "", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "terminal.db"))
	if err != nil {
		return nil, fail("open", "", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fail("open", "", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fail("open", "", err)
	}

	s := &Store{db: db, cols: make(map[string]Collection, len(cols))}
	for _, c := range cols {
		s.cols[c.Name] = c
	}

	if err := s.initSchema(ctx, version, cols, migrate); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context, version int, cols []Collection, migrate MigrateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail("init", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (
  id      INTEGER PRIMARY KEY CHECK (id = 1),
  version INTEGER NOT NULL
);`); err != nil {
		return fail("init", "", err)
	}

	current := 0
	err = tx.QueryRowContext(ctx, `SELECT version FROM schema_version WHERE id = 1`).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return fail("init", "", err)
	}

	if current > 0 && current < version && migrate != nil {
		if err := migrate(ctx, tx, current, version); err != nil {
			return fail("migrate", "", err)
		}
	}

	for _, c := range cols {
		keyType := "TEXT PRIMARY KEY"
		if c.AutoKey {
			keyType = "INTEGER PRIMARY KEY AUTOINCREMENT"
		}
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (k %s, doc TEXT NOT NULL)`, c.Name, keyType)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fail("init", c.Name, err)
		}
		for _, idx := range c.Indexes {
			ddl := fmt.Sprintf(
				`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (json_extract(doc, '%s'))`,
				c.Name, idx.Name, c.Name, idx.JSONPath,
			)
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return fail("init", c.Name, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO schema_version (id, version) VALUES (1, ?)
ON CONFLICT (id) DO UPDATE SET version = excluded.version;`, version); err != nil {
		return fail("init", "", err)
	}

	if err := tx.Commit(); err != nil {
		return fail("init", "", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// putOne holds the shared insert-or-overwrite logic so Put and PutMany stay
// in lockstep. Returns the assigned key for auto-keyed collections.
func (s *Store) putOne(ctx context.Context, e execer, c Collection, doc any) (int64, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return 0, fmt.Errorf("record must be a JSON object: %w", err)
	}

	if c.AutoKey {
		var key int64
		if kr, ok := fields[c.KeyPath]; ok {
			_ = json.Unmarshal(kr, &key)
		}
		if key > 0 {
			// overwrite an existing auto-keyed record in place
			q := fmt.Sprintf(`INSERT INTO %s (k, doc) VALUES (?, ?)
ON CONFLICT (k) DO UPDATE SET doc = excluded.doc`, c.Name)
			_, err := e.ExecContext(ctx, q, key, string(raw))
			return key, err
		}
		res, err := e.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (doc) VALUES (?)`, c.Name), string(raw))
		if err != nil {
			return 0, err
		}
		key, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
		// write the assigned key back into the stored document
		q := fmt.Sprintf(`UPDATE %s SET doc = json_set(doc, '$.%s', k) WHERE k = ?`, c.Name, c.KeyPath)
		if _, err := e.ExecContext(ctx, q, key); err != nil {
			return 0, err
		}
		return key, nil
	}

	kr, ok := fields[c.KeyPath]
	if !ok {
		return 0, fmt.Errorf("record is missing key field %q", c.KeyPath)
	}
	var key string
	if err := json.Unmarshal(kr, &key); err != nil || key == "" {
		return 0, fmt.Errorf("record key field %q must be a non-empty string", c.KeyPath)
	}
	q := fmt.Sprintf(`INSERT INTO %s (k, doc) VALUES (?, ?)
ON CONFLICT (k) DO UPDATE SET doc = excluded.doc`, c.Name)
	_, err = e.ExecContext(ctx, q, key, string(raw))
	return 0, err
}

// Put inserts or overwrites one record. For auto-keyed collections the
// assigned key is returned; for keyed collections the key comes from the
// document and the returned int is zero.
func (s *Store) Put(ctx context.Context, collection string, doc any) (int64, error) {
	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	key, err := s.putOne(ctx, s.db, c, doc)
	if err != nil {
		return 0, fail("put", collection, err)
	}
	return key, nil
}

// PutMany writes all records in one transaction: either every record becomes
// visible or none does.
func (s *Store) PutMany(ctx context.Context, collection string, docs []any) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail("putMany", collection, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, doc := range docs {
		if _, err := s.putOne(ctx, tx, c, doc); err != nil {
			return fail("putMany", collection, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fail("putMany", collection, err)
	}
	return nil
}

// Replace swaps the collection's contents for docs in one transaction:
// readers see either the old set or the new one, never the gap between.
func (s *Store) Replace(ctx context.Context, collection string, docs []any) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail("replace", collection, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, c.Name)); err != nil {
		return fail("replace", collection, err)
	}
	for _, doc := range docs {
		if _, err := s.putOne(ctx, tx, c, doc); err != nil {
			return fail("replace", collection, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fail("replace", collection, err)
	}
	return nil
}

// Get decodes the record with the given key into out. Absence is not an
// error: the first return is false and out is untouched.
func (s *Store) Get(ctx context.Context, collection string, key any, out any) (bool, error) {
	c, err := s.collection(collection)
	if err != nil {
		return false, err
	}
	var raw string
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT doc FROM %s WHERE k = ?`, c.Name), key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fail("get", collection, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fail("get", collection, err)
	}
	return true, nil
}

// GetAll returns every record in the collection. Order is unspecified.
func (s *Store) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	return s.queryDocs(ctx, collection, fmt.Sprintf(`SELECT doc FROM %s`, c.Name))
}

// GetByIndex returns all records whose indexed field equals value. The index
// must have been declared for the collection.
func (s *Store) GetByIndex(ctx context.Context, collection, indexName string, value any) ([]json.RawMessage, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	var path string
	for _, idx := range c.Indexes {
		if idx.Name == indexName {
			path = idx.JSONPath
			break
		}
	}
	if path == "" {
		return nil, fail("getByIndex", collection, fmt.Errorf("unknown index %q", indexName))
	}
	// the literal path keeps the expression index usable by the planner
	q := fmt.Sprintf(`SELECT doc FROM %s WHERE json_extract(doc, '%s') = ?`, c.Name, path)
	return s.queryDocs(ctx, collection, q, value)
}

func (s *Store) queryDocs(ctx context.Context, collection, q string, args ...any) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fail("query", collection, err)
	}
	defer rows.Close()

	out := make([]json.RawMessage, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fail("query", collection, err)
		}
		out = append(out, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fail("query", collection, err)
	}
	return out, nil
}

// Delete removes a record. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, collection string, key any) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE k = ?`, c.Name), key); err != nil {
		return fail("delete", collection, err)
	}
	return nil
}

// Clear removes every record in the collection. The AUTOINCREMENT sequence
// is kept, so auto keys are never reused even across a clear.
func (s *Store) Clear(ctx context.Context, collection string) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, c.Name)); err != nil {
		return fail("clear", collection, err)
	}
	return nil
}

func (s *Store) collection(name string) (Collection, error) {
	c, ok := s.cols[name]
	if !ok {
		return Collection{}, fail("lookup", name, fmt.Errorf("unknown collection"))
	}
	return c, nil
}

// DecodeAll unmarshals a document slice into typed records.
func DecodeAll[T any](docs []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
