// Package sqlite stores documents as JSON rows in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/example/student-affairs/internal/docstore"
)

//go:embed schema.sql
var schema string

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store implements docstore.Store and docstore.Transactor on SQLite.
type Store struct {
	db          *sql.DB
	now         func() time.Time
	idGenerator func() string
	broadcaster *docstore.Broadcaster

	// writeMu orders a write and the snapshot published after it.
	writeMu sync.Mutex
}

// Open connects to the database identified by dsn.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and avoids
	// SQLITE_BUSY between concurrent writers.
	db.SetMaxOpenConns(1)

	return &Store{
		db:          db,
		now:         time.Now,
		idGenerator: func() string { return uuid.NewString() },
		broadcaster: docstore.NewBroadcaster(),
	}, nil
}

// SetClock overrides the clock used for ServerTimestamp.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SetIDGenerator overrides the generator used by Add.
func (s *Store) SetIDGenerator(next func() string) {
	if next != nil {
		s.idGenerator = next
	}
}

// Migrate creates the documents table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes watchers and the database.
func (s *Store) Close() error {
	s.broadcaster.CloseAll()
	return s.db.Close()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get retrieves a document by id.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	return get(ctx, s.db, collection, id)
}

// List returns every document of the collection in insertion order.
func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	return list(ctx, s.db, collection)
}

// Where returns the documents whose field equals the filter value.
func (s *Store) Where(ctx context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	return where(ctx, s.db, collection, filter)
}

// Add inserts a document under a generated id.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id := s.idGenerator()
	if err := insert(ctx, s.db, collection, id, docstore.ResolveTimestamps(data, s.now().UTC())); err != nil {
		return "", err
	}
	s.publish(ctx, collection)
	return id, nil
}

// Set creates or replaces a document under a caller supplied id.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if id == "" {
		return fmt.Errorf("sqlite: empty document id")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	payload, err := json.Marshal(docstore.ResolveTimestamps(data, s.now().UTC()))
	if err != nil {
		return fmt.Errorf("sqlite: encode document: %w", err)
	}
	const query = `
		INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data`
	if _, err := s.db.ExecContext(ctx, query, collection, id, string(payload)); err != nil {
		return fmt.Errorf("sqlite: set %s/%s: %w", collection, id, err)
	}
	s.publish(ctx, collection)
	return nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return update(ctx, tx, collection, id, docstore.ResolveTimestamps(fields, s.now().UTC()))
	})
	if err != nil {
		return err
	}
	s.publish(ctx, collection)
	return nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete %s/%s: %w", collection, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete %s/%s: %w", collection, id, err)
	}
	if affected == 0 {
		return docstore.ErrNotFound
	}
	s.publish(ctx, collection)
	return nil
}

// Watch streams snapshots of the collection until ctx is done. Only writes
// made through this Store are observed.
func (s *Store) Watch(ctx context.Context, collection string) (<-chan docstore.Snapshot, error) {
	docs, err := list(ctx, s.db, collection)
	if err != nil {
		return nil, err
	}
	return s.broadcaster.Subscribe(ctx, collection, docstore.Snapshot{Collection: collection, Documents: docs}), nil
}

// RunTransaction executes fn inside a database transaction.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	touched := make(map[string]struct{})
	err := s.withTx(ctx, func(sqlTx *sql.Tx) error {
		return fn(ctx, &storeTx{store: s, tx: sqlTx, touched: touched})
	})
	if err != nil {
		return err
	}
	for collection := range touched {
		s.publish(ctx, collection)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}

func (s *Store) publish(ctx context.Context, collection string) {
	if !s.broadcaster.HasWatchers(collection) {
		return
	}
	docs, err := list(context.WithoutCancel(ctx), s.db, collection)
	if err != nil {
		return
	}
	s.broadcaster.Publish(docstore.Snapshot{Collection: collection, Documents: docs})
}

type storeTx struct {
	store   *Store
	tx      *sql.Tx
	touched map[string]struct{}
}

func (t *storeTx) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	return get(ctx, t.tx, collection, id)
}

func (t *storeTx) Where(ctx context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	return where(ctx, t.tx, collection, filter)
}

func (t *storeTx) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := t.store.idGenerator()
	if err := insert(ctx, t.tx, collection, id, docstore.ResolveTimestamps(data, t.store.now().UTC())); err != nil {
		return "", err
	}
	t.touched[collection] = struct{}{}
	return id, nil
}

func (t *storeTx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := update(ctx, t.tx, collection, id, docstore.ResolveTimestamps(fields, t.store.now().UTC())); err != nil {
		return err
	}
	t.touched[collection] = struct{}{}
	return nil
}

func get(ctx context.Context, q queryer, collection, id string) (docstore.Document, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, fmt.Errorf("sqlite: get %s/%s: %w", collection, id, err)
	}
	data, err := decode(raw)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("sqlite: decode %s/%s: %w", collection, id, err)
	}
	return docstore.Document{ID: id, Data: data}, nil
}

func list(ctx context.Context, q queryer, collection string) ([]docstore.Document, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, data FROM documents WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list %s: %w", collection, err)
	}
	return scanDocuments(rows)
}

func where(ctx context.Context, q queryer, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	if !fieldPattern.MatchString(filter.Field) {
		return nil, fmt.Errorf("sqlite: invalid filter field %q", filter.Field)
	}
	value := filter.Value
	if b, ok := value.(bool); ok {
		// json_extract reports JSON booleans as 0/1.
		if b {
			value = 1
		} else {
			value = 0
		}
	}
	const query = `
		SELECT id, data FROM documents
		WHERE collection = ? AND json_extract(data, ?) = ?
		ORDER BY seq`
	rows, err := q.QueryContext(ctx, query, collection, "$."+filter.Field, value)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s: %w", collection, err)
	}
	return scanDocuments(rows)
}

func insert(ctx context.Context, q queryer, collection, id string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sqlite: encode document: %w", err)
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)`, collection, id, string(payload)); err != nil {
		return fmt.Errorf("sqlite: insert %s/%s: %w", collection, id, err)
	}
	return nil
}

func update(ctx context.Context, q queryer, collection, id string, fields map[string]any) error {
	current, err := get(ctx, q, collection, id)
	if err != nil {
		return err
	}
	merged := current.Data
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	for key, value := range fields {
		merged[key] = value
	}
	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("sqlite: encode document: %w", err)
	}
	if _, err := q.ExecContext(ctx, `UPDATE documents SET data = ? WHERE collection = ? AND id = ?`, string(payload), collection, id); err != nil {
		return fmt.Errorf("sqlite: update %s/%s: %w", collection, id, err)
	}
	return nil
}

func scanDocuments(rows *sql.Rows) ([]docstore.Document, error) {
	defer rows.Close()

	docs := make([]docstore.Document, 0)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("sqlite: scan document: %w", err)
		}
		data, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("sqlite: decode %s: %w", id, err)
		}
		docs = append(docs, docstore.Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate documents: %w", err)
	}
	return docs, nil
}

func decode(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}
