// Package docstore defines the schemaless document store the site reads and
// writes. Collections map store-generated identifiers to loosely typed field
// maps; typed decoding happens in the persistence package.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("docstore: not found")
	// ErrClosed is returned by stores that have been closed.
	ErrClosed = errors.New("docstore: closed")
	// ErrTransactionsUnsupported is returned by RunTransaction when the
	// deployment behind the store cannot run multi-document transactions.
	ErrTransactionsUnsupported = errors.New("docstore: transactions unsupported")
)

// Document is a single record of a collection.
type Document struct {
	ID   string
	Data map[string]any
}

// Filter selects documents whose Field equals Value.
type Filter struct {
	Field string
	Value any
}

// Snapshot is the full content of a collection at a point in time.
type Snapshot struct {
	Collection string
	Documents  []Document
}

type serverTimestamp struct{}

// ServerTimestamp may be used as a field value in written data; the store
// replaces it with its own clock reading.
var ServerTimestamp any = serverTimestamp{}

// Reader groups the read operations shared by stores and transactions.
type Reader interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Where(ctx context.Context, collection string, filter Filter) ([]Document, error)
}

// Writer groups the write operations shared by stores and transactions.
type Writer interface {
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}

// Store is the remote document database.
type Store interface {
	Reader
	Writer
	List(ctx context.Context, collection string) ([]Document, error)
	Set(ctx context.Context, collection, id string, data map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Watch(ctx context.Context, collection string) (<-chan Snapshot, error)
	Close() error
}

// Tx is the view of the store inside a transaction.
type Tx interface {
	Reader
	Writer
}

// Transactor is implemented by stores able to commit several writes atomically.
type Transactor interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// ResolveTimestamps returns a deep copy of data with ServerTimestamp values
// replaced by now.
func ResolveTimestamps(data map[string]any, now time.Time) map[string]any {
	out := CloneMap(data)
	for key, value := range out {
		if _, ok := value.(serverTimestamp); ok {
			out[key] = now
		}
	}
	return out
}

// CloneMap deep copies nested maps and slices so callers never share state
// with a store.
func CloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return CloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = cloneValue(v[i])
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = CloneMap(v[i])
		}
		return out
	default:
		return v
	}
}

// CloneDocument deep copies a document.
func CloneDocument(doc Document) Document {
	return Document{ID: doc.ID, Data: CloneMap(doc.Data)}
}

// Matches reports whether the document satisfies the equality filter.
func Matches(doc Document, filter Filter) bool {
	value, ok := doc.Data[filter.Field]
	if !ok {
		return false
	}
	return equalValues(value, filter.Value)
}

func equalValues(a, b any) bool {
	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
