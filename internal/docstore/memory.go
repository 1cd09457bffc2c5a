package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used for development and tests.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]memoryEntry
	seq         uint64
	closed      bool

	now         func() time.Time
	idGenerator func() string
	broadcaster *Broadcaster

	// FailOn makes the named operation ("get", "list", "where", "add",
	// "update", "set", "delete") return the error. Used to simulate
	// transport failures.
	failMu sync.RWMutex
	failOn map[string]error
}

type memoryEntry struct {
	seq  uint64
	data map[string]any
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the clock used for ServerTimestamp.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides the document id generator.
func WithIDGenerator(next func() string) MemoryOption {
	return func(m *Memory) {
		if next != nil {
			m.idGenerator = next
		}
	}
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		collections: make(map[string]map[string]memoryEntry),
		now:         time.Now,
		idGenerator: func() string { return uuid.NewString() },
		broadcaster: NewBroadcaster(),
		failOn:      make(map[string]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FailOn makes every subsequent call of operation return err. A nil err clears
// the failure.
func (m *Memory) FailOn(operation string, err error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	if err == nil {
		delete(m.failOn, operation)
		return
	}
	m.failOn[operation] = err
}

func (m *Memory) failure(operation string) error {
	m.failMu.RLock()
	defer m.failMu.RUnlock()
	return m.failOn[operation]
}

// Get retrieves a document by id.
func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := m.failure("get"); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Document{}, ErrClosed
	}
	return m.getLocked(collection, id)
}

func (m *Memory) getLocked(collection, id string) (Document, error) {
	entry, ok := m.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: CloneMap(entry.data)}, nil
}

// List returns every document of the collection in insertion order.
func (m *Memory) List(ctx context.Context, collection string) ([]Document, error) {
	if err := m.failure("list"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.listLocked(collection), nil
}

func (m *Memory) listLocked(collection string) []Document {
	entries := m.collections[collection]
	type ordered struct {
		seq uint64
		doc Document
	}
	rows := make([]ordered, 0, len(entries))
	for id, entry := range entries {
		rows = append(rows, ordered{seq: entry.seq, doc: Document{ID: id, Data: CloneMap(entry.data)}})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.doc)
	}
	return docs
}

// Where returns the documents matching filter in insertion order.
func (m *Memory) Where(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := m.failure("where"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.whereLocked(collection, filter), nil
}

func (m *Memory) whereLocked(collection string, filter Filter) []Document {
	all := m.listLocked(collection)
	matched := make([]Document, 0, len(all))
	for _, doc := range all {
		if Matches(doc, filter) {
			matched = append(matched, doc)
		}
	}
	return matched
}

// Add inserts a document under a generated id.
func (m *Memory) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := m.failure("add"); err != nil {
		return "", err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	id := m.addLocked(collection, data)
	m.publishLocked(collection)
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) addLocked(collection string, data map[string]any) string {
	id := m.idGenerator()
	for {
		if _, exists := m.collections[collection][id]; !exists {
			break
		}
		id = m.idGenerator()
	}
	m.putLocked(collection, id, ResolveTimestamps(data, m.now().UTC()))
	return id
}

func (m *Memory) putLocked(collection, id string, data map[string]any) {
	set, ok := m.collections[collection]
	if !ok {
		set = make(map[string]memoryEntry)
		m.collections[collection] = set
	}
	if existing, ok := set[id]; ok {
		set[id] = memoryEntry{seq: existing.seq, data: data}
		return
	}
	m.seq++
	set[id] = memoryEntry{seq: m.seq, data: data}
}

// Set creates or replaces a document under a caller supplied id.
func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := m.failure("set"); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("docstore: empty document id")
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.putLocked(collection, id, ResolveTimestamps(data, m.now().UTC()))
	m.publishLocked(collection)
	m.mu.Unlock()
	return nil
}

// Update merges fields into an existing document.
func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := m.failure("update"); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if err := m.updateLocked(collection, id, fields); err != nil {
		m.mu.Unlock()
		return err
	}
	m.publishLocked(collection)
	m.mu.Unlock()
	return nil
}

func (m *Memory) updateLocked(collection, id string, fields map[string]any) error {
	entry, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	merged := CloneMap(entry.data)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	for key, value := range ResolveTimestamps(fields, m.now().UTC()) {
		merged[key] = value
	}
	m.collections[collection][id] = memoryEntry{seq: entry.seq, data: merged}
	return nil
}

// Delete removes a document.
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := m.failure("delete"); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, ok := m.collections[collection][id]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.collections[collection], id)
	m.publishLocked(collection)
	m.mu.Unlock()
	return nil
}

// Watch streams snapshots of the collection until ctx is done.
func (m *Memory) Watch(ctx context.Context, collection string) (<-chan Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.broadcaster.Subscribe(ctx, collection, m.snapshotLocked(collection)), nil
}

func (m *Memory) publishLocked(collection string) {
	if !m.broadcaster.HasWatchers(collection) {
		return
	}
	m.broadcaster.Publish(m.snapshotLocked(collection))
}

func (m *Memory) snapshotLocked(collection string) Snapshot {
	return Snapshot{Collection: collection, Documents: m.listLocked(collection)}
}

// RunTransaction executes fn with exclusive access to the store. Writes are
// applied only when fn returns nil.
func (m *Memory) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	tx := &memoryTx{store: m, backup: make(map[string]map[string]memoryEntry), seq: m.seq}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		m.mu.Unlock()
		return err
	}

	for collection := range tx.backup {
		m.publishLocked(collection)
	}
	m.mu.Unlock()
	return nil
}

// Close releases watchers; later calls fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.broadcaster.CloseAll()
	return nil
}

type memoryTx struct {
	store  *Memory
	backup map[string]map[string]memoryEntry
	seq    uint64
}

func (tx *memoryTx) touch(collection string) {
	if _, ok := tx.backup[collection]; ok {
		return
	}
	current := tx.store.collections[collection]
	copied := make(map[string]memoryEntry, len(current))
	for id, entry := range current {
		copied[id] = entry
	}
	tx.backup[collection] = copied
}

func (tx *memoryTx) rollback() {
	for collection, entries := range tx.backup {
		tx.store.collections[collection] = entries
	}
	tx.store.seq = tx.seq
}

func (tx *memoryTx) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := tx.store.failure("get"); err != nil {
		return Document{}, err
	}
	return tx.store.getLocked(collection, id)
}

func (tx *memoryTx) Where(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := tx.store.failure("where"); err != nil {
		return nil, err
	}
	return tx.store.whereLocked(collection, filter), nil
}

func (tx *memoryTx) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := tx.store.failure("add"); err != nil {
		return "", err
	}
	tx.touch(collection)
	return tx.store.addLocked(collection, data), nil
}

func (tx *memoryTx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := tx.store.failure("update"); err != nil {
		return err
	}
	tx.touch(collection)
	return tx.store.updateLocked(collection, id, fields)
}
