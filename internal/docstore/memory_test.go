package docstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/student-affairs/internal/docstore"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("doc-%d", n)
	}
}

func newTestMemory(t *testing.T, now time.Time) *docstore.Memory {
	t.Helper()
	store := docstore.NewMemory(
		docstore.WithClock(func() time.Time { return now }),
		docstore.WithIDGenerator(sequentialIDs()),
	)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ids(docs []docstore.Document) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.ID)
	}
	return out
}

func TestMemoryListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestMemory(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	for _, name := range []string{"Chess", "Art", "Robotics"} {
		if _, err := store.Add(ctx, "clubs", map[string]any{"name": name}); err != nil {
			t.Fatalf("Add(%s) error = %v", name, err)
		}
	}
	if err := store.Set(ctx, "clubs", "doc-1", map[string]any{"name": "Chess Society"}); err != nil {
		t.Fatalf("Set error = %v", err)
	}

	docs, err := store.List(ctx, "clubs")
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if diff := cmp.Diff([]string{"doc-1", "doc-2", "doc-3"}, ids(docs)); diff != "" {
		t.Fatalf("List order mismatch (-want +got):\n%s", diff)
	}
	if got := docs[0].Data["name"]; got != "Chess Society" {
		t.Fatalf("replaced name = %v, want Chess Society", got)
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := newTestMemory(t, time.Now())

	id, err := store.Add(ctx, "clubs", map[string]any{"what_we_do": []any{"Debates"}})
	if err != nil {
		t.Fatalf("Add error = %v", err)
	}
	doc, err := store.Get(ctx, "clubs", id)
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	doc.Data["what_we_do"].([]any)[0] = "mutated"

	again, err := store.Get(ctx, "clubs", id)
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if got := again.Data["what_we_do"].([]any)[0]; got != "Debates" {
		t.Fatalf("stored value changed through returned copy: %v", got)
	}
}

func TestMemoryWhereMatchesEquality(t *testing.T) {
	ctx := context.Background()
	store := newTestMemory(t, time.Now())

	mustAdd := func(data map[string]any) {
		t.Helper()
		if _, err := store.Add(ctx, "featured_events", data); err != nil {
			t.Fatalf("Add error = %v", err)
		}
	}
	mustAdd(map[string]any{"event_id": "a", "active": false})
	mustAdd(map[string]any{"event_id": "b", "active": true})
	mustAdd(map[string]any{"event_id": "c"})

	active, err := store.Where(ctx, "featured_events", docstore.Filter{Field: "active", Value: true})
	if err != nil {
		t.Fatalf("Where error = %v", err)
	}
	if diff := cmp.Diff([]string{"doc-2"}, ids(active)); diff != "" {
		t.Fatalf("Where(active) mismatch (-want +got):\n%s", diff)
	}

	byNumber, err := store.Where(ctx, "events", docstore.Filter{Field: "registrations", Value: 3})
	if err != nil {
		t.Fatalf("Where on empty collection error = %v", err)
	}
	if len(byNumber) != 0 {
		t.Fatalf("Where on empty collection = %v, want none", byNumber)
	}
}

func TestMemoryUpdateMergesAndResolvesTimestamp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	store := newTestMemory(t, now)

	id, err := store.Add(ctx, "events", map[string]any{"title": "Hackathon", "createdAt": docstore.ServerTimestamp})
	if err != nil {
		t.Fatalf("Add error = %v", err)
	}
	if err := store.Update(ctx, "events", id, map[string]any{"location": "Hall A"}); err != nil {
		t.Fatalf("Update error = %v", err)
	}

	doc, err := store.Get(ctx, "events", id)
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	want := map[string]any{"title": "Hackathon", "createdAt": now, "location": "Hall A"}
	if diff := cmp.Diff(want, doc.Data); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}

	if err := store.Update(ctx, "events", "missing", map[string]any{"x": 1}); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestMemory(t, time.Now())

	id, err := store.Add(ctx, "clubs", map[string]any{"name": "Chess"})
	if err != nil {
		t.Fatalf("Add error = %v", err)
	}
	if err := store.Delete(ctx, "clubs", id); err != nil {
		t.Fatalf("Delete error = %v", err)
	}
	if _, err := store.Get(ctx, "clubs", id); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Get after delete error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "clubs", id); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryRunTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits all writes", func(t *testing.T) {
		store := newTestMemory(t, time.Now())
		first, _ := store.Add(ctx, "featured_events", map[string]any{"event_id": "a", "active": true})

		err := store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
			if err := tx.Update(ctx, "featured_events", first, map[string]any{"active": false}); err != nil {
				return err
			}
			_, err := tx.Add(ctx, "featured_events", map[string]any{"event_id": "b", "active": true})
			return err
		})
		if err != nil {
			t.Fatalf("RunTransaction error = %v", err)
		}

		active, _ := store.Where(ctx, "featured_events", docstore.Filter{Field: "active", Value: true})
		if len(active) != 1 || active[0].Data["event_id"] != "b" {
			t.Fatalf("active pointers = %v, want only b", active)
		}
	})

	t.Run("rolls back on error", func(t *testing.T) {
		store := newTestMemory(t, time.Now())
		first, _ := store.Add(ctx, "featured_events", map[string]any{"event_id": "a", "active": true})
		boom := errors.New("boom")

		err := store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
			if err := tx.Update(ctx, "featured_events", first, map[string]any{"active": false}); err != nil {
				return err
			}
			if _, err := tx.Add(ctx, "featured_events", map[string]any{"event_id": "b", "active": true}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("RunTransaction error = %v, want boom", err)
		}

		docs, _ := store.List(ctx, "featured_events")
		if len(docs) != 1 || docs[0].Data["active"] != true {
			t.Fatalf("documents after rollback = %v, want original pointer untouched", docs)
		}
	})
}

func TestMemoryWatchDeliversSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := newTestMemory(t, time.Now())

	if _, err := store.Add(ctx, "events", map[string]any{"title": "Orientation"}); err != nil {
		t.Fatalf("Add error = %v", err)
	}

	ch, err := store.Watch(ctx, "events")
	if err != nil {
		t.Fatalf("Watch error = %v", err)
	}

	initial := receive(t, ch)
	if len(initial.Documents) != 1 {
		t.Fatalf("initial snapshot size = %d, want 1", len(initial.Documents))
	}

	if _, err := store.Add(ctx, "events", map[string]any{"title": "Cultural Night"}); err != nil {
		t.Fatalf("Add error = %v", err)
	}
	next := receive(t, ch)
	if len(next.Documents) != 2 {
		t.Fatalf("snapshot after add size = %d, want 2", len(next.Documents))
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// A pending snapshot may still be buffered; the channel must close next.
			if _, ok := <-ch; ok {
				t.Fatal("channel still open after cancel")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMemoryFailOn(t *testing.T) {
	ctx := context.Background()
	store := newTestMemory(t, time.Now())
	unavailable := errors.New("unavailable")

	store.FailOn("list", unavailable)
	if _, err := store.List(ctx, "clubs"); !errors.Is(err, unavailable) {
		t.Fatalf("List error = %v, want unavailable", err)
	}

	store.FailOn("list", nil)
	if _, err := store.List(ctx, "clubs"); err != nil {
		t.Fatalf("List after clearing failure error = %v", err)
	}
}

func TestMemoryClosed(t *testing.T) {
	store := docstore.NewMemory()
	_ = store.Close()
	if _, err := store.List(context.Background(), "clubs"); !errors.Is(err, docstore.ErrClosed) {
		t.Fatalf("List after Close error = %v, want ErrClosed", err)
	}
}

func receive(t *testing.T, ch <-chan docstore.Snapshot) docstore.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("watch channel closed unexpectedly")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return docstore.Snapshot{}
}
