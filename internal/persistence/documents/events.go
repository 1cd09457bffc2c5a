package documents

import (
	"context"

	"github.com/example/student-affairs/internal/docstore"
	"github.com/example/student-affairs/internal/persistence"
)

// EventRepository implements persistence.EventRepository.
type EventRepository struct {
	store docstore.Store
}

// NewEventRepository creates an event repository backed by store.
func NewEventRepository(store docstore.Store) *EventRepository {
	return &EventRepository{store: store}
}

// ListEvents returns every event in store order.
func (r *EventRepository) ListEvents(ctx context.Context) ([]persistence.Event, error) {
	docs, err := r.store.List(ctx, CollectionEvents)
	if err != nil {
		return nil, mapError("list events", err)
	}
	return decodeEvents(docs), nil
}

// GetEvent fetches an event by id.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	return getEvent(ctx, r.store, id)
}

// CreateEvent stores a new event with zero registrations.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) (string, error) {
	data := persistence.EncodeEvent(event)
	data["registrations"] = 0
	data["created_at"] = docstore.ServerTimestamp
	data["updated_at"] = docstore.ServerTimestamp

	id, err := r.store.Add(ctx, CollectionEvents, data)
	if err != nil {
		return "", mapError("create event", err)
	}
	return id, nil
}

// UpdateEvent overwrites the form editable fields of an event. Registrations
// and created_at are left untouched.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrNotFound
	}
	data := persistence.EncodeEvent(event)
	data["updated_at"] = docstore.ServerTimestamp
	return mapError("update event", r.store.Update(ctx, CollectionEvents, event.ID, data))
}

// DeleteEvent removes an event.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return mapError("delete event", r.store.Delete(ctx, CollectionEvents, id))
}

// WatchEvents streams the full event list after every change until ctx is
// done.
func (r *EventRepository) WatchEvents(ctx context.Context) (<-chan []persistence.Event, error) {
	snapshots, err := r.store.Watch(ctx, CollectionEvents)
	if err != nil {
		return nil, mapError("watch events", err)
	}

	out := make(chan []persistence.Event)
	go func() {
		defer close(out)
		for snap := range snapshots {
			select {
			case out <- decodeEvents(snap.Documents):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func getEvent(ctx context.Context, reader docstore.Reader, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}
	doc, err := reader.Get(ctx, CollectionEvents, id)
	if err != nil {
		return persistence.Event{}, mapError("get event", err)
	}
	return persistence.DecodeEvent(doc.ID, doc.Data), nil
}

func decodeEvents(docs []docstore.Document) []persistence.Event {
	events := make([]persistence.Event, 0, len(docs))
	for _, doc := range docs {
		events = append(events, persistence.DecodeEvent(doc.ID, doc.Data))
	}
	return events
}
