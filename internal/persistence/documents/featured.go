package documents

import (
	"context"
	"errors"

	"github.com/example/student-affairs/internal/docstore"
	"github.com/example/student-affairs/internal/persistence"
)

// FeaturedRepository implements persistence.FeaturedRepository and
// persistence.FeaturedTransactor.
type FeaturedRepository struct {
	store docstore.Store
	db    docstore.Tx
}

// NewFeaturedRepository creates a featured pointer repository backed by store.
func NewFeaturedRepository(store docstore.Store) *FeaturedRepository {
	return &FeaturedRepository{store: store, db: store}
}

// ListActivePointers returns every pointer with is_active set.
func (r *FeaturedRepository) ListActivePointers(ctx context.Context) ([]persistence.FeaturedPointer, error) {
	docs, err := r.db.Where(ctx, CollectionFeatured, docstore.Filter{Field: "is_active", Value: true})
	if err != nil {
		return nil, mapError("list active pointers", err)
	}
	pointers := make([]persistence.FeaturedPointer, 0, len(docs))
	for _, doc := range docs {
		pointers = append(pointers, persistence.DecodeFeaturedPointer(doc.ID, doc.Data))
	}
	return pointers, nil
}

// DeactivatePointer clears is_active on a pointer.
func (r *FeaturedRepository) DeactivatePointer(ctx context.Context, id string) error {
	return mapError("deactivate pointer", r.db.Update(ctx, CollectionFeatured, id, map[string]any{"is_active": false}))
}

// InsertActivePointer adds an active pointer to eventID.
func (r *FeaturedRepository) InsertActivePointer(ctx context.Context, eventID string) (string, error) {
	id, err := r.db.Add(ctx, CollectionFeatured, map[string]any{
		"event_id":     eventID,
		"is_active":    true,
		"activated_at": docstore.ServerTimestamp,
	})
	if err != nil {
		return "", mapError("insert pointer", err)
	}
	return id, nil
}

// GetEvent dereferences an event id.
func (r *FeaturedRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	return getEvent(ctx, r.db, id)
}

// InTransaction runs fn with a repository whose reads and writes belong to a
// single store transaction.
func (r *FeaturedRepository) InTransaction(ctx context.Context, fn func(ctx context.Context, repo persistence.FeaturedRepository) error) error {
	transactor, ok := r.store.(docstore.Transactor)
	if !ok {
		return persistence.ErrTransactionsUnsupported
	}
	err := transactor.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return fn(ctx, &FeaturedRepository{store: r.store, db: tx})
	})
	if errors.Is(err, docstore.ErrTransactionsUnsupported) {
		return persistence.ErrTransactionsUnsupported
	}
	return err
}
