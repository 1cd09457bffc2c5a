package documents

import (
	"context"

	"github.com/example/student-affairs/internal/docstore"
	"github.com/example/student-affairs/internal/persistence"
)

// ClubRepository implements persistence.ClubRepository.
type ClubRepository struct {
	store docstore.Store
}

// NewClubRepository creates a club repository backed by store.
func NewClubRepository(store docstore.Store) *ClubRepository {
	return &ClubRepository{store: store}
}

// ListClubs returns every club in store order.
func (r *ClubRepository) ListClubs(ctx context.Context) ([]persistence.ClubShape, error) {
	docs, err := r.store.List(ctx, CollectionClubs)
	if err != nil {
		return nil, mapError("list clubs", err)
	}
	clubs := make([]persistence.ClubShape, 0, len(docs))
	for _, doc := range docs {
		clubs = append(clubs, persistence.DecodeClub(doc.ID, doc.Data))
	}
	return clubs, nil
}

// GetClub fetches a club by id.
func (r *ClubRepository) GetClub(ctx context.Context, id string) (persistence.ClubShape, error) {
	if id == "" {
		return nil, persistence.ErrNotFound
	}
	doc, err := r.store.Get(ctx, CollectionClubs, id)
	if err != nil {
		return nil, mapError("get club", err)
	}
	return persistence.DecodeClub(doc.ID, doc.Data), nil
}

// CreateClub stores a new club and returns its generated id.
func (r *ClubRepository) CreateClub(ctx context.Context, club persistence.Club) (string, error) {
	data := persistence.EncodeClub(club)
	data["created_at"] = docstore.ServerTimestamp
	data["updated_at"] = docstore.ServerTimestamp

	id, err := r.store.Add(ctx, CollectionClubs, data)
	if err != nil {
		return "", mapError("create club", err)
	}
	return id, nil
}

// UpdateClub overwrites the editable fields of an existing club.
func (r *ClubRepository) UpdateClub(ctx context.Context, club persistence.Club) error {
	if club.ID == "" {
		return persistence.ErrNotFound
	}
	data := persistence.EncodeClub(club)
	data["updated_at"] = docstore.ServerTimestamp
	return mapError("update club", r.store.Update(ctx, CollectionClubs, club.ID, data))
}

// DeleteClub removes a club.
func (r *ClubRepository) DeleteClub(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return mapError("delete club", r.store.Delete(ctx, CollectionClubs, id))
}
