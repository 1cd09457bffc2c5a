// Package documents implements the persistence repositories on top of a
// docstore.Store.
package documents

import (
	"errors"
	"fmt"

	"github.com/example/student-affairs/internal/docstore"
	"github.com/example/student-affairs/internal/persistence"
)

// Collection names.
const (
	CollectionClubs      = "clubs"
	CollectionEvents     = "events"
	CollectionFeatured   = "featured_event"
	CollectionStaff      = "staff"
	CollectionIdentities = "identities"
	CollectionSessions   = "sessions"
)

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return persistence.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
