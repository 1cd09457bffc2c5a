package persistence

import (
	"context"
	"time"
)

// ClubRepository exposes CRUD operations for clubs. Reads return the decoded
// shape so callers can tell repaired records apart.
type ClubRepository interface {
	ListClubs(ctx context.Context) ([]ClubShape, error)
	GetClub(ctx context.Context, id string) (ClubShape, error)
	CreateClub(ctx context.Context, club Club) (string, error)
	UpdateClub(ctx context.Context, club Club) error
	DeleteClub(ctx context.Context, id string) error
}

// EventRepository exposes CRUD operations for events.
type EventRepository interface {
	ListEvents(ctx context.Context) ([]Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	CreateEvent(ctx context.Context, event Event) (string, error)
	UpdateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, id string) error
	WatchEvents(ctx context.Context) (<-chan []Event, error)
}

// FeaturedRepository stores featured event pointers.
type FeaturedRepository interface {
	ListActivePointers(ctx context.Context) ([]FeaturedPointer, error)
	DeactivatePointer(ctx context.Context, id string) error
	InsertActivePointer(ctx context.Context, eventID string) (string, error)
	GetEvent(ctx context.Context, id string) (Event, error)
}

// FeaturedTransactor runs fn against a FeaturedRepository whose writes commit
// together. Implementations return ErrTransactionsUnsupported when the store
// lacks transactions.
type FeaturedTransactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context, repo FeaturedRepository) error) error
}

// StaffRepository reads staff authorization records.
type StaffRepository interface {
	GetStaff(ctx context.Context, id string) (Staff, error)
	PutStaff(ctx context.Context, staff Staff) error
}

// IdentityRepository stores email/password credentials.
type IdentityRepository interface {
	CreateIdentity(ctx context.Context, identity Identity) error
	GetIdentityByEmail(ctx context.Context, email string) (Identity, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
}
