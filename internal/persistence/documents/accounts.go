package documents

import (
	"context"
	"strings"
	"time"

	"github.com/example/student-affairs/internal/docstore"
	"github.com/example/student-affairs/internal/persistence"
)

// StaffRepository implements persistence.StaffRepository.
type StaffRepository struct {
	store docstore.Store
}

// NewStaffRepository creates a staff repository backed by store.
func NewStaffRepository(store docstore.Store) *StaffRepository {
	return &StaffRepository{store: store}
}

// GetStaff fetches the staff record of an identity.
func (r *StaffRepository) GetStaff(ctx context.Context, id string) (persistence.Staff, error) {
	if id == "" {
		return persistence.Staff{}, persistence.ErrNotFound
	}
	doc, err := r.store.Get(ctx, CollectionStaff, id)
	if err != nil {
		return persistence.Staff{}, mapError("get staff", err)
	}
	return persistence.DecodeStaff(doc.ID, doc.Data), nil
}

// PutStaff creates or replaces a staff record keyed by its identity id.
func (r *StaffRepository) PutStaff(ctx context.Context, staff persistence.Staff) error {
	if staff.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return mapError("put staff", r.store.Set(ctx, CollectionStaff, staff.ID, persistence.EncodeStaff(staff)))
}

// IdentityRepository implements persistence.IdentityRepository.
type IdentityRepository struct {
	store docstore.Store
}

// NewIdentityRepository creates an identity repository backed by store.
func NewIdentityRepository(store docstore.Store) *IdentityRepository {
	return &IdentityRepository{store: store}
}

// CreateIdentity stores a credential. Emails are unique case-insensitively.
func (r *IdentityRepository) CreateIdentity(ctx context.Context, identity persistence.Identity) error {
	email := normalizeEmail(identity.Email)
	if identity.ID == "" || email == "" || identity.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	existing, err := r.store.Where(ctx, CollectionIdentities, docstore.Filter{Field: "email", Value: email})
	if err != nil {
		return mapError("create identity", err)
	}
	if len(existing) > 0 {
		return persistence.ErrDuplicate
	}

	return mapError("create identity", r.store.Set(ctx, CollectionIdentities, identity.ID, map[string]any{
		"email":         email,
		"password_hash": identity.PasswordHash,
		"disabled":      identity.Disabled,
		"created_at":    docstore.ServerTimestamp,
		"updated_at":    docstore.ServerTimestamp,
	}))
}

// GetIdentityByEmail looks up a credential by email.
func (r *IdentityRepository) GetIdentityByEmail(ctx context.Context, email string) (persistence.Identity, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.Identity{}, persistence.ErrNotFound
	}
	docs, err := r.store.Where(ctx, CollectionIdentities, docstore.Filter{Field: "email", Value: normalized})
	if err != nil {
		return persistence.Identity{}, mapError("get identity", err)
	}
	if len(docs) == 0 {
		return persistence.Identity{}, persistence.ErrNotFound
	}
	return persistence.DecodeIdentity(docs[0].ID, docs[0].Data), nil
}

// SessionRepository implements persistence.SessionRepository.
type SessionRepository struct {
	store docstore.Store
	now   func() time.Time
}

// NewSessionRepository creates a session repository backed by store.
func NewSessionRepository(store docstore.Store, now func() time.Time) *SessionRepository {
	if now == nil {
		now = time.Now
	}
	return &SessionRepository{store: store, now: now}
}

// CreateSession stores a new session token for an identity.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.IdentityID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	now := r.now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	err := r.store.Set(ctx, CollectionSessions, session.ID, map[string]any{
		"identity_id": session.IdentityID,
		"token":       session.Token,
		"expires_at":  session.ExpiresAt.UTC(),
		"created_at":  now,
		"updated_at":  now,
	})
	if err != nil {
		return persistence.Session{}, mapError("create session", err)
	}
	return session, nil
}

// GetSession retrieves a session by its token value.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	docs, err := r.store.Where(ctx, CollectionSessions, docstore.Filter{Field: "token", Value: token})
	if err != nil {
		return persistence.Session{}, mapError("get session", err)
	}
	if len(docs) == 0 {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return persistence.DecodeSession(docs[0].ID, docs[0].Data), nil
}

// RevokeSession marks the session identified by token as revoked.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	session, err := r.GetSession(ctx, token)
	if err != nil {
		return persistence.Session{}, err
	}
	revokedAt = revokedAt.UTC()
	err = r.store.Update(ctx, CollectionSessions, session.ID, map[string]any{
		"revoked_at": revokedAt,
		"updated_at": revokedAt,
	})
	if err != nil {
		return persistence.Session{}, mapError("revoke session", err)
	}
	session.RevokedAt = &revokedAt
	session.UpdatedAt = revokedAt
	return session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
