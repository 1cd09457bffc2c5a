package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/student-affairs/internal/application"
	"github.com/example/student-affairs/internal/docstore"
	"github.com/example/student-affairs/internal/docstore/sqlite"
	"github.com/example/student-affairs/internal/persistence"
	"github.com/example/student-affairs/internal/persistence/documents"
)

// Harness bundles the document repositories over one store with a
// deterministic clock and id sequence.
type Harness struct {
	Store docstore.Store
	Clock *Clock
	IDs   *IDGenerator

	Clubs      *documents.ClubRepository
	Events     *documents.EventRepository
	Featured   *documents.FeaturedRepository
	Staff      *documents.StaffRepository
	Identities *documents.IdentityRepository
	Sessions   *documents.SessionRepository
}

// NewMemoryHarness builds a harness over an in-memory store whose clock
// ticks one second per write.
func NewMemoryHarness(tb testing.TB) *Harness {
	tb.Helper()

	clock := NewTickingClock(time.Time{}, time.Second)
	ids := NewIDGenerator("doc")
	store := docstore.NewMemory(docstore.WithClock(clock.NowFunc()), docstore.WithIDGenerator(ids.NextFunc()))
	tb.Cleanup(func() { _ = store.Close() })
	return newHarness(store, clock, ids)
}

// NewSQLiteHarness builds a harness over a migrated SQLite file in a
// temporary directory.
func NewSQLiteHarness(tb testing.TB) *Harness {
	tb.Helper()

	store, err := sqlite.Open(filepath.Join(tb.TempDir(), "clubsite.db"))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	clock := NewTickingClock(time.Time{}, time.Second)
	ids := NewIDGenerator("doc")
	store.SetClock(clock.NowFunc())
	store.SetIDGenerator(ids.NextFunc())
	return newHarness(store, clock, ids)
}

func newHarness(store docstore.Store, clock *Clock, ids *IDGenerator) *Harness {
	return &Harness{
		Store:      store,
		Clock:      clock,
		IDs:        ids,
		Clubs:      documents.NewClubRepository(store),
		Events:     documents.NewEventRepository(store),
		Featured:   documents.NewFeaturedRepository(store),
		Staff:      documents.NewStaffRepository(store),
		Identities: documents.NewIdentityRepository(store),
		Sessions:   documents.NewSessionRepository(store, clock.NowFunc()),
	}
}

// SeedClub stores a club and returns its id.
func (h *Harness) SeedClub(tb testing.TB, fixture ClubFixture) string {
	tb.Helper()
	id, err := h.Clubs.CreateClub(context.Background(), fixture.Persistence())
	if err != nil {
		tb.Fatalf("failed to seed club: %v", err)
	}
	return id
}

// SeedEvent stores an event and returns its id.
func (h *Harness) SeedEvent(tb testing.TB, fixture EventFixture) string {
	tb.Helper()
	id, err := h.Events.CreateEvent(context.Background(), fixture.Persistence())
	if err != nil {
		tb.Fatalf("failed to seed event: %v", err)
	}
	return id
}

// SeedRaw writes a document verbatim, for records that predate the current
// schema.
func (h *Harness) SeedRaw(tb testing.TB, collection, id string, data map[string]any) {
	tb.Helper()
	if err := h.Store.Set(context.Background(), collection, id, data); err != nil {
		tb.Fatalf("failed to seed %s/%s: %v", collection, id, err)
	}
}

// SeedStaff stores an identity and its staff record.
func (h *Harness) SeedStaff(tb testing.TB, fixture StaffFixture) {
	tb.Helper()
	h.SeedIdentity(tb, fixture)
	if err := h.Staff.PutStaff(context.Background(), fixture.Staff()); err != nil {
		tb.Fatalf("failed to seed staff: %v", err)
	}
}

// SeedIdentity stores only the credential of fixture, leaving it without a
// staff record.
func (h *Harness) SeedIdentity(tb testing.TB, fixture StaffFixture) {
	tb.Helper()
	hash, err := application.HashPassword(fixture.Password)
	if err != nil {
		tb.Fatalf("failed to hash password: %v", err)
	}
	err = h.Identities.CreateIdentity(context.Background(), persistence.Identity{
		ID:           fixture.ID,
		Email:        fixture.Email,
		PasswordHash: hash,
	})
	if err != nil {
		tb.Fatalf("failed to seed identity: %v", err)
	}
}
