package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/student-affairs/internal/notify"
	"github.com/example/student-affairs/internal/persistence"
)

type featuredRepoStub struct {
	mu       sync.Mutex
	pointers []FeaturedPointer
	events   map[string]Event
	clock    time.Time
	nextID   int

	listErr       error
	deactivateErr error
	insertErr     error
}

func newFeaturedRepoStub(events ...Event) *featuredRepoStub {
	repo := &featuredRepoStub{
		events: make(map[string]Event),
		clock:  time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, event := range events {
		repo.events[event.ID] = event
	}
	return repo
}

func (r *featuredRepoStub) ListActivePointers(ctx context.Context) ([]FeaturedPointer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var active []FeaturedPointer
	for _, pointer := range r.pointers {
		if pointer.IsActive {
			active = append(active, pointer)
		}
	}
	return active, nil
}

func (r *featuredRepoStub) DeactivatePointer(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deactivateErr != nil {
		return r.deactivateErr
	}
	for i := range r.pointers {
		if r.pointers[i].ID == id {
			r.pointers[i].IsActive = false
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (r *featuredRepoStub) InsertActivePointer(ctx context.Context, eventID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return "", r.insertErr
	}
	r.nextID++
	r.clock = r.clock.Add(time.Minute)
	id := fmt.Sprintf("pointer-%d", r.nextID)
	r.pointers = append(r.pointers, FeaturedPointer{ID: id, EventID: eventID, IsActive: true, ActivatedAt: r.clock})
	return id, nil
}

func (r *featuredRepoStub) GetEvent(ctx context.Context, id string) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return Event{}, persistence.ErrNotFound
	}
	return event, nil
}

func (r *featuredRepoStub) activeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, pointer := range r.pointers {
		if pointer.IsActive {
			count++
		}
	}
	return count
}

// transactionalFeaturedRepo restores the pointer list when fn fails.
type transactionalFeaturedRepo struct {
	*featuredRepoStub
	unsupported bool
	calls       int
}

func (r *transactionalFeaturedRepo) InTransaction(ctx context.Context, fn func(ctx context.Context, repo FeaturedRepository) error) error {
	r.calls++
	if r.unsupported {
		return persistence.ErrTransactionsUnsupported
	}
	r.mu.Lock()
	saved := append([]FeaturedPointer(nil), r.pointers...)
	r.mu.Unlock()

	if err := fn(ctx, r.featuredRepoStub); err != nil {
		r.mu.Lock()
		r.pointers = saved
		r.mu.Unlock()
		return err
	}
	return nil
}

func TestFeaturedService_SetFeatured(t *testing.T) {
	hackathon := Event{ID: "event-1", Title: "Hackathon"}
	fair := Event{ID: "event-2", Title: "Fair"}

	t.Run("leaves exactly one active pointer", func(t *testing.T) {
		repo := newFeaturedRepoStub(hackathon, fair)
		repo.pointers = []FeaturedPointer{
			{ID: "old-1", EventID: "event-1", IsActive: true},
			{ID: "old-2", EventID: "event-2", IsActive: true},
		}
		svc := NewFeaturedService(repo, false)
		ctx, collector := collectingContext()

		if err := svc.SetFeatured(ctx, SetFeaturedParams{Principal: staffPrincipal, EventID: "event-2"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := repo.activeCount(); got != 1 {
			t.Fatalf("expected one active pointer, got %d", got)
		}
		current, err := svc.CurrentFeatured(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if current.ID != "event-2" {
			t.Fatalf("expected event-2 featured, got %q", current.ID)
		}
		notes := collector.Drain()
		if len(notes) != 1 || notes[0].Title != FeaturedUpdatedMessage || notes[0].Level != notify.LevelSuccess {
			t.Fatalf("unexpected notifications: %#v", notes)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		repo := newFeaturedRepoStub(hackathon)
		svc := NewFeaturedService(repo, false)

		for i := 0; i < 3; i++ {
			if err := svc.SetFeatured(context.Background(), SetFeaturedParams{Principal: staffPrincipal, EventID: "event-1"}); err != nil {
				t.Fatalf("call %d: unexpected error: %v", i, err)
			}
		}
		if got := repo.activeCount(); got != 1 {
			t.Fatalf("expected one active pointer, got %d", got)
		}
	})

	t.Run("empty selection", func(t *testing.T) {
		repo := newFeaturedRepoStub(hackathon)
		svc := NewFeaturedService(repo, false)
		ctx, collector := collectingContext()

		err := svc.SetFeatured(ctx, SetFeaturedParams{Principal: staffPrincipal, EventID: "  "})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if notes := collector.Drain(); len(notes) != 1 || notes[0].Title != FeaturedSelectMessage {
			t.Fatalf("unexpected notifications: %#v", notes)
		}
		if repo.nextID != 0 {
			t.Fatalf("no pointer should be written")
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		repo := newFeaturedRepoStub(hackathon)
		repo.pointers = []FeaturedPointer{{ID: "old-1", EventID: "event-1", IsActive: true}}
		svc := NewFeaturedService(repo, false)
		ctx, collector := collectingContext()

		err := svc.SetFeatured(ctx, SetFeaturedParams{Principal: staffPrincipal, EventID: "missing"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if got := repo.activeCount(); got != 1 {
			t.Fatalf("existing pointer should stay active, got %d active", got)
		}
		if notes := collector.Drain(); len(notes) != 1 || notes[0].Title != FeaturedFailedMessage {
			t.Fatalf("unexpected notifications: %#v", notes)
		}
	})

	t.Run("requires staff", func(t *testing.T) {
		svc := NewFeaturedService(newFeaturedRepoStub(hackathon), false)

		if err := svc.SetFeatured(context.Background(), SetFeaturedParams{EventID: "event-1"}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("atomic swap rolls back on failure", func(t *testing.T) {
		stub := newFeaturedRepoStub(hackathon, fair)
		stub.pointers = []FeaturedPointer{{ID: "old-1", EventID: "event-1", IsActive: true}}
		stub.insertErr = errors.New("write failed")
		repo := &transactionalFeaturedRepo{featuredRepoStub: stub}
		svc := NewFeaturedService(repo, true)

		if err := svc.SetFeatured(context.Background(), SetFeaturedParams{Principal: staffPrincipal, EventID: "event-2"}); err == nil {
			t.Fatalf("expected error")
		}
		if repo.calls != 1 {
			t.Fatalf("expected transaction to be used, got %d calls", repo.calls)
		}
		if got := stub.activeCount(); got != 1 {
			t.Fatalf("expected previous pointer restored, got %d active", got)
		}
	})

	t.Run("falls back when transactions are unsupported", func(t *testing.T) {
		stub := newFeaturedRepoStub(hackathon)
		repo := &transactionalFeaturedRepo{featuredRepoStub: stub, unsupported: true}
		svc := NewFeaturedService(repo, true)

		if err := svc.SetFeatured(context.Background(), SetFeaturedParams{Principal: staffPrincipal, EventID: "event-1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := stub.activeCount(); got != 1 {
			t.Fatalf("expected one active pointer, got %d", got)
		}
	})

	t.Run("non atomic failure leaves earlier writes", func(t *testing.T) {
		repo := newFeaturedRepoStub(hackathon)
		repo.pointers = []FeaturedPointer{{ID: "old-1", EventID: "event-1", IsActive: true}}
		repo.insertErr = errors.New("write failed")
		svc := NewFeaturedService(repo, false)

		if err := svc.SetFeatured(context.Background(), SetFeaturedParams{Principal: staffPrincipal, EventID: "event-1"}); err == nil {
			t.Fatalf("expected error")
		}
		if got := repo.activeCount(); got != 0 {
			t.Fatalf("expected deactivation to persist, got %d active", got)
		}
	})
}

func TestFeaturedService_CurrentFeatured(t *testing.T) {
	base := time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)

	t.Run("no pointer", func(t *testing.T) {
		svc := NewFeaturedService(newFeaturedRepoStub(), false)

		if _, err := svc.CurrentFeatured(context.Background()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("dangling pointer", func(t *testing.T) {
		repo := newFeaturedRepoStub()
		repo.pointers = []FeaturedPointer{{ID: "p", EventID: "deleted", IsActive: true, ActivatedAt: base}}
		svc := NewFeaturedService(repo, false)

		if _, err := svc.CurrentFeatured(context.Background()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("latest activation wins", func(t *testing.T) {
		repo := newFeaturedRepoStub(Event{ID: "event-1"}, Event{ID: "event-2"}, Event{ID: "event-3"})
		repo.pointers = []FeaturedPointer{
			{ID: "a", EventID: "event-1", IsActive: true, ActivatedAt: base},
			{ID: "b", EventID: "event-2", IsActive: true, ActivatedAt: base.Add(time.Hour)},
			{ID: "c", EventID: "event-3", IsActive: false, ActivatedAt: base.Add(2 * time.Hour)},
		}
		svc := NewFeaturedService(repo, false)

		event, err := svc.CurrentFeatured(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.ID != "event-2" {
			t.Fatalf("expected event-2, got %q", event.ID)
		}
	})

	t.Run("ties break on pointer id", func(t *testing.T) {
		pointer, ok := pickActivePointer([]FeaturedPointer{
			{ID: "a", EventID: "event-1", IsActive: true, ActivatedAt: base},
			{ID: "z", EventID: "event-2", IsActive: true, ActivatedAt: base},
		})
		if !ok || pointer.ID != "z" {
			t.Fatalf("expected pointer z, got %#v", pointer)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		repo := newFeaturedRepoStub()
		repo.listErr = errors.New("offline")
		svc := NewFeaturedService(repo, false)

		if _, err := svc.CurrentFeatured(context.Background()); err == nil || errors.Is(err, ErrNotFound) {
			t.Fatalf("expected store error, got %v", err)
		}
	})
}
