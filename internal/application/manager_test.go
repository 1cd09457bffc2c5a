package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/student-affairs/internal/notify"
	"github.com/example/student-affairs/internal/persistence"
)

// completeClubForm fills every required club input.
func completeClubForm(name string) ClubForm {
	form := DefaultClubForm(2025)
	form.Name = name
	form.Description = "Builds robots"
	form.Category = "Technical"
	form.Logo = "robotics_club.png"
	form.Mission = "Learn by building"
	return form
}

func withEventsConducted(form ClubForm, count string) ClubForm {
	form.EventsConducted = count
	return form
}

func completeEventForm(title string, featured bool) EventForm {
	return EventForm{
		Title:     title,
		Date:      "2025-10-01",
		Time:      "18:00",
		Location:  "Main Hall",
		Category:  "Technical",
		Organizer: "Student Affairs",
		Featured:  featured,
	}
}

type clubRepoStub struct {
	list    []ClubRecord
	listErr error

	getRecord ClubRecord
	getErr    error

	created   Club
	createErr error

	updated   Club
	updateErr error

	deletedID string
	deleteErr error
}

func (r *clubRepoStub) ListClubs(ctx context.Context) ([]ClubRecord, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]ClubRecord(nil), r.list...), nil
}

func (r *clubRepoStub) GetClub(ctx context.Context, id string) (ClubRecord, error) {
	if r.getErr != nil {
		return ClubRecord{}, r.getErr
	}
	if r.getRecord.Club.ID != id {
		return ClubRecord{}, persistence.ErrNotFound
	}
	return r.getRecord, nil
}

func (r *clubRepoStub) CreateClub(ctx context.Context, club Club) (Club, error) {
	if r.createErr != nil {
		return Club{}, r.createErr
	}
	club.ID = "club-1"
	r.created = club
	return club, nil
}

func (r *clubRepoStub) UpdateClub(ctx context.Context, club Club) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = club
	return nil
}

func (r *clubRepoStub) DeleteClub(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedID = id
	return nil
}

type eventRepoStub struct {
	list    []Event
	listErr error

	getEvent Event
	getErr   error

	created   Event
	createErr error

	updated   Event
	updateErr error

	deletedID string
	deleteErr error
}

func (r *eventRepoStub) ListEvents(ctx context.Context) ([]Event, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]Event(nil), r.list...), nil
}

func (r *eventRepoStub) GetEvent(ctx context.Context, id string) (Event, error) {
	if r.getErr != nil {
		return Event{}, r.getErr
	}
	if r.getEvent.ID != id {
		return Event{}, persistence.ErrNotFound
	}
	return r.getEvent, nil
}

func (r *eventRepoStub) CreateEvent(ctx context.Context, event Event) (Event, error) {
	if r.createErr != nil {
		return Event{}, r.createErr
	}
	event.ID = "event-1"
	r.created = event
	return event, nil
}

func (r *eventRepoStub) UpdateEvent(ctx context.Context, event Event) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = event
	return nil
}

func (r *eventRepoStub) DeleteEvent(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedID = id
	return nil
}

var (
	staffPrincipal = Principal{StaffID: "staff-1", Role: "admin"}
	fixedYear      = func() time.Time { return time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC) }
)

func collectingContext() (context.Context, *notify.Collector) {
	collector := &notify.Collector{}
	return notify.WithNotifier(context.Background(), collector), collector
}

func TestClubManager_List(t *testing.T) {
	t.Run("returns clubs in store order", func(t *testing.T) {
		repo := &clubRepoStub{list: []ClubRecord{
			{Club: Club{ID: "a", Name: "Robotics"}},
			{Club: Club{ID: "b", Name: "Drama"}},
		}}
		manager := NewClubManager(repo, fixedYear, nil)

		got := manager.List(context.Background())
		want := []Club{{ID: "a", Name: "Robotics"}, {ID: "b", Name: "Drama"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("clubs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("store failure yields empty list and notification", func(t *testing.T) {
		repo := &clubRepoStub{listErr: errors.New("offline")}
		manager := NewClubManager(repo, fixedYear, nil)
		ctx, collector := collectingContext()

		got := manager.List(ctx)
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil list, got %#v", got)
		}
		want := []notify.Notification{{Level: notify.LevelError, Title: "Failed to fetch clubs"}}
		if diff := cmp.Diff(want, collector.Drain()); diff != "" {
			t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestClubManager_Create(t *testing.T) {
	t.Run("coerces numeric inputs", func(t *testing.T) {
		repo := &clubRepoStub{}
		manager := NewClubManager(repo, fixedYear, nil)
		ctx, collector := collectingContext()

		form := completeClubForm("  Robotics  ")
		form.EstablishedYear = "2015"
		form.EventsConducted = "5"
		form.RecentEvents[0] = RecentEventForm{Name: "Bot Wars", Participants: "42"}

		club, err := manager.Create(ctx, CreateParams[ClubForm]{Principal: staffPrincipal, Form: form})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if club.ID != "club-1" {
			t.Fatalf("expected stored id, got %q", club.ID)
		}
		if repo.created.Name != "Robotics" {
			t.Fatalf("expected trimmed name, got %q", repo.created.Name)
		}
		if repo.created.EstablishedYear != 2015 || repo.created.EventsConducted != 5 {
			t.Fatalf("expected coerced counts, got %d and %d", repo.created.EstablishedYear, repo.created.EventsConducted)
		}
		if got := repo.created.RecentEvents[0].Participants; got != 42 {
			t.Fatalf("expected 42 participants, got %d", got)
		}
		if len(repo.created.Leadership) != len(persistence.FixedRoles) {
			t.Fatalf("expected fixed leadership roles, got %#v", repo.created.Leadership)
		}
		want := []notify.Notification{{Level: notify.LevelSuccess, Title: "Club added successfully"}}
		if diff := cmp.Diff(want, collector.Drain()); diff != "" {
			t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects non numeric counts", func(t *testing.T) {
		repo := &clubRepoStub{}
		manager := NewClubManager(repo, fixedYear, nil)
		ctx, collector := collectingContext()

		form := completeClubForm("Robotics")
		form.EventsConducted = "five"
		form.RecentEvents[0].Participants = "1.5"

		_, err := manager.Create(ctx, CreateParams[ClubForm]{Principal: staffPrincipal, Form: form})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"events_conducted", "recent_events.0.participants"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected field error for %s, got %#v", field, vErr.FieldErrors)
			}
		}
		if repo.created.Name != "" {
			t.Fatalf("repository should not be called")
		}
		notes := collector.Drain()
		if len(notes) != 1 || notes[0].Title != "Error saving club" || notes[0].Level != notify.LevelError {
			t.Fatalf("unexpected notifications: %#v", notes)
		}
	})

	t.Run("requires the club inputs", func(t *testing.T) {
		manager := NewClubManager(&clubRepoStub{}, fixedYear, nil)

		_, err := manager.Create(context.Background(), CreateParams[ClubForm]{Principal: staffPrincipal, Form: DefaultClubForm(2025)})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"name", "description", "category", "logo", "mission"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s field error, got %#v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("requires staff", func(t *testing.T) {
		manager := NewClubManager(&clubRepoStub{}, fixedYear, nil)

		_, err := manager.Create(context.Background(), CreateParams[ClubForm]{Form: ClubForm{Name: "Robotics"}})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestClubManager_Update(t *testing.T) {
	t.Run("writes the submitted club under its id", func(t *testing.T) {
		repo := &clubRepoStub{}
		manager := NewClubManager(repo, fixedYear, nil)
		ctx, collector := collectingContext()

		err := manager.Update(ctx, UpdateParams[ClubForm]{
			Principal: staffPrincipal,
			ID:        "club-9",
			Form:      withEventsConducted(completeClubForm("Chess"), "3"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.updated.ID != "club-9" || repo.updated.EventsConducted != 3 {
			t.Fatalf("unexpected update: %#v", repo.updated)
		}
		if notes := collector.Drain(); len(notes) != 1 || notes[0].Title != "Club updated successfully" {
			t.Fatalf("unexpected notifications: %#v", notes)
		}
	})

	t.Run("maps missing records", func(t *testing.T) {
		repo := &clubRepoStub{updateErr: persistence.ErrNotFound}
		manager := NewClubManager(repo, fixedYear, nil)

		err := manager.Update(context.Background(), UpdateParams[ClubForm]{
			Principal: staffPrincipal,
			ID:        "gone",
			Form:      completeClubForm("Chess"),
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestClubManager_Delete(t *testing.T) {
	t.Run("requires confirmation", func(t *testing.T) {
		repo := &clubRepoStub{}
		manager := NewClubManager(repo, fixedYear, nil)

		err := manager.Delete(context.Background(), DeleteParams{Principal: staffPrincipal, ID: "club-1"})
		if !errors.Is(err, ErrConfirmationRequired) {
			t.Fatalf("expected ErrConfirmationRequired, got %v", err)
		}
		if repo.deletedID != "" {
			t.Fatalf("club should not be deleted without confirmation")
		}
	})

	t.Run("deletes confirmed requests", func(t *testing.T) {
		repo := &clubRepoStub{}
		manager := NewClubManager(repo, fixedYear, nil)
		ctx, collector := collectingContext()

		if err := manager.Delete(ctx, DeleteParams{Principal: staffPrincipal, ID: "club-1", Confirmed: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.deletedID != "club-1" {
			t.Fatalf("expected club-1 deleted, got %q", repo.deletedID)
		}
		if notes := collector.Drain(); len(notes) != 1 || notes[0].Title != "Club deleted" {
			t.Fatalf("unexpected notifications: %#v", notes)
		}
	})
}

func TestClubManager_EditAndNewForm(t *testing.T) {
	t.Run("blank form carries defaults", func(t *testing.T) {
		manager := NewClubManager(&clubRepoStub{}, fixedYear, nil)

		form := manager.NewForm()
		want := ClubForm{
			EstablishedYear: "2025",
			EventsConducted: "0",
			WhatWeDo:        []string{""},
			RecentEvents:    []RecentEventForm{{Participants: "0"}},
			Leadership: []LeaderForm{
				{Role: "President"},
				{Role: "Vice President"},
				{Role: "Secretary"},
			},
		}
		if diff := cmp.Diff(want, form); diff != "" {
			t.Fatalf("form mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("repaired lists fall back to defaults", func(t *testing.T) {
		repo := &clubRepoStub{getRecord: ClubRecord{
			Club: Club{
				ID:              "club-1",
				Name:            "Legacy",
				EstablishedYear: 2001,
				WhatWeDo:        []string{},
				RecentEvents:    []RecentEvent{},
			},
			Repaired: []string{persistence.FieldWhatWeDo, persistence.FieldRecentEvents},
		}}
		manager := NewClubManager(repo, fixedYear, nil)

		form, err := manager.Edit(context.Background(), "club-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{""}, form.WhatWeDo); diff != "" {
			t.Fatalf("what we do mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]RecentEventForm{{Participants: "0"}}, form.RecentEvents); diff != "" {
			t.Fatalf("recent events mismatch (-want +got):\n%s", diff)
		}
		if form.EstablishedYear != "2001" {
			t.Fatalf("expected stored year, got %q", form.EstablishedYear)
		}
	})

	t.Run("repaired lists keep their decoded entries", func(t *testing.T) {
		repo := &clubRepoStub{getRecord: ClubRecord{
			Club: Club{
				ID:           "club-1",
				Name:         "Hack Club",
				WhatWeDo:     []string{"Workshops", "Hackathons"},
				RecentEvents: []RecentEvent{{Name: "Demo Day", Participants: 12}},
			},
			Repaired: []string{persistence.FieldWhatWeDo, persistence.FieldRecentEvents},
		}}
		manager := NewClubManager(repo, fixedYear, nil)

		form, err := manager.Edit(context.Background(), "club-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"Workshops", "Hackathons"}, form.WhatWeDo); diff != "" {
			t.Fatalf("what we do mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]RecentEventForm{{Name: "Demo Day", Participants: "12"}}, form.RecentEvents); diff != "" {
			t.Fatalf("recent events mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("well formed empty lists stay empty", func(t *testing.T) {
		repo := &clubRepoStub{getRecord: ClubRecord{Club: Club{ID: "club-1", Name: "Tidy", WhatWeDo: []string{}, RecentEvents: []RecentEvent{}}}}
		manager := NewClubManager(repo, fixedYear, nil)

		form, err := manager.Edit(context.Background(), "club-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(form.WhatWeDo) != 0 || len(form.RecentEvents) != 0 {
			t.Fatalf("expected empty lists, got %#v and %#v", form.WhatWeDo, form.RecentEvents)
		}
	})

	t.Run("missing club", func(t *testing.T) {
		manager := NewClubManager(&clubRepoStub{}, fixedYear, nil)

		if _, err := manager.Edit(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEventManager(t *testing.T) {
	t.Run("requires every event input except description", func(t *testing.T) {
		manager := NewEventManager(&eventRepoStub{}, nil)
		ctx, collector := collectingContext()

		_, err := manager.Create(ctx, CreateParams[EventForm]{Principal: staffPrincipal, Form: EventForm{Title: "   "}})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"title", "date", "time", "location", "category", "organizer"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %#v", field, vErr.FieldErrors)
			}
		}
		if notes := collector.Drain(); len(notes) != 1 || notes[0].Title != "Failed to save event" {
			t.Fatalf("unexpected notifications: %#v", notes)
		}
	})

	t.Run("creates events", func(t *testing.T) {
		repo := &eventRepoStub{}
		manager := NewEventManager(repo, nil)
		ctx, collector := collectingContext()

		event, err := manager.Create(ctx, CreateParams[EventForm]{
			Principal: staffPrincipal,
			Form:      completeEventForm("Hackathon", true),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.ID != "event-1" || !repo.created.Featured || repo.created.Registrations != 0 {
			t.Fatalf("unexpected created event: %#v", repo.created)
		}
		if notes := collector.Drain(); len(notes) != 1 || notes[0].Title != "Event created successfully" {
			t.Fatalf("unexpected notifications: %#v", notes)
		}
	})

	t.Run("edit loads form state", func(t *testing.T) {
		repo := &eventRepoStub{getEvent: Event{ID: "event-3", Title: "Fair", Date: "2025-11-11", Registrations: 30}}
		manager := NewEventManager(repo, nil)

		form, err := manager.Edit(context.Background(), "event-3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(EventForm{Title: "Fair", Date: "2025-11-11"}, form); diff != "" {
			t.Fatalf("form mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("delete failure notifies", func(t *testing.T) {
		repo := &eventRepoStub{deleteErr: errors.New("offline")}
		manager := NewEventManager(repo, nil)
		ctx, collector := collectingContext()

		err := manager.Delete(ctx, DeleteParams{Principal: staffPrincipal, ID: "event-1", Confirmed: true})
		if err == nil {
			t.Fatalf("expected error")
		}
		if notes := collector.Drain(); len(notes) != 1 || notes[0].Title != "Failed to delete event" {
			t.Fatalf("unexpected notifications: %#v", notes)
		}
	})
}
