package testfixtures

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/example/student-affairs/internal/application"
	"github.com/example/student-affairs/internal/persistence"
)

var (
	clubCounter  uint64
	eventCounter uint64
	staffCounter uint64
)

var referenceTime = time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Club fixtures -----------------------------

// ClubFixture is a deterministic, fully populated club.
type ClubFixture struct {
	Name            string
	Description     string
	Category        string
	Logo            string
	Mission         string
	EstablishedYear int
	EventsConducted int
	WhatWeDo        []string
	RecentEvents    []persistence.RecentEvent
	Leadership      []persistence.Leader
	Socials         persistence.Socials
}

// ClubOption configures the generated club fixture.
type ClubOption func(*ClubFixture)

// NewClubFixture returns a deterministic club fixture with optional overrides.
func NewClubFixture(opts ...ClubOption) ClubFixture {
	idx := atomic.AddUint64(&clubCounter, 1)
	fixture := ClubFixture{
		Name:            fmt.Sprintf("Club %03d", idx),
		Description:     "A student club",
		Category:        "Technical",
		Logo:            fmt.Sprintf("club_%03d.png", idx),
		Mission:         "Learn by doing",
		EstablishedYear: 2010 + int(idx%10),
		EventsConducted: int(idx),
		WhatWeDo:        []string{"Workshops", "Meetups"},
		RecentEvents: []persistence.RecentEvent{
			{Name: "Kickoff", Date: "2025-01-15", Description: "Season opener", Participants: 40},
		},
		Leadership: []persistence.Leader{
			{Role: persistence.RolePresident, Name: "Ada"},
			{Role: persistence.RoleVicePresident, Name: "Grace"},
			{Role: persistence.RoleSecretary, Name: "Linus"},
		},
		Socials: persistence.Socials{Instagram: "https://instagram.com/club"},
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithClubName overrides the generated club name.
func WithClubName(name string) ClubOption {
	return func(f *ClubFixture) {
		f.Name = name
	}
}

// WithClubCategory overrides the generated category.
func WithClubCategory(category string) ClubOption {
	return func(f *ClubFixture) {
		f.Category = category
	}
}

// WithClubLeadership replaces the leadership list.
func WithClubLeadership(leaders ...persistence.Leader) ClubOption {
	return func(f *ClubFixture) {
		f.Leadership = leaders
	}
}

// Persistence returns the fixture as a persistence.Club value.
func (f ClubFixture) Persistence() persistence.Club {
	return persistence.Club{
		Name:            f.Name,
		Description:     f.Description,
		Category:        f.Category,
		Logo:            f.Logo,
		Mission:         f.Mission,
		EstablishedYear: f.EstablishedYear,
		EventsConducted: f.EventsConducted,
		Socials:         f.Socials,
		WhatWeDo:        append([]string(nil), f.WhatWeDo...),
		RecentEvents:    append([]persistence.RecentEvent(nil), f.RecentEvents...),
		Leadership:      append([]persistence.Leader(nil), f.Leadership...),
	}
}

// Form returns the fixture as a submitted club form.
func (f ClubFixture) Form() application.ClubForm {
	form := application.ClubForm{
		Name:            f.Name,
		Description:     f.Description,
		Category:        f.Category,
		Logo:            f.Logo,
		Mission:         f.Mission,
		EstablishedYear: strconv.Itoa(f.EstablishedYear),
		EventsConducted: strconv.Itoa(f.EventsConducted),
		Socials:         application.SocialsForm{Instagram: f.Socials.Instagram, LinkedIn: f.Socials.LinkedIn},
		WhatWeDo:        append([]string(nil), f.WhatWeDo...),
	}
	for _, ev := range f.RecentEvents {
		form.RecentEvents = append(form.RecentEvents, application.RecentEventForm{
			Name:         ev.Name,
			Date:         ev.Date,
			Description:  ev.Description,
			Participants: strconv.Itoa(ev.Participants),
		})
	}
	for _, leader := range f.Leadership {
		form.Leadership = append(form.Leadership, application.LeaderForm(leader))
	}
	return form
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture is a deterministic event.
type EventFixture struct {
	Title       string
	Description string
	Date        string
	Time        string
	Location    string
	Category    string
	Organizer   string
	Featured    bool
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic event fixture with optional overrides.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	day := referenceTime.AddDate(0, 0, int(idx))
	fixture := EventFixture{
		Title:       fmt.Sprintf("Event %03d", idx),
		Description: "An **open** campus event",
		Date:        day.Format("2006-01-02"),
		Time:        "18:00",
		Location:    "Main Hall",
		Category:    "Cultural",
		Organizer:   "Student Affairs",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventTitle overrides the generated title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventFeatured sets the featured flag.
func WithEventFeatured(featured bool) EventOption {
	return func(f *EventFixture) {
		f.Featured = featured
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		Title:       f.Title,
		Description: f.Description,
		Date:        f.Date,
		Time:        f.Time,
		Location:    f.Location,
		Category:    f.Category,
		Organizer:   f.Organizer,
		Featured:    f.Featured,
	}
}

// Form returns the fixture as a submitted event form.
func (f EventFixture) Form() application.EventForm {
	return application.EventForm(f)
}

// ----------------------------- Staff fixtures -----------------------------

// StaffFixture is an identity with a matching staff record.
type StaffFixture struct {
	ID       string
	Email    string
	FullName string
	Role     string
	Password string
}

// StaffOption configures the generated staff fixture.
type StaffOption func(*StaffFixture)

// NewStaffFixture returns a deterministic staff fixture with optional overrides.
func NewStaffFixture(opts ...StaffOption) StaffFixture {
	idx := atomic.AddUint64(&staffCounter, 1)
	id := fmt.Sprintf("staff-%03d", idx)
	fixture := StaffFixture{
		ID:       id,
		Email:    id + "@example.edu",
		FullName: fmt.Sprintf("Staff %03d", idx),
		Role:     "admin",
		Password: "correct horse battery staple",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithStaffEmail overrides the generated email address.
func WithStaffEmail(email string) StaffOption {
	return func(f *StaffFixture) {
		f.Email = email
	}
}

// WithStaffPassword overrides the generated password.
func WithStaffPassword(password string) StaffOption {
	return func(f *StaffFixture) {
		f.Password = password
	}
}

// Staff returns the persistence staff record of the fixture.
func (f StaffFixture) Staff() persistence.Staff {
	return persistence.Staff{ID: f.ID, Email: f.Email, FullName: f.FullName, Role: f.Role}
}

// Principal returns the application principal of the fixture.
func (f StaffFixture) Principal() application.Principal {
	return application.Principal{StaffID: f.ID, Role: f.Role}
}
