package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/student-affairs/internal/persistence"
)

// ClubRepository captures the persistence operations needed by the club manager.
type ClubRepository interface {
	ListClubs(ctx context.Context) ([]ClubRecord, error)
	GetClub(ctx context.Context, id string) (ClubRecord, error)
	CreateClub(ctx context.Context, club Club) (Club, error)
	UpdateClub(ctx context.Context, club Club) error
	DeleteClub(ctx context.Context, id string) error
}

// ClubManager manages the clubs collection.
type ClubManager = Manager[Club, ClubForm]

// ClubMessages are the notifications emitted by the club manager.
var ClubMessages = ManagerMessages{
	ListFailed:   "Failed to fetch clubs",
	Created:      "Club added successfully",
	Updated:      "Club updated successfully",
	SaveFailed:   "Error saving club",
	Deleted:      "Club deleted",
	DeleteFailed: "Error deleting club",
}

// NewClubManager constructs the club manager. now supplies the default
// established year of blank forms.
func NewClubManager(clubs ClubRepository, now func() time.Time, logger *slog.Logger) *ClubManager {
	if now == nil {
		now = time.Now
	}
	return NewManager(EntityOps[Club, ClubForm]{
		Name: "club",
		List: func(ctx context.Context) ([]Club, error) {
			records, err := clubs.ListClubs(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]Club, 0, len(records))
			for _, record := range records {
				out = append(out, record.Club)
			}
			return out, nil
		},
		Create: clubs.CreateClub,
		Update: func(ctx context.Context, id string, club Club) error {
			club.ID = id
			return clubs.UpdateClub(ctx, club)
		},
		Delete: clubs.DeleteClub,
		Load: func(ctx context.Context, id string) (ClubForm, error) {
			record, err := clubs.GetClub(ctx, id)
			if err != nil {
				return ClubForm{}, err
			}
			return ClubFormFromRecord(record, now().Year()), nil
		},
		FromForm: ClubFromForm,
		NewForm:  func() ClubForm { return DefaultClubForm(now().Year()) },
		Messages: ClubMessages,
	}, logger)
}

// DefaultLeadership returns one empty entry per fixed role.
func DefaultLeadership() []LeaderForm {
	leaders := make([]LeaderForm, 0, len(persistence.FixedRoles))
	for _, role := range persistence.FixedRoles {
		leaders = append(leaders, LeaderForm{Role: role})
	}
	return leaders
}

func defaultRecentEvents() []RecentEventForm {
	return []RecentEventForm{{Participants: "0"}}
}

// DefaultClubForm is the template of a new club.
func DefaultClubForm(year int) ClubForm {
	return ClubForm{
		EstablishedYear: strconv.Itoa(year),
		EventsConducted: "0",
		WhatWeDo:        []string{""},
		RecentEvents:    defaultRecentEvents(),
		Leadership:      DefaultLeadership(),
	}
}

// ClubFormFromRecord loads a stored club into form state. List fields that
// were missing or malformed in storage get the template defaults; lists that
// were stored empty stay empty. A repaired list keeps the entries that
// decoded.
func ClubFormFromRecord(record ClubRecord, year int) ClubForm {
	club := record.Club
	form := DefaultClubForm(year)
	form.Name = club.Name
	form.Description = club.Description
	form.Category = club.Category
	form.Logo = club.Logo
	form.Mission = club.Mission
	form.Socials = SocialsForm{Instagram: club.Socials.Instagram, LinkedIn: club.Socials.LinkedIn}
	if !record.WasRepaired(persistence.FieldEstablishedYear) || club.EstablishedYear != 0 {
		form.EstablishedYear = strconv.Itoa(club.EstablishedYear)
	}
	form.EventsConducted = strconv.Itoa(club.EventsConducted)

	if !record.WasRepaired(persistence.FieldWhatWeDo) || len(club.WhatWeDo) > 0 {
		form.WhatWeDo = append([]string{}, club.WhatWeDo...)
	}
	if !record.WasRepaired(persistence.FieldRecentEvents) || len(club.RecentEvents) > 0 {
		form.RecentEvents = make([]RecentEventForm, 0, len(club.RecentEvents))
		for _, ev := range club.RecentEvents {
			form.RecentEvents = append(form.RecentEvents, RecentEventForm{
				Name:         ev.Name,
				Date:         ev.Date,
				Description:  ev.Description,
				Participants: strconv.Itoa(ev.Participants),
			})
		}
	}
	if len(club.Leadership) > 0 {
		form.Leadership = make([]LeaderForm, 0, len(club.Leadership))
		for _, leader := range club.Leadership {
			form.Leadership = append(form.Leadership, LeaderForm(leader))
		}
	}
	return form
}

// ClubFromForm validates a submitted club form and coerces its numeric
// inputs to integers.
func ClubFromForm(form ClubForm) (Club, *ValidationError) {
	form = trimClubForm(form)
	vErr := validateForm(form)

	club := Club{
		Name:            form.Name,
		Description:     form.Description,
		Category:        form.Category,
		Logo:            form.Logo,
		Mission:         form.Mission,
		EstablishedYear: parseCount(vErr, persistence.FieldEstablishedYear, form.EstablishedYear),
		EventsConducted: parseCount(vErr, persistence.FieldEventsConducted, form.EventsConducted),
		Socials: Socials{
			Instagram: strings.TrimSpace(form.Socials.Instagram),
			LinkedIn:  strings.TrimSpace(form.Socials.LinkedIn),
		},
		WhatWeDo: make([]string, 0, len(form.WhatWeDo)),
	}

	for _, item := range form.WhatWeDo {
		club.WhatWeDo = append(club.WhatWeDo, strings.TrimSpace(item))
	}
	for i, ev := range form.RecentEvents {
		club.RecentEvents = append(club.RecentEvents, RecentEvent{
			Name:         strings.TrimSpace(ev.Name),
			Date:         strings.TrimSpace(ev.Date),
			Description:  strings.TrimSpace(ev.Description),
			Participants: parseCount(vErr, fmt.Sprintf("%s.%d.participants", persistence.FieldRecentEvents, i), ev.Participants),
		})
	}
	for _, leader := range form.Leadership {
		club.Leadership = append(club.Leadership, Leader{
			Role:      strings.TrimSpace(leader.Role),
			Name:      strings.TrimSpace(leader.Name),
			Email:     strings.TrimSpace(leader.Email),
			Phone:     strings.TrimSpace(leader.Phone),
			Instagram: strings.TrimSpace(leader.Instagram),
			LinkedIn:  strings.TrimSpace(leader.LinkedIn),
		})
	}
	return club, vErr
}
