package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Public page defaults.
const (
	DefaultCategory = "Others"
	DefaultLogoPath = "/clubs/default.png"
	logoPathPrefix  = "/clubs/"
)

// FallbackFeatured is shown on the home page when no featured event can be
// resolved.
var FallbackFeatured = FeaturedView{
	ID:          "fallback",
	Title:       "Inter-Club Championship",
	Date:        "March 15th",
	Description: "A celebration of collaboration, talent, and teamwork",
	Fallback:    true,
}

// FeaturedReader resolves the current featured event.
type FeaturedReader interface {
	CurrentFeatured(ctx context.Context) (Event, error)
}

// EventWatcher streams the events collection.
type EventWatcher interface {
	WatchEvents(ctx context.Context) (<-chan []Event, error)
}

// CategoryGroup is a category heading with its clubs.
type CategoryGroup struct {
	Category string
	Clubs    []Club
}

// FeaturedView is the hero block of the home page.
type FeaturedView struct {
	ID          string
	Title       string
	Date        string
	Description string
	Fallback    bool
}

// EventsPage splits the events list into its featured subset and the full list.
type EventsPage struct {
	Featured []Event
	All      []Event
}

// PublicService serves the read-only public pages.
type PublicService struct {
	clubs      ClubRepository
	events     EventRepository
	watcher    EventWatcher
	featured   FeaturedReader
	logoExists func(file string) bool
	logger     *slog.Logger
}

// PublicConfig bundles the PublicService dependencies. LogoExists reports
// whether a logo file name is present among the static assets.
type PublicConfig struct {
	Clubs      ClubRepository
	Events     EventRepository
	Watcher    EventWatcher
	Featured   FeaturedReader
	LogoExists func(file string) bool
	Logger     *slog.Logger
}

// NewPublicService constructs the public reader.
func NewPublicService(cfg PublicConfig) *PublicService {
	return &PublicService{
		clubs:      cfg.Clubs,
		events:     cfg.Events,
		watcher:    cfg.Watcher,
		featured:   cfg.Featured,
		logoExists: cfg.LogoExists,
		logger:     defaultLogger(cfg.Logger),
	}
}

func (s *PublicService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PublicService", operation, attrs...)
}

// ClubsByCategory groups clubs under their trimmed category, in the order
// categories are first seen. Blank categories fall under DefaultCategory. A
// failing store yields no groups.
func (s *PublicService) ClubsByCategory(ctx context.Context) []CategoryGroup {
	records, err := s.clubs.ListClubs(ctx)
	if err != nil {
		s.loggerWith(ctx, "ClubsByCategory").ErrorContext(ctx, "failed to fetch clubs", "error", err, "error_kind", ErrorKind(err))
		return nil
	}

	var groups []CategoryGroup
	index := make(map[string]int)
	for _, record := range records {
		category := strings.TrimSpace(record.Club.Category)
		if category == "" {
			category = DefaultCategory
		}
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, CategoryGroup{Category: category})
		}
		groups[i].Clubs = append(groups[i].Clubs, record.Club)
	}
	return groups
}

// ClubDetail fetches one club. ErrNotFound means the page should render
// its not found state.
func (s *PublicService) ClubDetail(ctx context.Context, id string) (Club, error) {
	if strings.TrimSpace(id) == "" {
		return Club{}, ErrNotFound
	}
	record, err := s.clubs.GetClub(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "ClubDetail", "club_id", id).ErrorContext(ctx, "failed to fetch club", "error", err, "error_kind", ErrorKind(err))
		}
		return Club{}, err
	}
	return record.Club, nil
}

// Events returns the events page content. A failing store yields an empty page.
func (s *PublicService) Events(ctx context.Context) EventsPage {
	events, err := s.events.ListEvents(ctx)
	if err != nil {
		s.loggerWith(ctx, "Events").ErrorContext(ctx, "failed to fetch events", "error", err, "error_kind", ErrorKind(err))
		return EventsPage{}
	}
	return NewEventsPage(events)
}

// NewEventsPage builds the events page from a full event list.
func NewEventsPage(events []Event) EventsPage {
	page := EventsPage{All: events}
	for _, event := range events {
		if event.Featured {
			page.Featured = append(page.Featured, event)
		}
	}
	return page
}

// WatchEvents streams events page content after every change to the events
// collection until ctx is done.
func (s *PublicService) WatchEvents(ctx context.Context) (<-chan EventsPage, error) {
	if s.watcher == nil {
		return nil, fmt.Errorf("event watcher not configured")
	}
	updates, err := s.watcher.WatchEvents(ctx)
	if err != nil {
		s.loggerWith(ctx, "WatchEvents").ErrorContext(ctx, "failed to watch events", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	pages := make(chan EventsPage)
	go func() {
		defer close(pages)
		for events := range updates {
			select {
			case pages <- NewEventsPage(events):
			case <-ctx.Done():
				return
			}
		}
	}()
	return pages, nil
}

// HeroFeatured returns the featured event for the home page, or
// FallbackFeatured when it cannot be resolved.
func (s *PublicService) HeroFeatured(ctx context.Context) FeaturedView {
	if s.featured == nil {
		return FallbackFeatured
	}
	event, err := s.featured.CurrentFeatured(ctx)
	if err != nil {
		s.loggerWith(ctx, "HeroFeatured").WarnContext(ctx, "using fallback featured event", "error", err, "error_kind", ErrorKind(err))
		return FallbackFeatured
	}
	return FeaturedView{
		ID:          event.ID,
		Title:       event.Title,
		Date:        event.Date,
		Description: event.Description,
	}
}

// LogoPath resolves the logo URL of a club from its name.
func (s *PublicService) LogoPath(name string) string {
	slug := Slugify(name)
	if slug == "" {
		return DefaultLogoPath
	}
	file := slug + ".png"
	if s.logoExists != nil && !s.logoExists(file) {
		return DefaultLogoPath
	}
	return logoPathPrefix + file
}
