package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/student-affairs/internal/application"
)

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIHandler exposes the public content as JSON.
type APIHandler struct {
	reader    PublicReader
	pinger    Pinger
	responder responder
	logger    *slog.Logger
}

func NewAPIHandler(reader PublicReader, pinger Pinger, logger *slog.Logger) *APIHandler {
	base := defaultLogger(logger)
	return &APIHandler{reader: reader, pinger: pinger, responder: newResponder(base), logger: base}
}

func (h *APIHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "APIHandler", operation, attrs...)
}

func (h *APIHandler) ListClubs(w http.ResponseWriter, r *http.Request) {
	groups := h.reader.ClubsByCategory(r.Context())
	resp := make([]categoryDTO, 0, len(groups))
	for _, group := range groups {
		dto := categoryDTO{Category: group.Category, Clubs: make([]clubDTO, 0, len(group.Clubs))}
		for _, club := range group.Clubs {
			dto.Clubs = append(dto.Clubs, newClubDTO(club, h.reader.LogoPath(club.Name)))
		}
		resp = append(resp, dto)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *APIHandler) GetClub(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "clubID"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidClubID)
		return
	}

	club, err := h.reader.ClubDetail(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "GetClub", "club_id", id).
			InfoContext(r.Context(), "club lookup failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newClubDTO(club, h.reader.LogoPath(club.Name)))
}

func (h *APIHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newEventsPageDTO(h.reader.Events(r.Context())))
}

func (h *APIHandler) Featured(w http.ResponseWriter, r *http.Request) {
	view := h.reader.HeroFeatured(r.Context())
	h.responder.writeJSON(r.Context(), w, http.StatusOK, featuredDTO{
		ID:          view.ID,
		Title:       view.Title,
		Date:        view.Date,
		Description: view.Description,
		Fallback:    view.Fallback,
	})
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusServiceUnavailable, errStoreUnavailable)
			h.log(r.Context(), "Health").ErrorContext(r.Context(), "store ping failed", "error", err)
			return
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, healthDTO{Status: "ok"})
}

type healthDTO struct {
	Status string `json:"status"`
}

type categoryDTO struct {
	Category string    `json:"category"`
	Clubs    []clubDTO `json:"clubs"`
}

type socialsDTO struct {
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

type recentEventDTO struct {
	Name         string `json:"name"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	Participants int    `json:"participants"`
}

type leaderDTO struct {
	Role      string `json:"role"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

type clubDTO struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	Logo            string           `json:"logo"`
	Mission         string           `json:"mission,omitempty"`
	EstablishedYear int              `json:"established_year"`
	EventsConducted int              `json:"events_conducted"`
	Socials         socialsDTO       `json:"socials"`
	WhatWeDo        []string         `json:"what_we_do"`
	RecentEvents    []recentEventDTO `json:"recent_events"`
	Leadership      []leaderDTO      `json:"leadership"`
}

func newClubDTO(club application.Club, logo string) clubDTO {
	dto := clubDTO{
		ID:              club.ID,
		Name:            club.Name,
		Description:     club.Description,
		Category:        club.Category,
		Logo:            logo,
		Mission:         club.Mission,
		EstablishedYear: club.EstablishedYear,
		EventsConducted: club.EventsConducted,
		Socials:         socialsDTO{Instagram: club.Socials.Instagram, LinkedIn: club.Socials.LinkedIn},
		WhatWeDo:        append([]string{}, club.WhatWeDo...),
		RecentEvents:    make([]recentEventDTO, 0, len(club.RecentEvents)),
		Leadership:      make([]leaderDTO, 0, len(club.Leadership)),
	}
	for _, ev := range club.RecentEvents {
		dto.RecentEvents = append(dto.RecentEvents, recentEventDTO(ev))
	}
	for _, leader := range club.Leadership {
		dto.Leadership = append(dto.Leadership, leaderDTO(leader))
	}
	return dto
}

type eventDTO struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Location      string `json:"location"`
	Category      string `json:"category"`
	Organizer     string `json:"organizer"`
	Featured      bool   `json:"featured"`
	Registrations int    `json:"registrations"`
}

func newEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:            event.ID,
		Title:         event.Title,
		Description:   event.Description,
		Date:          event.Date,
		Time:          event.Time,
		Location:      event.Location,
		Category:      event.Category,
		Organizer:     event.Organizer,
		Featured:      event.Featured,
		Registrations: event.Registrations,
	}
}

type eventsPageDTO struct {
	Featured []eventDTO `json:"featured"`
	All      []eventDTO `json:"all"`
}

func newEventsPageDTO(page application.EventsPage) eventsPageDTO {
	dto := eventsPageDTO{
		Featured: make([]eventDTO, 0, len(page.Featured)),
		All:      make([]eventDTO, 0, len(page.All)),
	}
	for _, event := range page.Featured {
		dto.Featured = append(dto.Featured, newEventDTO(event))
	}
	for _, event := range page.All {
		dto.All = append(dto.All, newEventDTO(event))
	}
	return dto
}

type featuredDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Fallback    bool   `json:"fallback"`
}
