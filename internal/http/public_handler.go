package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/student-affairs/internal/application"
)

// PublicReader serves the content of the public pages.
type PublicReader interface {
	ClubsByCategory(ctx context.Context) []application.CategoryGroup
	ClubDetail(ctx context.Context, id string) (application.Club, error)
	Events(ctx context.Context) application.EventsPage
	WatchEvents(ctx context.Context) (<-chan application.EventsPage, error)
	HeroFeatured(ctx context.Context) application.FeaturedView
	LogoPath(name string) string
}

// PublicHandler renders the public site.
type PublicHandler struct {
	reader PublicReader
	pages  *renderer
	logger *slog.Logger
}

func NewPublicHandler(reader PublicReader, pages *renderer, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{reader: reader, pages: pages, logger: defaultLogger(logger)}
}

func (h *PublicHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "PublicHandler", operation, attrs...)
}

type homePage struct {
	Featured application.FeaturedView
}

func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	featured := h.reader.HeroFeatured(r.Context())
	h.pages.render(w, r, http.StatusOK, "home.html", "Student Affairs", homePage{Featured: featured})
}

func (h *PublicHandler) About(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, "about.html", "About Us", aboutMarkdown)
}

func (h *PublicHandler) Contact(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, "contact.html", "Contact", nil)
}

// clubCard is a club together with its resolved logo.
type clubCard struct {
	application.Club
	LogoURL string
}

type categorySection struct {
	Category string
	Clubs    []clubCard
}

func (h *PublicHandler) Clubs(w http.ResponseWriter, r *http.Request) {
	groups := h.reader.ClubsByCategory(r.Context())
	sections := make([]categorySection, 0, len(groups))
	for _, group := range groups {
		section := categorySection{Category: group.Category}
		for _, club := range group.Clubs {
			section.Clubs = append(section.Clubs, h.card(club))
		}
		sections = append(sections, section)
	}
	h.pages.render(w, r, http.StatusOK, "clubs.html", "Clubs", sections)
}

func (h *PublicHandler) ClubDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "clubID")
	logger := h.log(r.Context(), "ClubDetail", "club_id", id)

	club, err := h.reader.ClubDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			logger.InfoContext(r.Context(), "club not found")
			h.pages.render(w, r, http.StatusNotFound, "club_not_found.html", "Club Not Found", nil)
			return
		}
		logger.ErrorContext(r.Context(), "failed to load club", "error", err, "error_kind", application.ErrorKind(err))
		h.pages.errorPage(w, r, http.StatusInternalServerError, "Failed to load club details.")
		return
	}
	h.pages.render(w, r, http.StatusOK, "club.html", club.Name, h.card(club))
}

func (h *PublicHandler) Events(w http.ResponseWriter, r *http.Request) {
	page := h.reader.Events(r.Context())
	h.pages.render(w, r, http.StatusOK, "events.html", "Events", page)
}

// EventStream pushes the events page as Server-Sent Events after every
// change to the events collection. The stream ends when the client leaves.
func (h *PublicHandler) EventStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.log(ctx, "EventStream")

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "response writer does not support streaming")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	pages, err := h.reader.WatchEvents(ctx)
	if err != nil {
		http.Error(w, statusMessage(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger.InfoContext(ctx, "event stream opened")
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "event stream closed")
			return
		case page, open := <-pages:
			if !open {
				logger.InfoContext(ctx, "event stream ended")
				return
			}
			payload, err := json.Marshal(newEventsPageDTO(page))
			if err != nil {
				logger.ErrorContext(ctx, "failed to encode events", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: events\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *PublicHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.pages.notFound(w, r)
}

func (h *PublicHandler) card(club application.Club) clubCard {
	return clubCard{Club: club, LogoURL: h.reader.LogoPath(club.Name)}
}
