package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"github.com/example/student-affairs/internal/application"
	"github.com/example/student-affairs/internal/notify"
)

const staffDashboardPath = "/staff/dashboard"

// Authenticator signs staff in and out.
type Authenticator interface {
	Login(ctx context.Context, email, password string) application.LoginResult
	Logout(ctx context.Context, token string) error
}

// Editor is the form driven CRUD surface of one collection.
type Editor[T, F any] interface {
	List(ctx context.Context) []T
	Create(ctx context.Context, params application.CreateParams[F]) (T, error)
	Update(ctx context.Context, params application.UpdateParams[F]) error
	Delete(ctx context.Context, params application.DeleteParams) error
	Edit(ctx context.Context, id string) (F, error)
	NewForm() F
}

// FeaturedEditor reads and replaces the featured event pointer.
type FeaturedEditor interface {
	CurrentFeatured(ctx context.Context) (application.Event, error)
	SetFeatured(ctx context.Context, params application.SetFeaturedParams) error
}

// StaffConfig bundles the StaffHandler dependencies.
type StaffConfig struct {
	Auth          Authenticator
	Clubs         Editor[application.Club, application.ClubForm]
	Events        Editor[application.Event, application.EventForm]
	Featured      FeaturedEditor
	SecureCookies bool
	Logger        *slog.Logger
}

// StaffHandler serves the staff login and dashboard.
type StaffHandler struct {
	auth          Authenticator
	clubs         Editor[application.Club, application.ClubForm]
	events        Editor[application.Event, application.EventForm]
	featured      FeaturedEditor
	clubPages     *editorPages[application.Club, application.ClubForm]
	eventPages    *editorPages[application.Event, application.EventForm]
	pages         *renderer
	secureCookies bool
	logger        *slog.Logger
}

func NewStaffHandler(cfg StaffConfig, pages *renderer) *StaffHandler {
	base := defaultLogger(cfg.Logger)
	decoder := newFormDecoder()
	h := &StaffHandler{
		auth:          cfg.Auth,
		clubs:         cfg.Clubs,
		events:        cfg.Events,
		featured:      cfg.Featured,
		pages:         pages,
		secureCookies: cfg.SecureCookies,
		logger:        base,
	}
	h.clubPages = &editorPages[application.Club, application.ClubForm]{
		editor:   cfg.Clubs,
		noun:     "club",
		basePath: "/staff/clubs",
		template: "staff_club_form.html",
		decoder:  decoder,
		label:    func(form application.ClubForm) string { return form.Name },
		action:   applyClubFormAction,
		pages:    pages,
		logger:   base,
	}
	h.eventPages = &editorPages[application.Event, application.EventForm]{
		editor:   cfg.Events,
		noun:     "event",
		basePath: "/staff/events",
		template: "staff_event_form.html",
		decoder:  decoder,
		label:    func(form application.EventForm) string { return form.Title },
		pages:    pages,
		logger:   base,
	}
	return h
}

func (h *StaffHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "StaffHandler", operation, attrs...)
}

type loginPage struct {
	Email string
	Error string
}

func (h *StaffHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if StaffFromContext(r.Context()).Status == application.StaffAuthenticated {
		http.Redirect(w, r, staffDashboardPath, http.StatusSeeOther)
		return
	}
	h.pages.render(w, r, http.StatusOK, "staff_login.html", "Staff Login", loginPage{})
}

func (h *StaffHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.errorPage(w, r, http.StatusBadRequest, errBadRequestBody.Error())
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")

	result := h.auth.Login(r.Context(), email, password)
	if !result.Success {
		status := http.StatusUnauthorized
		if result.Error == application.LoginUnavailableMessage {
			status = http.StatusServiceUnavailable
		}
		h.pages.render(w, r, status, "staff_login.html", "Staff Login", loginPage{Email: email, Error: result.Error})
		return
	}

	setSessionCookie(w, result.Session.Token, result.Session.ExpiresAt, h.secureCookies)
	h.log(r.Context(), "Login", "staff_id", result.Staff.ID).InfoContext(r.Context(), "staff signed in")
	http.Redirect(w, r, staffDashboardPath, http.StatusSeeOther)
}

func (h *StaffHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := sessionTokenFromContext(r.Context())
	if token == "" {
		token = extractSessionToken(r)
	}
	if err := h.auth.Logout(r.Context(), token); err != nil {
		h.log(r.Context(), "Logout").ErrorContext(r.Context(), "failed to revoke session", "error", err, "error_kind", application.ErrorKind(err))
	}
	clearSessionCookie(w, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type dashboardPage struct {
	Staff    application.Staff
	Clubs    []application.Club
	Events   []application.Event
	Featured *application.Event
}

func (h *StaffHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, collector := withCollector(r.Context())

	page := dashboardPage{
		Staff:  StaffFromContext(ctx).Staff,
		Clubs:  h.clubs.List(ctx),
		Events: h.events.List(ctx),
	}
	if h.featured != nil {
		event, err := h.featured.CurrentFeatured(ctx)
		switch {
		case err == nil:
			page.Featured = &event
		case !errors.Is(err, application.ErrNotFound):
			h.log(ctx, "Dashboard").WarnContext(ctx, "failed to resolve featured event", "error", err, "error_kind", application.ErrorKind(err))
		}
	}
	h.pages.render(w, r, http.StatusOK, "staff_dashboard.html", "Staff Dashboard", page, collector.Drain()...)
}

func (h *StaffHandler) SetFeatured(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.errorPage(w, r, http.StatusBadRequest, errBadRequestBody.Error())
		return
	}
	ctx, collector := withCollector(r.Context())
	eventID := strings.TrimSpace(r.PostForm.Get("event_id"))

	err := h.featured.SetFeatured(ctx, application.SetFeaturedParams{
		Principal: PrincipalFromContext(ctx),
		EventID:   eventID,
	})
	if errors.Is(err, application.ErrUnauthorized) {
		h.pages.errorPage(w, r, http.StatusForbidden, statusMessage(http.StatusForbidden))
		return
	}
	h.pages.flash.set(w, collector.Drain())
	http.Redirect(w, r, staffDashboardPath, http.StatusSeeOther)
}

func (h *StaffHandler) NewClub(w http.ResponseWriter, r *http.Request)    { h.clubPages.New(w, r) }
func (h *StaffHandler) CreateClub(w http.ResponseWriter, r *http.Request) { h.clubPages.Create(w, r) }
func (h *StaffHandler) EditClub(w http.ResponseWriter, r *http.Request)   { h.clubPages.Edit(w, r) }
func (h *StaffHandler) UpdateClub(w http.ResponseWriter, r *http.Request) { h.clubPages.Update(w, r) }
func (h *StaffHandler) ConfirmDeleteClub(w http.ResponseWriter, r *http.Request) {
	h.clubPages.ConfirmDelete(w, r)
}
func (h *StaffHandler) DeleteClub(w http.ResponseWriter, r *http.Request) { h.clubPages.Delete(w, r) }

func (h *StaffHandler) NewEvent(w http.ResponseWriter, r *http.Request)    { h.eventPages.New(w, r) }
func (h *StaffHandler) CreateEvent(w http.ResponseWriter, r *http.Request) { h.eventPages.Create(w, r) }
func (h *StaffHandler) EditEvent(w http.ResponseWriter, r *http.Request)   { h.eventPages.Edit(w, r) }
func (h *StaffHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) { h.eventPages.Update(w, r) }
func (h *StaffHandler) ConfirmDeleteEvent(w http.ResponseWriter, r *http.Request) {
	h.eventPages.ConfirmDelete(w, r)
}
func (h *StaffHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) { h.eventPages.Delete(w, r) }

// editorPages implements the form pages of one collection.
type editorPages[T, F any] struct {
	editor   Editor[T, F]
	noun     string
	basePath string
	template string
	decoder  *schema.Decoder
	label    func(F) string
	// action applies a row editing button; it reports whether the submit
	// only edited the form.
	action func(form *F, action string) bool
	pages  *renderer
	logger *slog.Logger
}

// formPage is the page value of the club and event forms.
type formPage[F any] struct {
	Noun   string
	ID     string
	Action string
	Form   F
	Errors map[string]string
}

type confirmDeletePage struct {
	Noun   string
	Label  string
	Action string
	Cancel string
}

func (p *editorPages[T, F]) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, p.logger, "StaffHandler", operation, append([]any{"entity", p.noun}, attrs...)...)
}

func (p *editorPages[T, F]) title(id string) string {
	if id == "" {
		return "New " + p.noun
	}
	return "Edit " + p.noun
}

func (p *editorPages[T, F]) renderForm(w http.ResponseWriter, r *http.Request, status int, id string, form F, errs map[string]string, notes ...notify.Notification) {
	action := p.basePath
	if id != "" {
		action = p.basePath + "/" + id
	}
	p.pages.render(w, r, status, p.template, p.title(id), formPage[F]{
		Noun:   p.noun,
		ID:     id,
		Action: action,
		Form:   form,
		Errors: errs,
	}, notes...)
}

func (p *editorPages[T, F]) New(w http.ResponseWriter, r *http.Request) {
	p.renderForm(w, r, http.StatusOK, "", p.editor.NewForm(), nil)
}

func (p *editorPages[T, F]) Edit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, err := p.editor.Edit(r.Context(), id)
	if err != nil {
		p.failPage(w, r, err)
		return
	}
	p.renderForm(w, r, http.StatusOK, id, form, nil)
}

func (p *editorPages[T, F]) Create(w http.ResponseWriter, r *http.Request) {
	form, ok := p.decode(w, r, "")
	if !ok {
		return
	}
	ctx, collector := withCollector(r.Context())
	_, err := p.editor.Create(ctx, application.CreateParams[F]{
		Principal: PrincipalFromContext(ctx),
		Form:      form,
	})
	p.finishSave(w, r, "", form, err, collector)
}

func (p *editorPages[T, F]) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, ok := p.decode(w, r, id)
	if !ok {
		return
	}
	ctx, collector := withCollector(r.Context())
	err := p.editor.Update(ctx, application.UpdateParams[F]{
		Principal: PrincipalFromContext(ctx),
		ID:        id,
		Form:      form,
	})
	p.finishSave(w, r, id, form, err, collector)
}

func (p *editorPages[T, F]) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, err := p.editor.Edit(r.Context(), id)
	if err != nil {
		p.failPage(w, r, err)
		return
	}
	p.pages.render(w, r, http.StatusOK, "staff_confirm_delete.html", "Delete "+p.noun, confirmDeletePage{
		Noun:   p.noun,
		Label:  p.label(form),
		Action: p.basePath + "/" + id + "/delete",
		Cancel: staffDashboardPath,
	})
}

func (p *editorPages[T, F]) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		p.pages.errorPage(w, r, http.StatusBadRequest, errBadRequestBody.Error())
		return
	}
	ctx, collector := withCollector(r.Context())
	err := p.editor.Delete(ctx, application.DeleteParams{
		Principal: PrincipalFromContext(ctx),
		ID:        id,
		Confirmed: r.PostForm.Get("confirm") == "yes",
	})
	switch {
	case errors.Is(err, application.ErrConfirmationRequired):
		http.Redirect(w, r, p.basePath+"/"+id+"/delete", http.StatusSeeOther)
		return
	case errors.Is(err, application.ErrUnauthorized):
		p.pages.errorPage(w, r, http.StatusForbidden, statusMessage(http.StatusForbidden))
		return
	}
	p.pages.flash.set(w, collector.Drain())
	http.Redirect(w, r, staffDashboardPath, http.StatusSeeOther)
}

// decode parses the submitted form. A row editing submit re-renders the form
// and reports false.
func (p *editorPages[T, F]) decode(w http.ResponseWriter, r *http.Request, id string) (F, bool) {
	var form F
	if err := r.ParseForm(); err != nil {
		p.pages.errorPage(w, r, http.StatusBadRequest, errBadRequestBody.Error())
		return form, false
	}
	if err := p.decoder.Decode(&form, r.PostForm); err != nil {
		p.log(r.Context(), "decode").WarnContext(r.Context(), "failed to decode form", "error", err)
		p.pages.errorPage(w, r, http.StatusBadRequest, errBadRequestBody.Error())
		return form, false
	}
	if action := r.PostForm.Get(formActionField); action != "" && p.action != nil && p.action(&form, action) {
		p.renderForm(w, r, http.StatusOK, id, form, nil)
		return form, false
	}
	return form, true
}

func (p *editorPages[T, F]) finishSave(w http.ResponseWriter, r *http.Request, id string, form F, err error, collector *notify.Collector) {
	notes := collector.Drain()
	if err == nil {
		p.pages.flash.set(w, notes)
		http.Redirect(w, r, staffDashboardPath, http.StatusSeeOther)
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		p.renderForm(w, r, http.StatusUnprocessableEntity, id, form, vErr.FieldErrors, notes...)
		return
	}
	status := serviceStatus(err)
	if status == http.StatusForbidden || status == http.StatusNotFound {
		p.pages.errorPage(w, r, status, statusMessage(status))
		return
	}
	p.renderForm(w, r, status, id, form, nil, notes...)
}

func (p *editorPages[T, F]) failPage(w http.ResponseWriter, r *http.Request, err error) {
	status := serviceStatus(err)
	if status == http.StatusNotFound {
		p.pages.notFound(w, r)
		return
	}
	p.pages.errorPage(w, r, status, statusMessage(status))
}

func withCollector(ctx context.Context) (context.Context, *notify.Collector) {
	collector := &notify.Collector{}
	return notify.WithNotifier(ctx, collector), collector
}

const formActionField = "form_action"

func newFormDecoder() *schema.Decoder {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return decoder
}

// applyClubFormAction handles the add and remove row buttons of the club
// form. Leaders holding a fixed role cannot be removed.
func applyClubFormAction(form *application.ClubForm, action string) bool {
	name, indexText, _ := strings.Cut(action, ":")
	index, err := strconv.Atoi(indexText)
	if err != nil {
		index = -1
	}

	switch name {
	case "add_what_we_do":
		form.WhatWeDo = append(form.WhatWeDo, "")
	case "remove_what_we_do":
		if index >= 0 && index < len(form.WhatWeDo) {
			form.WhatWeDo = append(form.WhatWeDo[:index], form.WhatWeDo[index+1:]...)
		}
	case "add_recent_event":
		form.RecentEvents = append(form.RecentEvents, application.RecentEventForm{Participants: "0"})
	case "remove_recent_event":
		if index >= 0 && index < len(form.RecentEvents) {
			form.RecentEvents = append(form.RecentEvents[:index], form.RecentEvents[index+1:]...)
		}
	case "add_leader":
		form.Leadership = append(form.Leadership, application.LeaderForm{})
	case "remove_leader":
		if index >= 0 && index < len(form.Leadership) && !isFixedRole(form.Leadership[index].Role) {
			form.Leadership = append(form.Leadership[:index], form.Leadership[index+1:]...)
		}
	default:
		return false
	}
	return true
}
