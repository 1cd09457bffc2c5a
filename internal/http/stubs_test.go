package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/student-affairs/internal/application"
	"github.com/example/student-affairs/internal/notify"
)

const validToken = "valid-token"

var testStaff = application.Staff{ID: "staff-1", Email: "admin@example.edu", FullName: "Ada Admin", Role: "admin"}

type publicReaderStub struct {
	groups   []application.CategoryGroup
	clubs    map[string]application.Club
	clubErr  error
	events   application.EventsPage
	updates  chan application.EventsPage
	watchErr error
	featured application.FeaturedView
}

func (s *publicReaderStub) ClubsByCategory(context.Context) []application.CategoryGroup {
	return s.groups
}

func (s *publicReaderStub) ClubDetail(_ context.Context, id string) (application.Club, error) {
	if s.clubErr != nil {
		return application.Club{}, s.clubErr
	}
	club, ok := s.clubs[id]
	if !ok {
		return application.Club{}, application.ErrNotFound
	}
	return club, nil
}

func (s *publicReaderStub) Events(context.Context) application.EventsPage {
	return s.events
}

func (s *publicReaderStub) WatchEvents(context.Context) (<-chan application.EventsPage, error) {
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	return s.updates, nil
}

func (s *publicReaderStub) HeroFeatured(context.Context) application.FeaturedView {
	if s.featured.ID == "" {
		return application.FallbackFeatured
	}
	return s.featured
}

func (s *publicReaderStub) LogoPath(name string) string {
	return "/clubs/" + application.Slugify(name) + ".png"
}

type authStub struct {
	mu         sync.Mutex
	result     application.LoginResult
	restoreErr error
	loggedOut  []string
}

func (s *authStub) Login(_ context.Context, email, password string) application.LoginResult {
	if s.result.Success || s.result.Error != "" {
		return s.result
	}
	if email == testStaff.Email && password == "secret" {
		return application.LoginResult{
			Success: true,
			Staff:   testStaff,
			Session: application.Session{ID: "session-1", Token: validToken, ExpiresAt: time.Now().Add(time.Hour)},
		}
	}
	return application.LoginResult{Error: application.LoginInvalidMessage}
}

func (s *authStub) Logout(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

func (s *authStub) Restore(_ context.Context, token string) (application.StaffState, error) {
	if s.restoreErr != nil {
		return application.StaffState{Status: application.StaffUnknown}, s.restoreErr
	}
	if token == validToken {
		return application.StaffState{Status: application.StaffAuthenticated, Staff: testStaff}, nil
	}
	return application.StaffState{Status: application.StaffAnonymous}, nil
}

// editorStub records calls and returns the configured results. Results are
// reported through the context notifier the way the managers do.
type editorStub[T, F any] struct {
	mu        sync.Mutex
	items     []T
	forms     map[string]F
	blank     F
	createErr error
	updateErr error
	deleteErr error
	created   []F
	updated   map[string]F
	deleted   []string
	principal application.Principal
}

func (s *editorStub[T, F]) List(context.Context) []T {
	return s.items
}

func (s *editorStub[T, F]) Create(ctx context.Context, params application.CreateParams[F]) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.principal = params.Principal
	if !params.Principal.Authenticated() {
		return zero, application.ErrUnauthorized
	}
	if s.createErr != nil {
		notify.Error(ctx, "Error saving", "")
		return zero, s.createErr
	}
	s.created = append(s.created, params.Form)
	notify.Success(ctx, "Saved")
	return zero, nil
}

func (s *editorStub[T, F]) Update(ctx context.Context, params application.UpdateParams[F]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		notify.Error(ctx, "Error saving", "")
		return s.updateErr
	}
	if s.updated == nil {
		s.updated = make(map[string]F)
	}
	s.updated[params.ID] = params.Form
	notify.Success(ctx, "Updated")
	return nil
}

func (s *editorStub[T, F]) Delete(ctx context.Context, params application.DeleteParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !params.Confirmed {
		return application.ErrConfirmationRequired
	}
	if s.deleteErr != nil {
		notify.Error(ctx, "Error deleting", "")
		return s.deleteErr
	}
	s.deleted = append(s.deleted, params.ID)
	notify.Success(ctx, "Deleted")
	return nil
}

func (s *editorStub[T, F]) Edit(_ context.Context, id string) (F, error) {
	form, ok := s.forms[id]
	if !ok {
		var zero F
		return zero, application.ErrNotFound
	}
	return form, nil
}

func (s *editorStub[T, F]) NewForm() F {
	return s.blank
}

type featuredStub struct {
	current application.Event
	err     error
	setErr  error
	set     []application.SetFeaturedParams
}

func (s *featuredStub) CurrentFeatured(context.Context) (application.Event, error) {
	if s.err != nil {
		return application.Event{}, s.err
	}
	if s.current.ID == "" {
		return application.Event{}, application.ErrNotFound
	}
	return s.current, nil
}

func (s *featuredStub) SetFeatured(ctx context.Context, params application.SetFeaturedParams) error {
	s.set = append(s.set, params)
	if s.setErr != nil {
		notify.Error(ctx, "Failed to update featured event", "")
		return s.setErr
	}
	notify.Success(ctx, "Featured event updated successfully")
	return nil
}

type pingerStub struct {
	err error
}

func (p pingerStub) Ping(context.Context) error {
	return p.err
}

type testSite struct {
	handler  http.Handler
	public   *publicReaderStub
	auth     *authStub
	clubs    *editorStub[application.Club, application.ClubForm]
	events   *editorStub[application.Event, application.EventForm]
	featured *featuredStub
	metrics  *Metrics
}

func newTestSite(t *testing.T, configure ...func(*RouterConfig)) *testSite {
	t.Helper()

	site := &testSite{
		public: &publicReaderStub{
			groups: []application.CategoryGroup{
				{Category: "Technical", Clubs: []application.Club{{ID: "club-1", Name: "Robotics Club", Description: "We build robots"}}},
				{Category: application.DefaultCategory, Clubs: []application.Club{{ID: "club-2", Name: "Café Crème"}}},
			},
			clubs: map[string]application.Club{
				"club-1": {ID: "club-1", Name: "Robotics Club", Description: "We build **robots**", Mission: "Automate <b>everything</b>",
					WhatWeDo: []string{"Workshops"}, Leadership: []application.Leader{{Role: "President", Name: "Ada"}}},
			},
			events: application.NewEventsPage([]application.Event{
				{ID: "event-1", Title: "Hackathon", Date: "2025-10-01", Featured: true},
				{ID: "event-2", Title: "Movie Night", Date: "2025-10-05"},
			}),
		},
		auth: &authStub{},
		clubs: &editorStub[application.Club, application.ClubForm]{
			items: []application.Club{{ID: "club-1", Name: "Robotics Club", Category: "Technical"}},
			forms: map[string]application.ClubForm{"club-1": {Name: "Robotics Club", Leadership: application.DefaultLeadership()}},
			blank: application.DefaultClubForm(2025),
		},
		events: &editorStub[application.Event, application.EventForm]{
			items: []application.Event{{ID: "event-1", Title: "Hackathon", Date: "2025-10-01"}},
			forms: map[string]application.EventForm{"event-1": {Title: "Hackathon", Date: "2025-10-01"}},
		},
		featured: &featuredStub{},
		metrics:  NewMetrics(),
	}

	cfg := RouterConfig{
		Public: site.public,
		Staff: &StaffConfig{
			Auth:     site.auth,
			Clubs:    site.clubs,
			Events:   site.events,
			Featured: site.featured,
		},
		Sessions: site.auth,
		Store:    pingerStub{},
		Metrics:  site.metrics,
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	handler, err := NewRouter(cfg)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	site.handler = handler
	return site
}

func (s *testSite) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testSite) post(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func staffCookie() *http.Cookie {
	return &http.Cookie{Name: staffSessionCookie, Value: validToken}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
