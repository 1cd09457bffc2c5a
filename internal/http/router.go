package http

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/student-affairs/internal/application"
)

// RouterConfig wires the site handlers. A nil Staff disables the dashboard
// and a nil API disables the JSON endpoints.
type RouterConfig struct {
	Public        PublicReader
	Staff         *StaffConfig
	Sessions      SessionRestorer
	Store         Pinger
	Metrics       *Metrics
	CSRFKey       []byte
	SecureCookies bool
	StaticDir     string
	Logger        *slog.Logger
}

// NewRouter builds the chi router of the site.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	logger := defaultLogger(cfg.Logger)
	pages, err := newRenderer(logger, newFlashCookies(cfg.CSRFKey, cfg.SecureCookies))
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	public := NewPublicHandler(cfg.Public, pages, logger)
	r.Get("/", public.Home)
	r.Get("/about", public.About)
	r.Get("/contact", public.Contact)
	r.Get("/clubs", public.Clubs)
	r.Get("/club/{clubID}", public.ClubDetail)
	r.Get("/events", public.Events)
	r.Get("/events/stream", public.EventStream)

	if cfg.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
		r.Handle("/clubs/*", http.StripPrefix("/clubs/", logoServer(filepath.Join(cfg.StaticDir, "clubs"), public.NotFound)))
	}

	api := NewAPIHandler(cfg.Public, cfg.Store, logger)
	r.Get("/healthz", api.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/clubs", api.ListClubs)
		r.Get("/clubs/{clubID}", api.GetClub)
		r.Get("/events", api.ListEvents)
		r.Get("/featured", api.Featured)
	})

	if cfg.Staff != nil && cfg.Sessions != nil {
		staffCfg := *cfg.Staff
		staffCfg.SecureCookies = cfg.SecureCookies
		if staffCfg.Logger == nil {
			staffCfg.Logger = logger
		}
		staff := NewStaffHandler(staffCfg, pages)

		r.Route("/staff", func(r chi.Router) {
			r.Use(LoadStaff(cfg.Sessions, logger))
			if len(cfg.CSRFKey) > 0 {
				r.Use(CSRF(cfg.CSRFKey, cfg.SecureCookies, pages))
			}

			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, staffDashboardPath, http.StatusSeeOther)
			})
			r.Get("/login", staff.LoginPage)
			r.Post("/login", staff.Login)
			r.Post("/logout", staff.Logout)

			r.Group(func(r chi.Router) {
				r.Use(RequireStaff(pages))
				r.Get("/dashboard", staff.Dashboard)
				r.Post("/featured", staff.SetFeatured)

				r.Get("/clubs/new", staff.NewClub)
				r.Post("/clubs", staff.CreateClub)
				r.Get("/clubs/{id}/edit", staff.EditClub)
				r.Post("/clubs/{id}", staff.UpdateClub)
				r.Get("/clubs/{id}/delete", staff.ConfirmDeleteClub)
				r.Post("/clubs/{id}/delete", staff.DeleteClub)

				r.Get("/events/new", staff.NewEvent)
				r.Post("/events", staff.CreateEvent)
				r.Get("/events/{id}/edit", staff.EditEvent)
				r.Post("/events/{id}", staff.UpdateEvent)
				r.Get("/events/{id}/delete", staff.ConfirmDeleteEvent)
				r.Post("/events/{id}/delete", staff.DeleteEvent)
			})
		})
	}

	r.NotFound(public.NotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r, nil
}

// logoServer serves club logos from dir. Missing files get the default logo
// when present, otherwise the 404 page.
func logoServer(dir string, notFound http.HandlerFunc) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" || strings.Contains(name, "..") {
			notFound(w, r)
			return
		}
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			fallback := strings.TrimPrefix(application.DefaultLogoPath, "/clubs/")
			if _, err := os.Stat(filepath.Join(dir, fallback)); err != nil {
				notFound(w, r)
				return
			}
			r.URL.Path = "/" + fallback
		}
		files.ServeHTTP(w, r)
	})
}

// LogoExists reports whether a logo file is present under the static directory.
func LogoExists(staticDir string) func(file string) bool {
	dir := filepath.Join(staticDir, "clubs")
	return func(file string) bool {
		if file == "" || strings.ContainsAny(file, `/\`) {
			return false
		}
		info, err := os.Stat(filepath.Join(dir, file))
		return err == nil && !info.IsDir()
	}
}
