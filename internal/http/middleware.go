package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/csrf"

	"github.com/example/student-affairs/internal/application"
)

const staffSessionCookie = "staff_session"

const staffLoginPath = "/staff/login"

// SessionRestorer resolves a session token to the auth gate state.
type SessionRestorer interface {
	Restore(ctx context.Context, token string) (application.StaffState, error)
}

// RequestLogger attaches a per-request logger with a sequential request id.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

// LoadStaff restores the auth gate state from the session cookie on every
// request and stores it in the request context. A store failure leaves the
// state Unknown.
func LoadStaff(restorer SessionRestorer, logger *slog.Logger) func(http.Handler) http.Handler {
	base := defaultLogger(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractSessionToken(r)
			ctx := contextWithSessionToken(r.Context(), token)

			state, err := restorer.Restore(ctx, token)
			if err != nil {
				handlerLogger(ctx, base, "LoadStaff", "Restore").
					ErrorContext(ctx, "failed to restore staff session", "error", err, "error_kind", application.ErrorKind(err))
				state = application.StaffState{Status: application.StaffUnknown}
			}
			if state.Status == application.StaffAnonymous && token != "" {
				clearSessionCookie(w, false)
			}

			next.ServeHTTP(w, r.WithContext(ContextWithStaff(ctx, state)))
		})
	}
}

// RequireStaff redirects anonymous requests to the login page. Requests whose
// state could not be resolved get a 503 page.
func RequireStaff(pages *renderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch StaffFromContext(r.Context()).Status {
			case application.StaffAuthenticated:
				next.ServeHTTP(w, r)
			case application.StaffAnonymous:
				http.Redirect(w, r, staffLoginPath, http.StatusSeeOther)
			default:
				pages.errorPage(w, r, http.StatusServiceUnavailable, application.LoginUnavailableMessage)
			}
		})
	}
}

// CSRF protects unsafe staff requests with a double submit token. When
// cookies are not marked secure the requests are treated as plain HTTP so
// the referer check does not demand TLS.
func CSRF(key []byte, secure bool, pages *renderer) func(http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerLogger(r.Context(), nil, "CSRF", "Protect").
				WarnContext(r.Context(), "csrf validation failed", "reason", csrf.FailureReason(r))
			pages.errorPage(w, r, http.StatusForbidden, "Your session form expired. Please reload the page and try again.")
		})),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	cookie := &http.Cookie{
		Name:     staffSessionCookie,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(w, cookie)
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     staffSessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func extractSessionToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if cookie, err := r.Cookie(staffSessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
