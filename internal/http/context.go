package http

import (
	"context"
	"log/slog"

	"github.com/example/student-affairs/internal/application"
	"github.com/example/student-affairs/internal/logging"
)

type contextKey string

const (
	staffContextKey        contextKey = "staff"
	sessionTokenContextKey contextKey = "session_token"
)

// ContextWithStaff returns a derived context containing the resolved staff state.
func ContextWithStaff(ctx context.Context, state application.StaffState) context.Context {
	return context.WithValue(ctx, staffContextKey, state)
}

// StaffFromContext extracts the staff state resolved for the request. Requests
// that never passed through LoadStaff report StaffUnknown.
func StaffFromContext(ctx context.Context) application.StaffState {
	state, ok := ctx.Value(staffContextKey).(application.StaffState)
	if !ok {
		return application.StaffState{Status: application.StaffUnknown}
	}
	return state
}

// PrincipalFromContext returns the acting principal of the request.
func PrincipalFromContext(ctx context.Context) application.Principal {
	return StaffFromContext(ctx).Principal()
}

func contextWithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenContextKey, token)
}

func sessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenContextKey).(string)
	return token
}

// ContextWithLogger attaches the request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
