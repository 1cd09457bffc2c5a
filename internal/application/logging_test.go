package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/example/student-affairs/internal/logging"
)

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := map[string]error{
		"":                      nil,
		"unauthorized":          ErrUnauthorized,
		"not_found":             fmt.Errorf("%w: event e-1 does not exist", ErrNotFound),
		"staff_not_found":       ErrStaffNotFound,
		"session_expired":       ErrSessionExpired,
		"session_revoked":       ErrSessionRevoked,
		"confirmation_required": ErrConfirmationRequired,
		"canceled":              context.DeadlineExceeded,
		"validation":            &ValidationError{FieldErrors: map[string]string{"title": "title is required"}},
		"unexpected":            errors.New("disk full"),
	}
	for want, err := range tests {
		if got := ErrorKind(err); got != want {
			t.Errorf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestServiceLoggerPrefersRequestLogger(t *testing.T) {
	t.Parallel()

	var base, request bytes.Buffer
	baseLogger := slog.New(slog.NewJSONHandler(&base, nil))
	ctx := logging.ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&request, nil)))

	serviceLogger(ctx, baseLogger, "FeaturedService", "SetFeatured", "event_id", "event-1").Info("featured event updated")
	if base.Len() != 0 {
		t.Fatalf("base logger should be unused, got %s", base.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(request.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["service"] != "FeaturedService" || entry["operation"] != "SetFeatured" || entry["event_id"] != "event-1" {
		t.Fatalf("unexpected log entry %v", entry)
	}

	serviceLogger(context.Background(), baseLogger, "AuthService", "").Info("login")
	if !bytes.Contains(base.Bytes(), []byte(`"service":"AuthService"`)) || bytes.Contains(base.Bytes(), []byte(`"operation"`)) {
		t.Fatalf("unexpected base log %s", base.String())
	}
	if defaultLogger(nil) != slog.Default() {
		t.Fatal("expected slog.Default for a nil logger")
	}
}
