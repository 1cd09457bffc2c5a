package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/student-affairs/internal/persistence"
)

// Login failure messages shown to the user.
const (
	LoginInvalidMessage      = "Invalid email or password"
	LoginStaffMissingMessage = "Staff not found in database"
	LoginUnavailableMessage  = "Sign-in is temporarily unavailable"
)

const defaultSessionTTL = 24 * time.Hour

// CredentialStore exposes identity lookups required by the auth service.
type CredentialStore interface {
	GetCredentialsByEmail(ctx context.Context, email string) (Credentials, error)
}

// StaffDirectory resolves identities to staff records.
type StaffDirectory interface {
	GetStaff(ctx context.Context, id string) (Staff, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService is the auth gate: it signs staff in and out, restores
// sessions on every request, and notifies subscribers of session changes.
type AuthService struct {
	credentials    CredentialStore
	staff          StaffDirectory
	sessions       SessionRepository
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger

	mu          sync.Mutex
	subscribers map[int]func(StaffEvent)
	nextSubID   int
}

// AuthConfig bundles the AuthService dependencies.
type AuthConfig struct {
	Credentials    CredentialStore
	Staff          StaffDirectory
	Sessions       SessionRepository
	Verify         PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(cfg AuthConfig) *AuthService {
	if cfg.Verify == nil {
		cfg.Verify = VerifyPassword
	}
	if cfg.TokenGenerator == nil {
		cfg.TokenGenerator = func() string { return "" }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	return &AuthService{
		credentials:    cfg.Credentials,
		staff:          cfg.Staff,
		sessions:       cfg.Sessions,
		verifyPassword: cfg.Verify,
		tokenGenerator: cfg.TokenGenerator,
		now:            cfg.Now,
		sessionTTL:     cfg.SessionTTL,
		logger:         defaultLogger(cfg.Logger),
		subscribers:    make(map[int]func(StaffEvent)),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Subscribe registers fn for session change events. The returned function
// removes the subscription and is safe to call more than once.
func (s *AuthService) Subscribe(fn func(StaffEvent)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *AuthService) publish(event StaffEvent) {
	s.mu.Lock()
	subscribers := make([]func(StaffEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(event)
	}
}

// Login verifies credentials, requires a staff record for the identity and
// issues a session. Failures are reported through LoginResult.Error.
func (s *AuthService) Login(ctx context.Context, email, password string) (result LoginResult) {
	email = strings.TrimSpace(strings.ToLower(email))

	var err error
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"staff_id", result.Staff.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "login succeeded")
	}()

	result, err = s.login(ctx, email, password)
	if err == nil {
		return
	}

	result = LoginResult{Success: false}
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountDisabled):
		result.Error = LoginInvalidMessage
	case errors.Is(err, ErrStaffNotFound):
		result.Error = LoginStaffMissingMessage
	default:
		result.Error = LoginUnavailableMessage
	}
	return
}

func (s *AuthService) login(ctx context.Context, email, password string) (LoginResult, error) {
	if s.credentials == nil || s.staff == nil || s.sessions == nil {
		return LoginResult{}, fmt.Errorf("auth service not configured")
	}
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	creds, err := s.credentials.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if creds.Disabled {
		return LoginResult{}, ErrAccountDisabled
	}
	if err := s.verifyPassword(creds.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	staff, err := s.staff.GetStaff(ctx, creds.IdentityID)
	if err != nil {
		if isNotFound(err) {
			s.publish(StaffEvent{Kind: StaffRejected, StaffID: creds.IdentityID, At: s.now()})
			return LoginResult{}, ErrStaffNotFound
		}
		return LoginResult{}, err
	}

	now := s.now()
	id := s.tokenGenerator()
	token := s.tokenGenerator()
	if token == "" {
		token = id
	}
	session, err := s.sessions.CreateSession(ctx, Session{
		ID:         id,
		IdentityID: creds.IdentityID,
		Token:      token,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
	})
	if err != nil {
		return LoginResult{}, err
	}

	s.publish(StaffEvent{Kind: StaffSignedIn, StaffID: staff.ID, SessionID: session.ID, At: now})
	return LoginResult{Success: true, Staff: staff, Session: session}, nil
}

// Logout revokes the session behind token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil
	}

	logger := s.loggerWith(ctx, "Logout")
	session, err := s.sessions.RevokeSession(ctx, trimmed, s.now())
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.With("session_id", session.ID).InfoContext(ctx, "session revoked")
	s.publish(StaffEvent{Kind: StaffSignedOut, StaffID: session.IdentityID, SessionID: session.ID, At: s.now()})
	return nil
}

// Restore resolves the staff state behind a session token. A valid session
// whose identity has no staff record yields StaffAnonymous. The error is
// reserved for store failures.
func (s *AuthService) Restore(ctx context.Context, token string) (state StaffState, err error) {
	state = StaffState{Status: StaffAnonymous}
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return state, nil
	}
	if s.sessions == nil || s.staff == nil {
		return StaffState{Status: StaffUnknown}, fmt.Errorf("auth service not configured")
	}

	logger := s.loggerWith(ctx, "Restore")

	session, err := s.sessions.GetSession(ctx, trimmed)
	if err != nil {
		if isNotFound(err) {
			return state, nil
		}
		logger.ErrorContext(ctx, "failed to load session", "error", err, "error_kind", ErrorKind(err))
		return StaffState{Status: StaffUnknown}, err
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		logger.DebugContext(ctx, "session rejected", "error_kind", ErrorKind(ErrSessionRevoked))
		return state, nil
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		logger.DebugContext(ctx, "session rejected", "error_kind", ErrorKind(ErrSessionExpired))
		return state, nil
	}

	staff, err := s.staff.GetStaff(ctx, session.IdentityID)
	if err != nil {
		if isNotFound(err) {
			logger.WarnContext(ctx, "session without staff record", "identity_id", session.IdentityID)
			s.publish(StaffEvent{Kind: StaffRejected, StaffID: session.IdentityID, SessionID: session.ID, At: now})
			return state, nil
		}
		logger.ErrorContext(ctx, "failed to resolve staff", "error", err, "error_kind", ErrorKind(err))
		return StaffState{Status: StaffUnknown}, err
	}

	return StaffState{Status: StaffAuthenticated, Staff: staff}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
