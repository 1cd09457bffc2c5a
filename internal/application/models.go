package application

import "time"

// Principal represents the staff member invoking a service method. A zero
// Principal is anonymous.
type Principal struct {
	StaffID string
	Role    string
}

// Authenticated reports whether the principal belongs to a resolved staff record.
func (p Principal) Authenticated() bool {
	return p.StaffID != ""
}

// Socials holds a club's social profile links.
type Socials struct {
	Instagram string
	LinkedIn  string
}

// RecentEvent is an entry of a club's recent activity list.
type RecentEvent struct {
	Name         string
	Date         string
	Description  string
	Participants int
}

// Leader is a member of a club's leadership team.
type Leader struct {
	Role      string
	Name      string
	Email     string
	Phone     string
	Instagram string
	LinkedIn  string
}

// Club is a student club as exposed by the application services.
type Club struct {
	ID              string
	Name            string
	Description     string
	Category        string
	Logo            string
	Mission         string
	EstablishedYear int
	EventsConducted int
	Socials         Socials
	WhatWeDo        []string
	RecentEvents    []RecentEvent
	Leadership      []Leader
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ClubRecord is a stored club together with the fields repaired while
// decoding it. An empty Repaired means the record was well formed.
type ClubRecord struct {
	Club     Club
	Repaired []string
}

// WasRepaired reports whether field was missing or malformed in storage.
func (r ClubRecord) WasRepaired(field string) bool {
	for _, name := range r.Repaired {
		if name == field {
			return true
		}
	}
	return false
}

// Event is a campus event.
type Event struct {
	ID            string
	Title         string
	Description   string
	Date          string
	Time          string
	Location      string
	Category      string
	Organizer     string
	Featured      bool
	Registrations int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FeaturedPointer references the event promoted on the home page.
type FeaturedPointer struct {
	ID          string
	EventID     string
	IsActive    bool
	ActivatedAt time.Time
}

// Staff is the authorization record of a dashboard user.
type Staff struct {
	ID       string
	Email    string
	FullName string
	Role     string
}

// Principal returns the principal acting on behalf of the staff member.
func (s Staff) Principal() Principal {
	return Principal{StaffID: s.ID, Role: s.Role}
}

// Credentials models an identity as seen by the auth service.
type Credentials struct {
	IdentityID   string
	Email        string
	PasswordHash string
	Disabled     bool
}

// Session represents an authenticated session issued to an identity.
type Session struct {
	ID         string
	IdentityID string
	Token      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RevokedAt  *time.Time
}

// LoginResult is the outcome of a login attempt. Error carries the user
// facing message when Success is false.
type LoginResult struct {
	Success bool
	Error   string
	Staff   Staff
	Session Session
}

// StaffStatus enumerates the auth gate states.
type StaffStatus int

const (
	// StaffUnknown means the session has not been resolved yet.
	StaffUnknown StaffStatus = iota
	// StaffAuthenticated means a valid session maps to a staff record.
	StaffAuthenticated
	// StaffAnonymous means there is no usable session or no staff record.
	StaffAnonymous
)

func (s StaffStatus) String() string {
	switch s {
	case StaffAuthenticated:
		return "authenticated"
	case StaffAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// StaffState is the resolved auth gate state of a request.
type StaffState struct {
	Status StaffStatus
	Staff  Staff
}

// Principal returns the acting principal, anonymous unless authenticated.
func (s StaffState) Principal() Principal {
	if s.Status != StaffAuthenticated {
		return Principal{}
	}
	return s.Staff.Principal()
}

// StaffEventKind classifies session change notifications.
type StaffEventKind string

const (
	StaffSignedIn  StaffEventKind = "signed_in"
	StaffSignedOut StaffEventKind = "signed_out"
	// StaffRejected is emitted when a session exists but no staff record backs it.
	StaffRejected StaffEventKind = "rejected"
)

// StaffEvent is delivered to auth gate subscribers.
type StaffEvent struct {
	Kind      StaffEventKind
	StaffID   string
	SessionID string
	At        time.Time
}

// CreateParams wraps the data required to create an entity from a form.
type CreateParams[F any] struct {
	Principal Principal
	Form      F
}

// UpdateParams wraps the data required to update an entity from a form.
type UpdateParams[F any] struct {
	Principal Principal
	ID        string
	Form      F
}

// DeleteParams wraps the data required to delete an entity. Confirmed must
// be set once the user has acknowledged the destructive action.
type DeleteParams struct {
	Principal Principal
	ID        string
	Confirmed bool
}

// SetFeaturedParams wraps the data required to change the featured event.
type SetFeaturedParams struct {
	Principal Principal
	EventID   string
}
