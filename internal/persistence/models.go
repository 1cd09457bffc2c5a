package persistence

import "time"

// Fixed leadership roles every club carries, in display order.
const (
	RolePresident     = "President"
	RoleVicePresident = "Vice President"
	RoleSecretary     = "Secretary"
)

// FixedRoles lists the leadership roles a club always exposes.
var FixedRoles = []string{RolePresident, RoleVicePresident, RoleSecretary}

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

// Club represents a student club stored in the clubs collection.
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

// Event represents an entry of the events collection.
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

// FeaturedPointer indirects the event promoted on the home page.
type FeaturedPointer struct {
	ID          string
	EventID     string
	IsActive    bool
	ActivatedAt time.Time
}

// Staff is the authorization record of a dashboard user. Its ID equals the
// identity ID.
type Staff struct {
	ID       string
	Email    string
	FullName string
	Role     string
}

// Identity is an email/password credential.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for an identity.
type Session struct {
	ID         string
	IdentityID string
	Token      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RevokedAt  *time.Time
}
