package main

import (
	"context"
	"time"

	"github.com/example/student-affairs/internal/application"
	"github.com/example/student-affairs/internal/persistence"
)

type clubRepositoryAdapter struct {
	repo persistence.ClubRepository
}

func newClubRepositoryAdapter(repo persistence.ClubRepository) *clubRepositoryAdapter {
	return &clubRepositoryAdapter{repo: repo}
}

func (a *clubRepositoryAdapter) ListClubs(ctx context.Context) ([]application.ClubRecord, error) {
	shapes, err := a.repo.ListClubs(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]application.ClubRecord, 0, len(shapes))
	for _, shape := range shapes {
		records = append(records, toClubRecord(shape))
	}
	return records, nil
}

func (a *clubRepositoryAdapter) GetClub(ctx context.Context, id string) (application.ClubRecord, error) {
	shape, err := a.repo.GetClub(ctx, id)
	if err != nil {
		return application.ClubRecord{}, err
	}
	return toClubRecord(shape), nil
}

func (a *clubRepositoryAdapter) CreateClub(ctx context.Context, club application.Club) (application.Club, error) {
	id, err := a.repo.CreateClub(ctx, toPersistenceClub(club))
	if err != nil {
		return application.Club{}, err
	}
	stored, err := a.repo.GetClub(ctx, id)
	if err != nil {
		return application.Club{}, err
	}
	return toApplicationClub(stored.Normalized()), nil
}

func (a *clubRepositoryAdapter) UpdateClub(ctx context.Context, club application.Club) error {
	return a.repo.UpdateClub(ctx, toPersistenceClub(club))
}

func (a *clubRepositoryAdapter) DeleteClub(ctx context.Context, id string) error {
	return a.repo.DeleteClub(ctx, id)
}

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationEvents(models), nil
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return application.Event(stored), nil
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	id, err := a.repo.CreateEvent(ctx, persistence.Event(event))
	if err != nil {
		return application.Event{}, err
	}
	return a.GetEvent(ctx, id)
}

func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, event application.Event) error {
	return a.repo.UpdateEvent(ctx, persistence.Event(event))
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

// WatchEvents converts every snapshot of the events collection. The returned
// channel closes when the underlying watch ends.
func (a *eventRepositoryAdapter) WatchEvents(ctx context.Context) (<-chan []application.Event, error) {
	source, err := a.repo.WatchEvents(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan []application.Event)
	go func() {
		defer close(out)
		for models := range source {
			select {
			case out <- toApplicationEvents(models):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

type featuredRepositoryAdapter struct {
	repo persistence.FeaturedRepository
}

func newFeaturedRepositoryAdapter(repo persistence.FeaturedRepository) *featuredRepositoryAdapter {
	return &featuredRepositoryAdapter{repo: repo}
}

func (a *featuredRepositoryAdapter) ListActivePointers(ctx context.Context) ([]application.FeaturedPointer, error) {
	models, err := a.repo.ListActivePointers(ctx)
	if err != nil {
		return nil, err
	}
	pointers := make([]application.FeaturedPointer, 0, len(models))
	for _, model := range models {
		pointers = append(pointers, application.FeaturedPointer(model))
	}
	return pointers, nil
}

func (a *featuredRepositoryAdapter) DeactivatePointer(ctx context.Context, id string) error {
	return a.repo.DeactivatePointer(ctx, id)
}

func (a *featuredRepositoryAdapter) InsertActivePointer(ctx context.Context, eventID string) (string, error) {
	return a.repo.InsertActivePointer(ctx, eventID)
}

func (a *featuredRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return application.Event(stored), nil
}

// InTransaction reports persistence.ErrTransactionsUnsupported when the
// wrapped repository cannot commit atomically, so the service falls back to
// the concurrent swap.
func (a *featuredRepositoryAdapter) InTransaction(ctx context.Context, fn func(ctx context.Context, repo application.FeaturedRepository) error) error {
	transactor, ok := a.repo.(persistence.FeaturedTransactor)
	if !ok {
		return persistence.ErrTransactionsUnsupported
	}
	return transactor.InTransaction(ctx, func(ctx context.Context, repo persistence.FeaturedRepository) error {
		return fn(ctx, newFeaturedRepositoryAdapter(repo))
	})
}

type credentialStoreAdapter struct {
	repo persistence.IdentityRepository
}

func newCredentialStoreAdapter(repo persistence.IdentityRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetCredentialsByEmail(ctx context.Context, email string) (application.Credentials, error) {
	identity, err := a.repo.GetIdentityByEmail(ctx, email)
	if err != nil {
		return application.Credentials{}, err
	}
	return application.Credentials{
		IdentityID:   identity.ID,
		Email:        identity.Email,
		PasswordHash: identity.PasswordHash,
		Disabled:     identity.Disabled,
	}, nil
}

type staffDirectoryAdapter struct {
	repo persistence.StaffRepository
}

func newStaffDirectoryAdapter(repo persistence.StaffRepository) *staffDirectoryAdapter {
	return &staffDirectoryAdapter{repo: repo}
}

func (a *staffDirectoryAdapter) GetStaff(ctx context.Context, id string) (application.Staff, error) {
	stored, err := a.repo.GetStaff(ctx, id)
	if err != nil {
		return application.Staff{}, err
	}
	return application.Staff(stored), nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func toClubRecord(shape persistence.ClubShape) application.ClubRecord {
	record := application.ClubRecord{Club: toApplicationClub(shape.Normalized())}
	if legacy, ok := shape.(persistence.LegacyClub); ok {
		record.Repaired = append([]string(nil), legacy.Repaired...)
	}
	return record
}

func toApplicationClub(model persistence.Club) application.Club {
	club := application.Club{
		ID:              model.ID,
		Name:            model.Name,
		Description:     model.Description,
		Category:        model.Category,
		Logo:            model.Logo,
		Mission:         model.Mission,
		EstablishedYear: model.EstablishedYear,
		EventsConducted: model.EventsConducted,
		Socials:         application.Socials(model.Socials),
		WhatWeDo:        append([]string(nil), model.WhatWeDo...),
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
	for _, event := range model.RecentEvents {
		club.RecentEvents = append(club.RecentEvents, application.RecentEvent(event))
	}
	for _, leader := range model.Leadership {
		club.Leadership = append(club.Leadership, application.Leader(leader))
	}
	return club
}

func toPersistenceClub(club application.Club) persistence.Club {
	model := persistence.Club{
		ID:              club.ID,
		Name:            club.Name,
		Description:     club.Description,
		Category:        club.Category,
		Logo:            club.Logo,
		Mission:         club.Mission,
		EstablishedYear: club.EstablishedYear,
		EventsConducted: club.EventsConducted,
		Socials:         persistence.Socials(club.Socials),
		WhatWeDo:        append([]string{}, club.WhatWeDo...),
		RecentEvents:    make([]persistence.RecentEvent, 0, len(club.RecentEvents)),
		Leadership:      make([]persistence.Leader, 0, len(club.Leadership)),
		CreatedAt:       club.CreatedAt,
		UpdatedAt:       club.UpdatedAt,
	}
	for _, event := range club.RecentEvents {
		model.RecentEvents = append(model.RecentEvents, persistence.RecentEvent(event))
	}
	for _, leader := range club.Leadership {
		model.Leadership = append(model.Leadership, persistence.Leader(leader))
	}
	return model
}

func toApplicationEvents(models []persistence.Event) []application.Event {
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, application.Event(model))
	}
	return events
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:         model.ID,
		IdentityID: model.IdentityID,
		Token:      model.Token,
		ExpiresAt:  model.ExpiresAt,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
		RevokedAt:  cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:         session.ID,
		IdentityID: session.IdentityID,
		Token:      session.Token,
		ExpiresAt:  session.ExpiresAt,
		CreatedAt:  session.CreatedAt,
		UpdatedAt:  session.UpdatedAt,
		RevokedAt:  cloneTime(session.RevokedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
