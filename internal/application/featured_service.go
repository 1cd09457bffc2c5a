package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/example/student-affairs/internal/notify"
	"github.com/example/student-affairs/internal/persistence"
)

// FeaturedRepository captures the pointer and event lookups needed by the
// featured event service.
type FeaturedRepository interface {
	ListActivePointers(ctx context.Context) ([]FeaturedPointer, error)
	DeactivatePointer(ctx context.Context, id string) error
	InsertActivePointer(ctx context.Context, eventID string) (string, error)
	GetEvent(ctx context.Context, id string) (Event, error)
}

// FeaturedTransactor is implemented by repositories able to apply a pointer
// swap atomically.
type FeaturedTransactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context, repo FeaturedRepository) error) error
}

// Featured event notifications.
const (
	FeaturedUpdatedMessage = "Featured event updated successfully"
	FeaturedFailedMessage  = "Failed to update featured event"
	FeaturedSelectMessage  = "Please select an event"
)

// FeaturedService maintains the single active featured event pointer.
type FeaturedService struct {
	repo   FeaturedRepository
	atomic bool
	logger *slog.Logger
}

// NewFeaturedService constructs the service. When atomic is set and repo
// implements FeaturedTransactor, pointer swaps run in one transaction.
func NewFeaturedService(repo FeaturedRepository, atomic bool) *FeaturedService {
	return NewFeaturedServiceWithLogger(repo, atomic, nil)
}

// NewFeaturedServiceWithLogger constructs the service with a specified logger.
func NewFeaturedServiceWithLogger(repo FeaturedRepository, atomic bool, logger *slog.Logger) *FeaturedService {
	return &FeaturedService{repo: repo, atomic: atomic, logger: defaultLogger(logger)}
}

func (s *FeaturedService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "FeaturedService", operation, attrs...)
}

// CurrentFeatured resolves the active pointer to its event. When several
// pointers are active the most recently activated wins, ties broken by the
// greater pointer id. ErrNotFound is returned when there is no active pointer
// or its event is gone.
func (s *FeaturedService) CurrentFeatured(ctx context.Context) (event Event, err error) {
	if s == nil || s.repo == nil {
		err = fmt.Errorf("FeaturedService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "CurrentFeatured")
	defer func() {
		if err != nil && !errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to resolve featured event", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var pointers []FeaturedPointer
	pointers, err = s.repo.ListActivePointers(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	pointer, ok := pickActivePointer(pointers)
	if !ok {
		err = ErrNotFound
		return
	}
	if len(pointers) > 1 {
		logger.WarnContext(ctx, "multiple active featured pointers", "count", len(pointers), "chosen_pointer_id", pointer.ID)
	}

	event, err = s.repo.GetEvent(ctx, pointer.EventID)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

func pickActivePointer(pointers []FeaturedPointer) (FeaturedPointer, bool) {
	active := make([]FeaturedPointer, 0, len(pointers))
	for _, pointer := range pointers {
		if pointer.IsActive {
			active = append(active, pointer)
		}
	}
	if len(active) == 0 {
		return FeaturedPointer{}, false
	}
	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].ActivatedAt.Equal(active[j].ActivatedAt) {
			return active[i].ActivatedAt.After(active[j].ActivatedAt)
		}
		return active[i].ID > active[j].ID
	})
	return active[0], true
}

// SetFeatured makes eventID the only active featured pointer.
func (s *FeaturedService) SetFeatured(ctx context.Context, params SetFeaturedParams) (err error) {
	if s == nil || s.repo == nil {
		return fmt.Errorf("FeaturedService is not configured")
	}

	eventID := strings.TrimSpace(params.EventID)
	logger := s.loggerWith(ctx, "SetFeatured",
		"principal_id", params.Principal.StaffID,
		"event_id", eventID,
	)

	if !params.Principal.Authenticated() {
		logger.ErrorContext(ctx, "featured update rejected", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}
	if eventID == "" {
		vErr := &ValidationError{}
		vErr.add("event_id", FeaturedSelectMessage)
		notify.Error(ctx, FeaturedSelectMessage, "")
		return vErr
	}

	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update featured event", "error", err, "error_kind", ErrorKind(err))
			notify.Error(ctx, FeaturedFailedMessage, userMessage(err))
			return
		}
		logger.InfoContext(ctx, "featured event updated")
		notify.Success(ctx, FeaturedUpdatedMessage)
	}()

	if transactor, ok := s.repo.(FeaturedTransactor); ok && s.atomic {
		err = transactor.InTransaction(ctx, func(ctx context.Context, tx FeaturedRepository) error {
			if err := requireEvent(ctx, tx, eventID); err != nil {
				return err
			}
			return swapSequential(ctx, tx, eventID)
		})
		if !errors.Is(err, persistence.ErrTransactionsUnsupported) {
			err = mapRepoError(err)
			return
		}
		logger.WarnContext(ctx, "store lacks transactions, swapping featured pointer without atomicity")
	}

	if err = requireEvent(ctx, s.repo, eventID); err != nil {
		return
	}
	err = mapRepoError(swapConcurrent(ctx, s.repo, eventID))
	return
}

func requireEvent(ctx context.Context, repo FeaturedRepository, eventID string) error {
	if _, err := repo.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: event %s does not exist", ErrNotFound, eventID)
		}
		return err
	}
	return nil
}

func swapSequential(ctx context.Context, repo FeaturedRepository, eventID string) error {
	pointers, err := repo.ListActivePointers(ctx)
	if err != nil {
		return err
	}
	for _, pointer := range pointers {
		if err := repo.DeactivatePointer(ctx, pointer.ID); err != nil {
			return err
		}
	}
	_, err = repo.InsertActivePointer(ctx, eventID)
	return err
}

// swapConcurrent deactivates every active pointer concurrently and inserts
// the new pointer once all deactivations succeeded. A failure part way
// leaves the earlier writes in place.
func swapConcurrent(ctx context.Context, repo FeaturedRepository, eventID string) error {
	pointers, err := repo.ListActivePointers(ctx)
	if err != nil {
		return err
	}

	var group errgroup.Group
	for _, pointer := range pointers {
		id := pointer.ID
		group.Go(func() error {
			return repo.DeactivatePointer(ctx, id)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	_, err = repo.InsertActivePointer(ctx, eventID)
	return err
}
