package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/student-affairs/internal/notify"
	"github.com/example/student-affairs/internal/persistence"
)

// ManagerMessages are the notification titles a Manager emits.
type ManagerMessages struct {
	ListFailed   string
	Created      string
	Updated      string
	SaveFailed   string
	Deleted      string
	DeleteFailed string
}

// EntityOps binds a Manager to one collection. FromForm validates and
// coerces a submitted form; ToForm loads a stored entity for editing.
type EntityOps[T, F any] struct {
	Name     string
	List     func(ctx context.Context) ([]T, error)
	Create   func(ctx context.Context, entity T) (T, error)
	Update   func(ctx context.Context, id string, entity T) error
	Delete   func(ctx context.Context, id string) error
	Load     func(ctx context.Context, id string) (F, error)
	FromForm func(form F) (T, *ValidationError)
	NewForm  func() F
	Messages ManagerMessages
}

// Manager implements fetch-all and form driven create, update and delete
// against one collection. Results are reported to the caller and, as
// notifications, to the notifier carried by the context.
type Manager[T, F any] struct {
	ops    EntityOps[T, F]
	logger *slog.Logger
}

// NewManager constructs a manager from its collection bindings.
func NewManager[T, F any](ops EntityOps[T, F], logger *slog.Logger) *Manager[T, F] {
	return &Manager[T, F]{ops: ops, logger: defaultLogger(logger)}
}

func (m *Manager[T, F]) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, m.logger, m.serviceName(), operation, attrs...)
}

func (m *Manager[T, F]) serviceName() string {
	if m.ops.Name == "" {
		return "Manager"
	}
	return strings.ToUpper(m.ops.Name[:1]) + m.ops.Name[1:] + "Manager"
}

// List fetches every entity. A failing store yields an empty list and an
// error notification rather than an error.
func (m *Manager[T, F]) List(ctx context.Context) []T {
	logger := m.loggerWith(ctx, "List")

	items, err := m.ops.List(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list "+m.ops.Name+"s", "error", err, "error_kind", ErrorKind(err))
		notify.Error(ctx, m.ops.Messages.ListFailed, "")
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	logger.With("result_count", len(items)).DebugContext(ctx, m.ops.Name+"s listed")
	return items
}

// Create validates the form and stores a new entity.
func (m *Manager[T, F]) Create(ctx context.Context, params CreateParams[F]) (entity T, err error) {
	if m == nil {
		err = fmt.Errorf("Manager is nil")
		return
	}

	logger := m.loggerWith(ctx, "Create", "principal_id", params.Principal.StaffID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create "+m.ops.Name, "error", err, "error_kind", ErrorKind(err))
			notify.Error(ctx, m.ops.Messages.SaveFailed, userMessage(err))
			return
		}
		logger.InfoContext(ctx, m.ops.Name+" created")
		notify.Success(ctx, m.ops.Messages.Created)
	}()

	if !params.Principal.Authenticated() {
		err = ErrUnauthorized
		return
	}

	candidate, vErr := m.ops.FromForm(params.Form)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	entity, err = m.ops.Create(ctx, candidate)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// Update validates the form and overwrites an existing entity.
func (m *Manager[T, F]) Update(ctx context.Context, params UpdateParams[F]) (err error) {
	if m == nil {
		return fmt.Errorf("Manager is nil")
	}

	logger := m.loggerWith(ctx, "Update",
		"principal_id", params.Principal.StaffID,
		m.ops.Name+"_id", params.ID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update "+m.ops.Name, "error", err, "error_kind", ErrorKind(err))
			notify.Error(ctx, m.ops.Messages.SaveFailed, userMessage(err))
			return
		}
		logger.InfoContext(ctx, m.ops.Name+" updated")
		notify.Success(ctx, m.ops.Messages.Updated)
	}()

	if !params.Principal.Authenticated() {
		return ErrUnauthorized
	}
	if strings.TrimSpace(params.ID) == "" {
		return ErrNotFound
	}

	candidate, vErr := m.ops.FromForm(params.Form)
	if vErr.HasErrors() {
		return vErr
	}

	return mapRepoError(m.ops.Update(ctx, params.ID, candidate))
}

// Delete removes an entity once the caller confirmed the action.
func (m *Manager[T, F]) Delete(ctx context.Context, params DeleteParams) (err error) {
	if m == nil {
		return fmt.Errorf("Manager is nil")
	}
	if !params.Principal.Authenticated() {
		return ErrUnauthorized
	}
	if !params.Confirmed {
		return ErrConfirmationRequired
	}

	logger := m.loggerWith(ctx, "Delete",
		"principal_id", params.Principal.StaffID,
		m.ops.Name+"_id", params.ID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete "+m.ops.Name, "error", err, "error_kind", ErrorKind(err))
			notify.Error(ctx, m.ops.Messages.DeleteFailed, userMessage(err))
			return
		}
		logger.InfoContext(ctx, m.ops.Name+" deleted")
		notify.Success(ctx, m.ops.Messages.Deleted)
	}()

	return mapRepoError(m.ops.Delete(ctx, params.ID))
}

// Edit loads an entity into form state.
func (m *Manager[T, F]) Edit(ctx context.Context, id string) (form F, err error) {
	if m == nil {
		err = fmt.Errorf("Manager is nil")
		return
	}
	form, err = m.ops.Load(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		m.loggerWith(ctx, "Edit", m.ops.Name+"_id", id).
			ErrorContext(ctx, "failed to load "+m.ops.Name, "error", err, "error_kind", ErrorKind(err))
	}
	return
}

// NewForm returns the blank form template.
func (m *Manager[T, F]) NewForm() F {
	return m.ops.NewForm()
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}

// userMessage describes err for display next to a failure notification.
func userMessage(err error) string {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return "Please correct the highlighted fields"
	case errors.Is(err, ErrUnauthorized):
		return "You must be signed in as staff"
	case errors.Is(err, ErrNotFound):
		return "The record no longer exists"
	default:
		return ""
	}
}
