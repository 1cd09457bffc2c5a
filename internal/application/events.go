package application

import (
	"context"
	"log/slog"
)

// EventRepository captures the persistence operations needed by the event manager.
type EventRepository interface {
	ListEvents(ctx context.Context) ([]Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	CreateEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// EventManager manages the events collection.
type EventManager = Manager[Event, EventForm]

// EventMessages are the notifications emitted by the event manager.
var EventMessages = ManagerMessages{
	ListFailed:   "Failed to fetch events",
	Created:      "Event created successfully",
	Updated:      "Event updated successfully",
	SaveFailed:   "Failed to save event",
	Deleted:      "Event deleted successfully",
	DeleteFailed: "Failed to delete event",
}

// NewEventManager constructs the event manager.
func NewEventManager(events EventRepository, logger *slog.Logger) *EventManager {
	return NewManager(EntityOps[Event, EventForm]{
		Name:   "event",
		List:   events.ListEvents,
		Create: events.CreateEvent,
		Update: func(ctx context.Context, id string, event Event) error {
			event.ID = id
			return events.UpdateEvent(ctx, event)
		},
		Delete: events.DeleteEvent,
		Load: func(ctx context.Context, id string) (EventForm, error) {
			event, err := events.GetEvent(ctx, id)
			if err != nil {
				return EventForm{}, err
			}
			return EventFormFromEvent(event), nil
		},
		FromForm: EventFromForm,
		NewForm:  func() EventForm { return EventForm{} },
		Messages: EventMessages,
	}, logger)
}

// EventFormFromEvent loads a stored event into form state.
func EventFormFromEvent(event Event) EventForm {
	return EventForm{
		Title:       event.Title,
		Description: event.Description,
		Date:        event.Date,
		Time:        event.Time,
		Location:    event.Location,
		Category:    event.Category,
		Organizer:   event.Organizer,
		Featured:    event.Featured,
	}
}

// EventFromForm validates a submitted event form. Registrations are never
// taken from the form.
func EventFromForm(form EventForm) (Event, *ValidationError) {
	form = trimEventForm(form)
	vErr := validateForm(form)
	return Event{
		Title:       form.Title,
		Description: form.Description,
		Date:        form.Date,
		Time:        form.Time,
		Location:    form.Location,
		Category:    form.Category,
		Organizer:   form.Organizer,
		Featured:    form.Featured,
	}, vErr
}
