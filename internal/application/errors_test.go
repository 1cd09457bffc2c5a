package application

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("nil ValidationError should render empty, got %q", err.Error())
	}
	withFields := &ValidationError{FieldErrors: map[string]string{"name": "name is required"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("unexpected message %q", got)
	}
	if !withFields.HasErrors() || (&ValidationError{}).HasErrors() || err.HasErrors() {
		t.Fatal("HasErrors should only report recorded fields")
	}
}

func TestValidationError_FirstMessageWins(t *testing.T) {
	t.Parallel()

	// A blank count fails the required rule before coercion reports it too.
	vErr := &ValidationError{}
	vErr.add("events_conducted", "events_conducted is required")
	vErr.add("events_conducted", "events_conducted must be a whole number")
	vErr.add("recent_events.0.participants", "recent_events.0.participants must be a whole number")

	vErr.merge(&ValidationError{FieldErrors: map[string]string{
		"events_conducted": "events_conducted is invalid",
		"name":             "name is required",
	}})
	vErr.merge(nil)

	want := map[string]string{
		"events_conducted":             "events_conducted is required",
		"recent_events.0.participants": "recent_events.0.participants must be a whole number",
		"name":                         "name is required",
	}
	if diff := cmp.Diff(want, vErr.FieldErrors); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFormReportsEachFieldOnce(t *testing.T) {
	t.Parallel()

	form := completeClubForm("Chess")
	form.EventsConducted = "five"
	_, vErr := ClubFromForm(form)
	if diff := cmp.Diff(map[string]string{"events_conducted": "events_conducted must be a whole number"}, vErr.FieldErrors); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}
