package application

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ClubForm is the editable state of a club. Numeric inputs stay strings
// until submission so partially typed values survive a failed save.
type ClubForm struct {
	Name            string            `schema:"name" validate:"required"`
	Description     string            `schema:"description" validate:"required"`
	Category        string            `schema:"category" validate:"required"`
	Logo            string            `schema:"logo" validate:"required"`
	Mission         string            `schema:"mission" validate:"required"`
	EstablishedYear string            `schema:"established_year" validate:"required"`
	EventsConducted string            `schema:"events_conducted" validate:"required"`
	Socials         SocialsForm       `schema:"socials"`
	WhatWeDo        []string          `schema:"what_we_do"`
	RecentEvents    []RecentEventForm `schema:"recent_events"`
	Leadership      []LeaderForm      `schema:"leadership"`
}

// SocialsForm holds the social link inputs of a club form.
type SocialsForm struct {
	Instagram string `schema:"instagram"`
	LinkedIn  string `schema:"linkedin"`
}

// RecentEventForm is one recent event row of a club form.
type RecentEventForm struct {
	Name         string `schema:"name"`
	Date         string `schema:"date"`
	Description  string `schema:"description"`
	Participants string `schema:"participants"`
}

// LeaderForm is one leadership row of a club form.
type LeaderForm struct {
	Role      string `schema:"role"`
	Name      string `schema:"name"`
	Email     string `schema:"email"`
	Phone     string `schema:"phone"`
	Instagram string `schema:"instagram"`
	LinkedIn  string `schema:"linkedin"`
}

// EventForm is the editable state of an event. Registrations are not part
// of it.
type EventForm struct {
	Title       string `schema:"title" validate:"required"`
	Description string `schema:"description"`
	Date        string `schema:"date" validate:"required"`
	Time        string `schema:"time" validate:"required"`
	Location    string `schema:"location" validate:"required"`
	Category    string `schema:"category" validate:"required"`
	Organizer   string `schema:"organizer" validate:"required"`
	Featured    bool   `schema:"featured"`
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("schema"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateForm runs the struct tag rules of form.
func validateForm(form any) *ValidationError {
	vErr := &ValidationError{}
	err := formValidator.Struct(form)
	if err == nil {
		return vErr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("form", err.Error())
		return vErr
	}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			vErr.add(fe.Field(), fe.Field()+" is required")
		default:
			vErr.add(fe.Field(), fe.Field()+" is invalid")
		}
	}
	return vErr
}

// parseCount converts a numeric form input. Blank input is zero; anything
// other than a whole number is recorded on vErr under field.
func parseCount(vErr *ValidationError, field, raw string) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		vErr.add(field, field+" must be a whole number")
		return 0
	}
	return n
}

func trimClubForm(form ClubForm) ClubForm {
	form.Name = strings.TrimSpace(form.Name)
	form.Description = strings.TrimSpace(form.Description)
	form.Category = strings.TrimSpace(form.Category)
	form.Logo = strings.TrimSpace(form.Logo)
	form.Mission = strings.TrimSpace(form.Mission)
	form.EstablishedYear = strings.TrimSpace(form.EstablishedYear)
	form.EventsConducted = strings.TrimSpace(form.EventsConducted)
	return form
}

func trimEventForm(form EventForm) EventForm {
	form.Title = strings.TrimSpace(form.Title)
	form.Description = strings.TrimSpace(form.Description)
	form.Date = strings.TrimSpace(form.Date)
	form.Time = strings.TrimSpace(form.Time)
	form.Location = strings.TrimSpace(form.Location)
	form.Category = strings.TrimSpace(form.Category)
	form.Organizer = strings.TrimSpace(form.Organizer)
	return form
}
