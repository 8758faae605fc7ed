package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skyline/internal/models"
)

// FormState is the booking form's lifecycle.
type FormState int

const (
	FormIdle FormState = iota
	FormLoading
	FormSuccess
	FormError
)

func (s FormState) String() string {
	switch s {
	case FormIdle:
		return "idle"
	case FormLoading:
		return "loading"
	case FormSuccess:
		return "success"
	case FormError:
		return "error"
	default:
		return fmt.Sprintf("FormState(%d)", int(s))
	}
}

var formTransitions = map[FormState][]FormState{
	FormIdle:    {FormLoading},
	FormLoading: {FormSuccess, FormError},
	FormSuccess: {FormIdle},
	FormError:   {FormLoading},
}

// CanTransition reports whether the form may move from s to next.
func (s FormState) CanTransition(next FormState) bool {
	for _, allowed := range formTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var ErrInvalidFormTransition = errors.New("invalid form transition")

// ValidationError lists fields that failed the required/format checks.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// BookingCreator is the part of Client the form needs.
type BookingCreator interface {
	CreateBooking(ctx context.Context, in models.NewBooking) (*CreateResponse, error)
}

// BookingForm holds the fields of one booking submission and drives a single
// Create round trip per Submit.
type BookingForm struct {
	Fields         models.NewBooking
	defaultService string
	state          FormState
	lastID         int64
	lastErr        error
}

func NewBookingForm(defaultService string) *BookingForm {
	if defaultService == "" {
		defaultService = models.Catalogue(nil).Default()
	}
	f := &BookingForm{defaultService: defaultService}
	f.clear()
	return f
}

func (f *BookingForm) State() FormState { return f.state }

// BookingID is the id returned by the last successful submit.
func (f *BookingForm) BookingID() int64 { return f.lastID }

// Err is the failure of the last submit, if it ended in FormError.
func (f *BookingForm) Err() error { return f.lastErr }

// Validate runs the checks a browser form would: required fields, an "@" in
// the email and a YYYY-MM-DD date.
func (f *BookingForm) Validate() error {
	var bad []string
	if strings.TrimSpace(f.Fields.Name) == "" {
		bad = append(bad, "name")
	}
	if email := strings.TrimSpace(f.Fields.Email); email == "" || !strings.Contains(email, "@") {
		bad = append(bad, "email")
	}
	if strings.TrimSpace(f.Fields.Service) == "" {
		bad = append(bad, "service")
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(f.Fields.Date)); err != nil {
		bad = append(bad, "date")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

// Submit validates the fields and sends them. Validation failures leave the
// state untouched; a failed request ends in FormError, from which Submit may
// be called again.
func (f *BookingForm) Submit(ctx context.Context, api BookingCreator) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := f.transition(FormLoading); err != nil {
		return err
	}

	resp, err := api.CreateBooking(ctx, f.Fields)
	if err != nil {
		f.lastErr = err
		_ = f.transition(FormError)
		return err
	}

	f.lastID = resp.ID
	f.lastErr = nil
	return f.transition(FormSuccess)
}

// Reset returns a successful form to Idle with cleared fields.
func (f *BookingForm) Reset() error {
	if err := f.transition(FormIdle); err != nil {
		return err
	}
	f.clear()
	return nil
}

func (f *BookingForm) transition(next FormState) error {
	if !f.state.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidFormTransition, f.state, next)
	}
	f.state = next
	return nil
}

func (f *BookingForm) clear() {
	f.Fields = models.NewBooking{Service: f.defaultService}
	f.lastID = 0
	f.lastErr = nil
}
