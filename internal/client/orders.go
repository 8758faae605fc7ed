package client

import (
	"context"
	"fmt"
	"strings"

	"skyline/internal/models"
)

const EmptyMessage = "No bookings found."

// Action is an operator affordance on a booking.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

var actionTargets = map[Action]string{
	ActionConfirm:  models.StatusConfirmed,
	ActionComplete: models.StatusCompleted,
	ActionCancel:   models.StatusCancelled,
}

// ParseAction maps a command word to an Action.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	_, ok := actionTargets[a]
	return a, ok
}

// TargetStatus is the status an action sets.
func (a Action) TargetStatus() string {
	return actionTargets[a]
}

// Actions returns what an operator can do with b in its current status.
func Actions(b models.Booking) []Action {
	if models.IsTerminal(b.Status) {
		return nil
	}
	switch b.Status {
	case models.StatusPending:
		return []Action{ActionConfirm, ActionCancel}
	case models.StatusConfirmed:
		return []Action{ActionComplete, ActionCancel}
	default:
		return nil
	}
}

// BookingAPI is the part of Client the order manager needs.
type BookingAPI interface {
	ListBookings(ctx context.Context) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// OrderManager keeps the last fetched booking list. Every change is followed
// by a full re-fetch; nothing is updated locally.
type OrderManager struct {
	api      BookingAPI
	bookings []models.Booking
}

func NewOrderManager(api BookingAPI) *OrderManager {
	return &OrderManager{api: api}
}

func (m *OrderManager) Refresh(ctx context.Context) error {
	bookings, err := m.api.ListBookings(ctx)
	if err != nil {
		return err
	}
	m.bookings = bookings
	return nil
}

// Bookings returns every record from the last refresh.
func (m *OrderManager) Bookings() []models.Booking {
	return m.bookings
}

// Visible filters the loaded records by a case-insensitive substring of name
// or service. The stored list is not modified.
func (m *OrderManager) Visible(filter string) []models.Booking {
	needle := strings.ToLower(strings.TrimSpace(filter))
	out := make([]models.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		if needle == "" ||
			strings.Contains(strings.ToLower(b.Name), needle) ||
			strings.Contains(strings.ToLower(b.Service), needle) {
			out = append(out, b)
		}
	}
	return out
}

// Apply sends the status change for action and then reloads the list, even
// when the update failed.
func (m *OrderManager) Apply(ctx context.Context, id int64, action Action) error {
	status := action.TargetStatus()
	if status == "" {
		return fmt.Errorf("unknown action %q", action)
	}

	updateErr := m.api.UpdateStatus(ctx, id, status)
	if err := m.Refresh(ctx); err != nil && updateErr == nil {
		return err
	}
	return updateErr
}
