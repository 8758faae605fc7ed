package models

import (
	"strings"
	"time"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Statuses lists every booking status in lifecycle order.
var Statuses = []string{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// IsValidStatus reports whether s is one of the known booking statuses.
func IsValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// ParseStatus normalises case and surrounding space and reports whether the
// result is a known status.
func ParseStatus(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, IsValidStatus(s)
}

// IsTerminal reports whether no further transition is allowed from s.
func IsTerminal(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether a booking may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to string) bool {
	if !IsValidStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

const (
	TaskUpsert       = "upsert"
	TaskUpdateStatus = "update_status"
)

const (
	// DefaultChatTTL how long a chat transcript is kept
	DefaultChatTTL = 24 * time.Hour

	// MaxChatMessages transcript length cap per session
	MaxChatMessages = 100

	// SheetsCacheTTL lifetime of the Sheets row cache
	SheetsCacheTTL = time.Hour
)
