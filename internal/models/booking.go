package models

import "time"

// Booking is one row of the bookings table.
type Booking struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Service   string    `json:"service"`
	Date      string    `json:"date"`
	Status    string    `json:"status"` // pending, confirmed, completed, cancelled
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBooking is the client-supplied part of a booking.
type NewBooking struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Service string `json:"service"`
	Date    string `json:"date"`
	Notes   string `json:"notes"`
}
