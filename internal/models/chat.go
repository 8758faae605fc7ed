package models

import (
	"strings"
	"time"
)

// Language is a UI language code.
type Language string

const (
	LangEnglish  Language = "en"
	LangAlbanian Language = "sq"
)

// ParseLanguage maps a client-supplied code to a known language. Anything
// unrecognised falls back to English.
func ParseLanguage(code string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(code))) {
	case LangAlbanian:
		return LangAlbanian
	default:
		return LangEnglish
	}
}

// Name is the English name used in prompts.
func (l Language) Name() string {
	if l == LangAlbanian {
		return "Albanian"
	}
	return "English"
}

// Welcome is the greeting shown at the top of a new chat.
func (l Language) Welcome() string {
	if l == LangAlbanian {
		return "Përshëndetje! Unë jam Sky, asistenti juaj i Skyline Digital. Si mund t'ju ndihmoj sot?"
	}
	return "Hi! I'm Sky, your Skyline Digital assistant. How can I help you today?"
}

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

type ChatMessage struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ChatSession is the widget transcript for one visitor.
type ChatSession struct {
	ID        string        `json:"session_id"`
	Language  Language      `json:"language"`
	Messages  []ChatMessage `json:"messages"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Append adds a message and keeps at most limit messages (0 means no cap).
func (s *ChatSession) Append(msg ChatMessage, limit int) {
	s.Messages = append(s.Messages, msg)
	if limit > 0 && len(s.Messages) > limit {
		s.Messages = s.Messages[len(s.Messages)-limit:]
	}
	s.UpdatedAt = msg.At
}

// BookingIntent is a booking draft extracted from free text.
type BookingIntent struct {
	IsBookingIntent bool   `json:"is_booking_intent"`
	Name            string `json:"name,omitempty"`
	Service         string `json:"service,omitempty"`
	Date            string `json:"date,omitempty"`
	Notes           string `json:"notes,omitempty"`
}
