package domain

import (
	"context"

	"skyline/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status string) error
	UpdateBookingStatusFrom(ctx context.Context, id int64, from, to string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error
}

// ChatStore keeps widget transcripts keyed by session id.
type ChatStore interface {
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	SaveSession(ctx context.Context, session *models.ChatSession) error
	DeleteSession(ctx context.Context, id string) error
}

// ChatModel is the generative-AI backend behind the chat widget.
type ChatModel interface {
	Complete(ctx context.Context, systemInstruction, prompt string) (string, error)
	ExtractIntent(ctx context.Context, text string) (*models.BookingIntent, error)
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
