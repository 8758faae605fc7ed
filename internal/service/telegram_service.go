package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"skyline/internal/domain"
	"skyline/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const notifyQueueSize = 64

// TelegramNotifier tells managers about new bookings and status changes.
// Event handlers only queue the text; Start delivers it.
type TelegramNotifier struct {
	bot        domain.TelegramSender
	managerIDs []int64
	outbox     chan string
	logger     *zerolog.Logger
}

// NewTelegramNotifier returns a notifier. With a nil bot every message is
// logged and skipped.
func NewTelegramNotifier(bot domain.TelegramSender, managerIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:        bot,
		managerIDs: managerIDs,
		outbox:     make(chan string, notifyQueueSize),
		logger:     logger,
	}
}

// Start delivers queued notifications until ctx is done.
func (n *TelegramNotifier) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-n.outbox:
			_ = n.Broadcast(text)
		}
	}
}

// Subscribe attaches the notifier to booking events on the bus.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.handle)
	bus.Subscribe(events.EventBookingStatusChanged, n.handle)
}

func (n *TelegramNotifier) handle(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return err
	}

	var text string
	switch event.Type {
	case events.EventBookingCreated:
		text = FormatBookingCreated(payload)
	case events.EventBookingStatusChanged:
		text = FormatStatusChanged(payload)
	default:
		return nil
	}

	select {
	case n.outbox <- text:
	default:
		n.logger.Warn().Str("event", event.Type).Msg("Telegram outbox full, notification dropped")
	}
	return nil
}

// Broadcast sends text to every manager chat and returns the joined send
// errors.
func (n *TelegramNotifier) Broadcast(text string) error {
	if n.bot == nil {
		n.logger.Debug().Msg("Telegram bot not configured, notification skipped")
		return nil
	}

	var errs []error
	for _, chatID := range n.managerIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.DisableWebPagePreview = true
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send telegram notification")
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func FormatBookingCreated(p events.BookingEventPayload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "New booking #%d\n", p.BookingID)
	fmt.Fprintf(&sb, "Name: %s\n", p.Name)
	fmt.Fprintf(&sb, "Email: %s\n", p.Email)
	fmt.Fprintf(&sb, "Service: %s\n", p.Service)
	fmt.Fprintf(&sb, "Date: %s", p.Date)
	if p.Notes != "" {
		fmt.Fprintf(&sb, "\nNotes: %s", p.Notes)
	}
	return sb.String()
}

func FormatStatusChanged(p events.BookingEventPayload) string {
	return fmt.Sprintf("Booking #%d (%s, %s) changed: %s -> %s",
		p.BookingID, p.Name, p.Service, p.PreviousStatus, p.Status)
}
