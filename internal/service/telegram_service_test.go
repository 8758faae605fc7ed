package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"skyline/internal/events"
	"skyline/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func TestTelegramNotifier(t *testing.T) {
	logger := zerolog.New(io.Discard)
	booking := &models.Booking{ID: 5, Name: "Ana", Email: "ana@example.com", Service: "Web Development", Date: "2025-09-01", Status: models.StatusPending}

	t.Run("BookingCreatedReachesEveryManager", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sender := new(mockTelegramSender)
		n := NewTelegramNotifier(sender, []int64{100, 200}, &logger)
		bus := events.NewEventBus()
		n.Subscribe(bus)
		go n.Start(ctx)

		sent := make(chan int64, 2)
		for _, id := range []int64{100, 200} {
			chatID := id
			sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
				msg, ok := c.(tgbotapi.MessageConfig)
				return ok && msg.ChatID == chatID && strings.Contains(msg.Text, "New booking #5")
			})).Return(tgbotapi.Message{}, nil).Run(func(mock.Arguments) { sent <- chatID }).Once()
		}

		require.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.NewBookingPayload(booking, "")))
		assert.Equal(t, int64(100), waitSent(t, sent))
		assert.Equal(t, int64(200), waitSent(t, sent))
		sender.AssertExpectations(t)
	})

	t.Run("StatusChanged", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sender := new(mockTelegramSender)
		n := NewTelegramNotifier(sender, []int64{100}, &logger)
		bus := events.NewEventBus()
		n.Subscribe(bus)
		go n.Start(ctx)

		sent := make(chan int64, 1)
		confirmed := *booking
		confirmed.Status = models.StatusConfirmed
		sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && strings.Contains(msg.Text, "pending -> confirmed")
		})).Return(tgbotapi.Message{}, nil).Run(func(mock.Arguments) { sent <- 100 }).Once()

		require.NoError(t, bus.PublishJSON(events.EventBookingStatusChanged, events.NewBookingPayload(&confirmed, models.StatusPending)))
		waitSent(t, sent)
		sender.AssertExpectations(t)
	})

	t.Run("FullOutboxDropsInsteadOfBlocking", func(t *testing.T) {
		sender := new(mockTelegramSender)
		n := NewTelegramNotifier(sender, []int64{1}, &logger)
		bus := events.NewEventBus()
		n.Subscribe(bus)

		for i := 0; i < notifyQueueSize+5; i++ {
			require.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.NewBookingPayload(booking, "")))
		}
		assert.Len(t, n.outbox, notifyQueueSize)
		sender.AssertNotCalled(t, "Send", mock.Anything)
	})

	t.Run("SendErrorsAreJoined", func(t *testing.T) {
		sender := new(mockTelegramSender)
		n := NewTelegramNotifier(sender, []int64{1, 2}, &logger)
		sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("blocked")).Twice()

		err := n.Broadcast("hi")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "chat 1")
		assert.Contains(t, err.Error(), "chat 2")
	})

	t.Run("NilBotSkips", func(t *testing.T) {
		n := NewTelegramNotifier(nil, []int64{1}, &logger)
		assert.NoError(t, n.Broadcast("hi"))
	})
}

func TestCreateBooking_SlowTelegramDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := zerolog.New(io.Discard)

	sender := new(mockTelegramSender)
	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, nil).Run(func(mock.Arguments) {
		time.Sleep(300 * time.Millisecond)
	})
	bus := events.NewEventBus()
	n := NewTelegramNotifier(sender, []int64{1, 2}, &logger)
	n.Subscribe(bus)
	go n.Start(ctx)

	repo := new(mockRepo)
	repo.On("CreateBooking", mock.Anything, mock.Anything).Return(nil)
	svc := NewBookingService(repo, bus, nil, true, &logger)

	start := time.Now()
	_, err := svc.CreateBooking(ctx, models.NewBooking{Name: "Ana", Email: "ana@example.com", Service: "Drone Shooting", Date: "2025-05-01"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func waitSent(t *testing.T, sent <-chan int64) int64 {
	t.Helper()
	select {
	case id := <-sent:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not sent")
		return 0
	}
}

func TestFormatBookingCreated(t *testing.T) {
	text := FormatBookingCreated(events.BookingEventPayload{BookingID: 1, Name: "Ana", Service: "Video Editing", Date: "2025-01-01"})
	assert.Contains(t, text, "Service: Video Editing")
	assert.NotContains(t, text, "Notes:")

	text = FormatBookingCreated(events.BookingEventPayload{BookingID: 1, Notes: "wedding"})
	assert.Contains(t, text, "Notes: wedding")
}
