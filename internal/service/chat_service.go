package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skyline/internal/domain"
	"skyline/internal/metrics"
	"skyline/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultSystemInstruction = `You are the AI assistant for Skyline Digital, a business specializing in:
1. Drone Shooting (Cinematography, Inspections, Real Estate)
2. Video Editing (Color grading, Sound design, Motion graphics)
3. Web Development (React, Next.js, Full-stack solutions)

Your goal is to help users understand our services, answer questions about pricing (general ranges), and guide them to the booking form.
Be professional, creative, and helpful.`

const (
	ReplyConnectionFailed = "I am having trouble connecting right now. Please try again later."
	ReplyEmpty            = "Sorry, I encountered an error."
)

type ChatOptions struct {
	SystemInstruction string
	Timeout           time.Duration
	MaxMessages       int
	Catalogue         models.Catalogue
}

// ChatService relays widget messages to the chat model. Each call carries
// exactly one user message; the stored transcript is for display only.
type ChatService struct {
	model  domain.ChatModel
	store  domain.ChatStore
	opts   ChatOptions
	logger *zerolog.Logger
	now    func() time.Time
	newID  func() string
}

// NewChatService builds the relay. A nil model answers every message with the
// connection fallback; a nil store disables transcripts.
func NewChatService(model domain.ChatModel, store domain.ChatStore, opts ChatOptions, logger *zerolog.Logger) *ChatService {
	if opts.SystemInstruction == "" {
		opts.SystemInstruction = DefaultSystemInstruction
	}
	return &ChatService{
		model:  model,
		store:  store,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

type ChatReply struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

// BuildPrompt decorates the message with the reply-language instruction.
func BuildPrompt(message string, lang models.Language) string {
	return fmt.Sprintf("%s (Please respond in %s)", message, lang.Name())
}

// Reply sends one message to the model and returns its answer or a fallback
// string. Only an empty message is an error.
func (s *ChatService) Reply(ctx context.Context, sessionID, message, language string) (*ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	lang := models.ParseLanguage(language)

	reply := s.complete(ctx, BuildPrompt(message, lang))

	session := s.loadSession(ctx, sessionID, lang)
	now := s.now().UTC()
	session.Append(models.ChatMessage{Role: models.RoleUser, Content: message, At: now}, s.opts.MaxMessages)
	session.Append(models.ChatMessage{Role: models.RoleBot, Content: reply, At: now}, s.opts.MaxMessages)
	s.saveSession(ctx, session)

	return &ChatReply{Reply: reply, SessionID: session.ID}, nil
}

func (s *ChatService) complete(ctx context.Context, prompt string) string {
	if s.model == nil {
		metrics.IncChatReply("disabled")
		return ReplyConnectionFailed
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	text, err := s.model.Complete(callCtx, s.opts.SystemInstruction, prompt)
	if err != nil {
		metrics.IncChatReply("error")
		s.logger.Error().Err(err).Msg("Chat completion failed")
		return ReplyConnectionFailed
	}
	if strings.TrimSpace(text) == "" {
		metrics.IncChatReply("empty")
		s.logger.Warn().Msg("Chat completion returned no text")
		return ReplyEmpty
	}

	metrics.IncChatReply("ok")
	return text
}

func (s *ChatService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout > 0 {
		return context.WithTimeout(ctx, s.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// Transcript returns the stored conversation, or a fresh one holding only the
// welcome message.
func (s *ChatService) Transcript(ctx context.Context, sessionID, language string) *models.ChatSession {
	return s.loadSession(ctx, sessionID, models.ParseLanguage(language))
}

// EndSession forgets a conversation. Unknown ids are not an error.
func (s *ChatService) EndSession(ctx context.Context, sessionID string) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	return nil
}

func (s *ChatService) loadSession(ctx context.Context, id string, lang models.Language) *models.ChatSession {
	if id != "" && s.store != nil {
		session, err := s.store.GetSession(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to load chat session")
		}
		if session != nil {
			return session
		}
	}

	if id == "" {
		id = s.newID()
	}
	session := &models.ChatSession{ID: id, Language: lang}
	session.Append(models.ChatMessage{Role: models.RoleBot, Content: lang.Welcome(), At: s.now().UTC()}, s.opts.MaxMessages)
	return session
}

func (s *ChatService) saveSession(ctx context.Context, session *models.ChatSession) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to save chat session")
	}
}

// ExtractIntent asks the model whether text is a booking request and returns
// the draft it found. Any failure yields a negative intent.
func (s *ChatService) ExtractIntent(ctx context.Context, text string) (*models.BookingIntent, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if s.model == nil {
		return &models.BookingIntent{}, nil
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	intent, err := s.model.ExtractIntent(callCtx, text)
	if err != nil || intent == nil {
		s.logger.Error().Err(err).Msg("Booking intent extraction failed")
		return &models.BookingIntent{}, nil
	}

	if intent.Service != "" {
		intent.Service = s.opts.Catalogue.Match(intent.Service)
	}
	return intent, nil
}
