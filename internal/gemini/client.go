package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"skyline/internal/models"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

var ErrNoAPIKey = errors.New("gemini api key is empty")

// generator is the subset of *genai.Models the client uses.
type generator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Client talks to the Gemini API. It implements domain.ChatModel.
type Client struct {
	models generator
	model  string
	logger *zerolog.Logger
}

func NewClient(ctx context.Context, apiKey, model string, logger *zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newClient(c.Models, model, logger), nil
}

func newClient(g generator, model string, logger *zerolog.Logger) *Client {
	l := logger.With().Str("component", "gemini").Str("model", model).Logger()
	return &Client{models: g, model: model, logger: &l}
}

// Complete sends a single prompt with the given system instruction and
// returns the response text, which may be empty.
func (c *Client) Complete(ctx context.Context, systemInstruction, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

var intentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isBookingIntent": {Type: genai.TypeBoolean},
		"name":            {Type: genai.TypeString},
		"service":         {Type: genai.TypeString, Description: "One of: Drone, Video, Web"},
		"date":            {Type: genai.TypeString, Description: "ISO date format if mentioned"},
		"notes":           {Type: genai.TypeString},
	},
	Required: []string{"isBookingIntent"},
}

type intentResponse struct {
	IsBookingIntent bool   `json:"isBookingIntent"`
	Name            string `json:"name"`
	Service         string `json:"service"`
	Date            string `json:"date"`
	Notes           string `json:"notes"`
}

// ExtractIntent asks for a structured booking draft from free text.
func (c *Client) ExtractIntent(ctx context.Context, text string) (*models.BookingIntent, error) {
	prompt := fmt.Sprintf("Analyze this user request and extract booking details if present: %q", text)
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   intentSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return nil, errors.New("empty intent response")
	}

	var parsed intentResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		c.logger.Debug().Str("raw", raw).Msg("Unparseable intent response")
		return nil, fmt.Errorf("decode intent: %w", err)
	}

	return &models.BookingIntent{
		IsBookingIntent: parsed.IsBookingIntent,
		Name:            parsed.Name,
		Service:         parsed.Service,
		Date:            parsed.Date,
		Notes:           parsed.Notes,
	}, nil
}
