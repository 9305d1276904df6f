// Package suggest proposes a category and a short description for a new
// bookmark.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

// ErrDisabled is returned when no model is configured.
var ErrDisabled = errors.New("category suggestion is not configured")

// DefaultModel is used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Suggestion is a proposed category and notes.
type Suggestion struct {
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

// Suggester proposes metadata for url and title. existing lists the
// categories already in use so the answer stays consistent with them.
type Suggester interface {
	Suggest(ctx context.Context, url, title string, existing []string) (*Suggestion, error)
}

// Disabled always fails with ErrDisabled.
type Disabled struct{}

func (Disabled) Suggest(context.Context, string, string, []string) (*Suggestion, error) {
	return nil, ErrDisabled
}

// generateFunc returns the raw JSON text answered for prompt.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// Gemini asks a Gemini model for a JSON suggestion.
type Gemini struct {
	model    string
	generate generateFunc
	logger   logger.Logger
}

// NewGemini creates a suggester for apiKey. An empty key yields Disabled.
func NewGemini(ctx context.Context, apiKey, model string, log logger.Logger) (Suggester, error) {
	if apiKey == "" {
		return Disabled{}, nil
	}
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = logger.Nop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	g := &Gemini{model: model, logger: log}
	g.generate = func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), generateConfig())
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return g, nil
}

func generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {Type: genai.TypeString, Description: "Suggested category name"},
				"notes":    {Type: genai.TypeString, Description: "Generated description of the page"},
			},
			Required: []string{"category", "notes"},
		},
		// simple classification, no thinking
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	}
}

// Name identifies the model.
func (g *Gemini) Name() string { return "genai:" + g.model }

// Suggest returns nil, nil when the model answers nothing.
func (g *Gemini) Suggest(ctx context.Context, url, title string, existing []string) (*Suggestion, error) {
	text, err := g.generate(ctx, Prompt(url, title, existing))
	if err != nil {
		g.logger.Warn("category suggestion failed", logger.String("url", url), logger.Error(err))
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return parse(text)
}

func parse(text string) (*Suggestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	var s Suggestion
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("suggest: malformed answer: %w", err)
	}
	s.Category = strings.TrimSpace(s.Category)
	s.Notes = strings.TrimSpace(s.Notes)
	return &s, nil
}

// Prompt builds the instruction sent to the model.
func Prompt(url, title string, existing []string) string {
	var b strings.Builder
	b.WriteString("You are a bookmark organizing assistant.\n")
	b.WriteString("Predict the best category for the page below and describe the site briefly.\n\n")
	b.WriteString("Categories already in use (prefer one of them to stay consistent): ")
	b.WriteString(strings.Join(existing, ", "))
	b.WriteString("\n\nPage:\nURL: ")
	b.WriteString(url)
	b.WriteString("\nTitle: ")
	b.WriteString(title)
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Classify servers, learning and education sites, and chip vendor sites precisely.\n")
	b.WriteString("2. If no existing category fits, create a concise new one of one to three words.\n")
	b.WriteString("3. The notes state the core purpose of the site.\n")
	b.WriteString("4. Answer with JSON only.\n")
	return b.String()
}
