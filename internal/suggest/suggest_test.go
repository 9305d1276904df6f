package suggest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

func fakeGemini(answer string, err error, seen *string) *Gemini {
	return &Gemini{
		model:  "test",
		logger: logger.Nop(),
		generate: func(_ context.Context, prompt string) (string, error) {
			if seen != nil {
				*seen = prompt
			}
			return answer, err
		},
	}
}

func TestSuggest(t *testing.T) {
	var prompt string
	g := fakeGemini(`{"category":" Dev ","notes":"The Go website"}`, nil, &prompt)

	s, err := g.Suggest(context.Background(), "https://go.dev", "Go", []string{"Dev", "News"})
	require.NoError(t, err)
	assert.Equal(t, &Suggestion{Category: "Dev", Notes: "The Go website"}, s)
	assert.Contains(t, prompt, "URL: https://go.dev")
	assert.Contains(t, prompt, "Title: Go")
	assert.Contains(t, prompt, "Dev, News")
}

func TestSuggestEmptyAnswer(t *testing.T) {
	s, err := fakeGemini("  ", nil, nil).Suggest(context.Background(), "u", "t", nil)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSuggestFailures(t *testing.T) {
	_, err := fakeGemini("not json", nil, nil).Suggest(context.Background(), "u", "t", nil)
	assert.ErrorContains(t, err, "malformed")

	boom := errors.New("quota exceeded")
	_, err = fakeGemini("", boom, nil).Suggest(context.Background(), "u", "t", nil)
	assert.ErrorIs(t, err, boom)
}

func TestDisabledWithoutKey(t *testing.T) {
	s, err := NewGemini(context.Background(), "", "", nil)
	require.NoError(t, err)

	_, err = s.Suggest(context.Background(), "u", "t", nil)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestGenerateConfigRequiresBothFields(t *testing.T) {
	cfg := generateConfig()
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.ElementsMatch(t, []string{"category", "notes"}, cfg.ResponseSchema.Required)
}
