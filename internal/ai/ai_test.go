package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n[{\"name\":\"Highball\"}]\n```", `[{"name":"Highball"}]`},
		{"prose around", "Here you go:\n{\"min_price\": 800}\nEnjoy!", `{"min_price": 800}`},
		{"no json", "sorry", "sorry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.answer))
		})
	}
}

func TestConstructors_RequireKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewOpenAI("", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
