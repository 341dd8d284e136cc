// Package ai wraps the generative model backends used for menu extraction,
// price research, marketing copy and product images.
package ai

import (
	"context"
	"errors"
	"strings"
)

var ErrNotConfigured = errors.New("ai backend is not configured")

// TextGenerator answers a plain text prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// VisionModel answers a prompt about an image with a JSON document.
type VisionModel interface {
	DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// ImageGenerator renders an image for a prompt and returns its bytes and MIME type.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
}

// ExtractJSON strips markdown code fences and surrounding prose from a model
// answer so that it can be unmarshalled.
func ExtractJSON(answer string) string {
	s := strings.TrimSpace(answer)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}
