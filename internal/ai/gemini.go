package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"google.golang.org/genai"
)

// Gemini serves text, vision and image generation through the Gemini API.
type Gemini struct {
	client     *genai.Client
	model      string
	imageModel string
}

func NewGemini(ctx context.Context, apiKey, model, imageModel string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{client: client, model: model, imageModel: imageModel}, nil
}

func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		logger.Error("Gemini text generation failed", err, map[string]interface{}{
			"model": g.model,
		})
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (g *Gemini) DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		logger.Error("Gemini vision request failed", err, map[string]interface{}{
			"model":      g.model,
			"image_size": len(image),
		})
		return "", fmt.Errorf("gemini describe image: %w", err)
	}
	return resp.Text(), nil
}

func (g *Gemini) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	if g.imageModel == "" {
		return nil, "", ErrNotConfigured
	}

	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
	})
	if err != nil {
		logger.Error("Gemini image generation failed", err, map[string]interface{}{
			"model": g.imageModel,
		})
		return nil, "", fmt.Errorf("gemini generate images: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, "", fmt.Errorf("gemini returned no image")
	}

	img := resp.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return img.ImageBytes, mimeType, nil
}
