package ai

import (
	"context"
	"errors"
	"fmt"

	genai "google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

const captionPrompt = "Describe this document page for alt text in <= 12 words, factual, no embellishment."

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: c, model: model}, nil
}

// Caption sends the page image inline with a short alt-text prompt.
func (g *Gemini) Caption(ctx context.Context, png []byte) (string, error) {
	if g.client == nil || len(png) == 0 {
		return "", nil
	}
	prompt := &genai.Content{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: captionPrompt},
			{InlineData: &genai.Blob{MIMEType: "image/png", Data: png}},
		},
	}
	res, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{prompt}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini caption: %w", err)
	}
	return CleanCaption(res.Text()), nil
}
