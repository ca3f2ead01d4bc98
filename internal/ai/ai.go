package ai

import (
	"context"
	"fmt"
	"strings"
)

// Captioner describes a rendered page image as short alt text.
type Captioner interface {
	Caption(ctx context.Context, png []byte) (string, error)
}

// Noop never captions.
type Noop struct{}

func (Noop) Caption(ctx context.Context, png []byte) (string, error) { return "", nil }

// Provider names a caption backend.
type Provider string

const (
	ProviderOff    Provider = "off"
	ProviderGemini Provider = "gemini"
)

// ParseProvider accepts "off", "" or "gemini" in any case.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "", ProviderOff:
		return ProviderOff, nil
	case ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("unknown ai provider %q (want off|gemini)", s)
	}
}

// New builds the captioner for provider.
func New(ctx context.Context, provider Provider, apiKey, model string) (Captioner, error) {
	switch provider {
	case "", ProviderOff:
		return Noop{}, nil
	case ProviderGemini:
		return NewGemini(ctx, apiKey, model)
	}
	return nil, fmt.Errorf("unknown ai provider %q", provider)
}

// CleanCaption trims a model reply down to a single line of alt text.
func CleanCaption(s string) string {
	s = stripCodeFences(s)
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(strings.TrimSpace(s), `"`)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
