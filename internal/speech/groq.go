package speech

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultTranscriptionModel = "whisper-large-v3"

// Groq transcribes through Groq's OpenAI-compatible audio endpoint.
type Groq struct {
	client *openai.Client
	model  string
}

func NewGroq(apiKey, baseURL, model string) *Groq {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultTranscriptionModel
	}
	return &Groq{client: openai.NewClientWithConfig(cfg), model: model}
}

func (g *Groq) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := g.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    g.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", path, err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
