package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// NewClient connects to the Gemini API with an API key.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// GeminiChat opens chats against one model with a fixed configuration
// (tools and system instruction).
type GeminiChat struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGeminiChat(client *genai.Client, model string, config *genai.GenerateContentConfig) *GeminiChat {
	return &GeminiChat{client: client, model: model, config: config}
}

func (g *GeminiChat) NewSession(ctx context.Context) (Session, error) {
	chat, err := g.client.Chats.Create(ctx, g.model, g.config, nil)
	if err != nil {
		return nil, fmt.Errorf("start chat with %s: %w", g.model, err)
	}
	return &geminiSession{chat: chat}, nil
}

type geminiSession struct {
	chat *genai.Chat
}

func (s *geminiSession) Send(ctx context.Context, parts ...*genai.Part) (Reply, error) {
	resp, err := s.chat.Send(ctx, parts...)
	if err != nil {
		return Reply{}, err
	}
	return replyFrom(resp)
}

// GeminiCompleter sends the system prompt and the input as two parts of a
// single user turn.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

func NewGeminiCompleter(client *genai.Client, model string) *GeminiCompleter {
	return &GeminiCompleter{client: client, model: model}
}

func (g *GeminiCompleter) Complete(ctx context.Context, system, input string) (string, error) {
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(system),
		genai.NewPartFromText(input),
	}, genai.RoleUser)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", g.model, err)
	}
	r, err := replyFrom(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(r.Text), nil
}
