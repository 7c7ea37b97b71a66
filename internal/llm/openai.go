package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/clausewatch/internal/util"
	"github.com/sashabaranov/go-openai"
)

// GeminiBaseURL is Gemini's OpenAI-compatible endpoint
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// DefaultGeminiModel is used when no gemini model is configured
const DefaultGeminiModel = "gemini-2.5-pro"

// OpenAIProvider implements the Provider interface for OpenAI chat models
// and for any endpoint speaking the same API, such as Gemini.
type OpenAIProvider struct {
	client       *openai.Client
	config       Config
	name         string
	defaultModel string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return newChatProvider("openai", openai.GPT4oMini, config), nil
}

// NewGeminiProvider creates a provider for Google Gemini via its
// OpenAI-compatible endpoint
func NewGeminiProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = GeminiBaseURL
	}
	return newChatProvider("gemini", DefaultGeminiModel, config), nil
}

func newChatProvider(name, defaultModel string, config Config) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
	}

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		config:       config,
		name:         name,
		defaultModel: defaultModel,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Listing models is the cheapest authenticated call
	_, err := p.client.ListModels(ctx)
	if err != nil {
		slog.Warn("llm availability check failed", "provider", p.name, "error", err)
		return false
	}
	return true
}

// Answer responds using the Chat Completions API
func (p *OpenAIProvider) Answer(ctx context.Context, req AskRequest) (*AskResponse, error) {
	model := p.config.model(req, p.defaultModel)

	ctx, cancel := context.WithTimeout(ctx, p.config.timeout(30*time.Second))
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: p.config.prompt(req)},
		},
		MaxTokens:   p.config.maxTokens(req),
		Temperature: 0.3,
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return nil, errors.New("empty answer from " + p.name)
	}

	if resp.Model != "" {
		model = resp.Model
	}
	return &AskResponse{
		Answer:     answer,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
