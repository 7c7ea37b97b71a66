package llm

import (
	"context"
	"strings"
	"time"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Answer responds to a question about a document
	Answer(ctx context.Context, req AskRequest) (*AskResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// AskRequest contains the input for a document question
type AskRequest struct {
	// Question is the user's question
	Question string

	// Context is the document text the question refers to (may be empty)
	Context string

	// Prompt overrides the generated prompt when set
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// AskResponse contains the provider's answer
type AskResponse struct {
	Answer     string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "gemini", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Gemini/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// MaxContextChars bounds the document context placed in the prompt
	MaxContextChars int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:        "", // Disabled by default
		Timeout:         30,
		MaxTokens:       1000,
		MaxContextChars: 24_000,
	}
}

// SystemPrompt frames every answer
const SystemPrompt = "You are an assistant that explains legal documents in plain language. " +
	"Your answers are informational and are not legal advice."

const promptPreamble = "This is my legal document question. Answer according to legal principles, " +
	"laws, and best practices. Explain in simple terms.\n"

const truncatedMarker = "\n[document context truncated]"

// BuildPrompt constructs the question prompt. Document context is included
// only when present and is cut to maxContextChars runes (0 means no limit).
func BuildPrompt(question, docContext string, maxContextChars int) string {
	var b strings.Builder
	b.WriteString(promptPreamble)

	docContext = strings.TrimSpace(docContext)
	if docContext != "" {
		b.WriteString("Document context:\n")
		b.WriteString(truncateRunes(docContext, maxContextChars))
		b.WriteByte('\n')
	}

	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + truncatedMarker
}

func (c Config) prompt(req AskRequest) string {
	if req.Prompt != "" {
		return req.Prompt
	}
	return BuildPrompt(req.Question, req.Context, c.MaxContextChars)
}

func (c Config) model(req AskRequest, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

func (c Config) maxTokens(req AskRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1000
}

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout > 0 {
		return time.Duration(c.Timeout) * time.Second
	}
	return fallback
}
