package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ppiankov/clausewatch/internal/model"
)

var (
	// ErrAssistantDisabled is returned when no provider is configured
	ErrAssistantDisabled = errors.New("question answering is disabled: no LLM provider configured")

	// ErrEmptyQuestion is returned for a blank question
	ErrEmptyQuestion = errors.New("question is empty")
)

// Assistant answers questions about analyzed documents. Answers never
// feed back into risk findings or the score.
type Assistant struct {
	provider        Provider
	maxContextChars int
	log             *slog.Logger
}

// NewAssistant wraps provider, which may be nil to disable answering
func NewAssistant(provider Provider, maxContextChars int, log *slog.Logger) *Assistant {
	if log == nil {
		log = slog.Default()
	}
	return &Assistant{provider: provider, maxContextChars: maxContextChars, log: log}
}

// Enabled reports whether a provider is configured
func (a *Assistant) Enabled() bool {
	return a != nil && a.provider != nil
}

// Ask answers question using clauses, joined one per line, as document context
func (a *Assistant) Ask(ctx context.Context, question string, clauses []string) (*model.LLMAnswer, error) {
	if !a.Enabled() {
		return nil, ErrAssistantDisabled
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	req := AskRequest{
		Question: question,
		Prompt:   BuildPrompt(question, strings.Join(clauses, "\n"), a.maxContextChars),
	}

	resp, err := a.provider.Answer(ctx, req)
	if err != nil {
		a.log.Warn("llm answer failed", "provider", a.provider.Name(), "error", err)
		return nil, err
	}

	return &model.LLMAnswer{
		Provider: a.provider.Name(),
		Model:    resp.Model,
		Question: question,
		Answer:   resp.Answer,
	}, nil
}
