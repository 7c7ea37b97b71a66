package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ppiankov/clausewatch/internal/pipeline"
	"github.com/ppiankov/clausewatch/internal/store"
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <doc_id> <question>",
	Short: "Ask a question about an uploaded document",
	Long: `Ask answers a question using the stored clauses of a document uploaded
through the HTTP API as context. The answer comes from the configured LLM
provider and is not legal advice.

Example:
  clausewatch ask 1b4e28ba-2fa1-11d2-883f-0016d3cca427 "Can I cancel early?" --llm-provider openai`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&uploadDir, "upload-dir", "", "directory holding uploaded documents")
	askCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, gemini, anthropic, ollama)")
	askCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default when empty)")
	askCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")
}

func runAsk(cmd *cobra.Command, args []string) error {
	docID := args[0]
	q := strings.Join(args[1:], " ")

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if uploadDir != "" {
		cfg.Storage.UploadDir = uploadDir
	}
	if err := requireLLMKey(cfg); err != nil {
		return err
	}

	st, err := store.New(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}
	clauses, err := st.Clauses(docID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", docID, err)
	}

	p, err := pipeline.New(cfg, newLogger())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	answer, err := p.Ask(ctx, q, clauses)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	fmt.Println(answer.Answer)
	if verbose {
		color.New(color.Faint).Fprintf(os.Stderr, "\n(%s %s, %d clauses of context)\n", answer.Provider, answer.Model, len(clauses))
	}
	return nil
}
