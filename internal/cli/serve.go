package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clausewatch/internal/api"
	"github.com/ppiankov/clausewatch/internal/pipeline"
	"github.com/ppiankov/clausewatch/internal/store"
)

var (
	serveAddr string
	uploadDir string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes document upload, analysis and questions over HTTP:

  POST   /upload               multipart "file" → {doc_id, risks, num_sentences, message}
  POST   /analyze              {"doc_id": "..."} → {analysis, score}
  POST   /ask                  {"question": "...", "doc_id": "..."} → plain-text answer
  DELETE /documents/{doc_id}   remove a stored document
  GET    /patterns             the risk pattern table
  GET    /health

Set server.api_key (CLAUSEWATCH_SERVER_API_KEY) to require a bearer token.

Example:
  clausewatch serve --addr :5000 --upload-dir ./uploaded_docs`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :5000)")
	serveCmd.Flags().StringVar(&uploadDir, "upload-dir", "", "directory for uploaded documents")
	serveCmd.Flags().BoolVar(&topics, "topics", false, "label flagged clauses with topics (zero-shot classifier)")
	serveCmd.Flags().BoolVar(&entities, "entities", false, "extract named entities from flagged clauses")
	serveCmd.Flags().StringVar(&patternsFile, "patterns", "", "YAML file replacing the built-in risk patterns")
	serveCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, gemini, anthropic, ollama)")
	serveCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default when empty)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if uploadDir != "" {
		cfg.Storage.UploadDir = uploadDir
	}

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}
	st, err := store.New(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}

	srv := api.NewServer(p, st, log, cfg.Server)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}()

	log.Info("starting clausewatch",
		"addr", cfg.Server.Addr,
		"upload_dir", st.Dir(),
		"patterns", p.Registry().Len(),
		"assistant", p.Assistant().Enabled(),
		"auth", cfg.Server.APIKey != "",
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-done
	return nil
}
