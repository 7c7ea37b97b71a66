package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/pipeline"
)

var (
	outJSON      string
	outMD        string
	timeout      time.Duration
	userAgent    string
	maxBytes     int64
	noCache      bool
	noFooter     bool
	insecureTLS  bool
	noRobots     bool
	topics       bool
	entities     bool
	allClauses   bool
	threshold    float64
	patternsFile string
	question     string
	llmProvider  string
	llmModel     string
	httpProxy    string
	httpsProxy   string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url>",
	Short: "Analyze one document and report risky clauses",
	Long: `Analyze reads a PDF, DOCX, Markdown, HTML or text document (local file
or http(s) URL) and:
- Splits it into clauses
- Flags clauses matching known contractual red flags
- Optionally labels flagged clauses with topics and named entities
- Calculates a transparent 0-100 risk index
- Optionally answers a question about the document with an LLM

Example:
  clausewatch analyze lease.pdf
  clausewatch analyze terms.html --json report.json --md report.md
  clausewatch analyze https://example.com/terms --topics --entities
  clausewatch analyze lease.docx --ask "Can I get my deposit back?" --llm-provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	addAnalysisFlags(analyzeCmd)

	analyzeCmd.Flags().StringVar(&question, "ask", "", "question to answer about the document")
	analyzeCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, gemini, anthropic, ollama)")
	analyzeCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default when empty)")
}

// addAnalysisFlags registers the flags shared by analyze and batch
func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout per document")
	f.StringVar(&userAgent, "ua", "", "HTTP User-Agent for URL documents")
	f.Int64Var(&maxBytes, "max-bytes", 0, "max response bytes to read for URL documents")
	f.BoolVar(&noCache, "no-cache", false, "disable the enrichment cache")
	f.BoolVar(&noFooter, "no-footer", false, "disable the disclaimer footer")
	f.BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	f.BoolVar(&noRobots, "no-robots", false, "ignore robots.txt for URL documents")
	f.StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Analysis flags
	f.BoolVar(&topics, "topics", false, "label flagged clauses with topics (zero-shot classifier)")
	f.BoolVar(&entities, "entities", false, "extract named entities from flagged clauses")
	f.BoolVar(&allClauses, "all-clauses", false, "report every clause, including those without risks")
	f.Float64Var(&threshold, "threshold", 0, "minimum topic score to keep a label (default from config)")
	f.StringVar(&patternsFile, "patterns", "", "YAML file replacing the built-in risk patterns")
}

// buildConfig loads the merged configuration and applies explicit flags
func buildConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	changed := func(name string) bool {
		fl := f.Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if changed("max-bytes") {
		cfg.HTTP.MaxBodyBytes = maxBytes
	}
	if changed("insecure") {
		cfg.HTTP.InsecureTLS = insecureTLS
	}
	if changed("no-robots") {
		cfg.HTTP.RespectRobots = !noRobots
	}
	if changed("http-proxy") {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if changed("no-footer") {
		cfg.Output.IncludeFooter = !noFooter
	}
	if changed("topics") {
		cfg.Analysis.Topics = topics
	}
	if changed("entities") {
		cfg.Analysis.Entities = entities
	}
	if changed("all-clauses") {
		cfg.Analysis.IncludeAll = allClauses
	}
	if changed("threshold") {
		cfg.Analysis.TopicThreshold = threshold
	}
	if changed("patterns") {
		cfg.Analysis.PatternsFile = patternsFile
	}
	if changed("llm-provider") && llmProvider != cfg.LLM.Provider {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.APIKey = ""
		cfg.LLM.BaseURL = ""
		applyWellKnownEnv(cfg)
	}
	if changed("llm-model") {
		cfg.LLM.Model = llmModel
	}
	if changed("concurrency") {
		cfg.Concurrency.DocumentWorkers = concurrency
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if question != "" {
		if err := requireLLMKey(cfg); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Topics: %v  Entities: %v  Cache: %v\n", cfg.Analysis.Topics, cfg.Analysis.Entities, cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.New(cfg, newLogger())
	if err != nil {
		return err
	}

	report, err := p.AnalyzePath(ctx, source)
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Segmented %d clauses\n", report.Stats.Clauses)
		fmt.Fprintf(os.Stderr, "✓ Flagged %d clauses\n", report.Stats.Flagged)
		fmt.Fprintf(os.Stderr, "✓ Calculated risk index: %d/100\n", report.Score.Index)
	}

	if question != "" {
		if !p.Assistant().Enabled() {
			fmt.Fprintf(os.Stderr, "Question skipped: no LLM provider configured (use --llm-provider)\n")
		} else {
			p.AskAboutReport(ctx, report, question)
			if verbose && report.Answer != nil {
				fmt.Fprintf(os.Stderr, "✓ Answered question using %s/%s\n", report.Answer.Provider, report.Answer.Model)
			}
		}
	}
	if verbose {
		fmt.Fprintln(os.Stderr)
	}

	if err := p.RenderReport(report, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}
