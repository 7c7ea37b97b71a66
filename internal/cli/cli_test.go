package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clausewatch/internal/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"HF_API_TOKEN", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"ANTHROPIC_API_KEY", "OLLAMA_BASE_URL",
		"CLAUSEWATCH_LLM_PROVIDER", "CLAUSEWATCH_LLM_API_KEY", "CLAUSEWATCH_ANALYSIS_TOPICS",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  timeout: 45s
analysis:
  topic_threshold: 0.7
  topics: true
llm:
  provider: gemini
server:
  allowed_origins: ["https://app.example.com"]
`), 0o644))

	t.Setenv("CLAUSEWATCH_ANALYSIS_TOPICS", "false")
	t.Setenv("CLAUSEWATCH_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HF_API_TOKEN", "hf-test")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 0.7, cfg.Analysis.TopicThreshold)
	assert.False(t, cfg.Analysis.Topics, "environment overrides the file")
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "hf-test", cfg.Classifier.APIToken)
	assert.Equal(t, "hf-test", cfg.Entities.APIToken)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "uploaded_docs", cfg.Storage.UploadDir)
}

func TestLoadConfig_PrefixedKeyWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLAUSEWATCH_LLM_PROVIDER", "anthropic")
	t.Setenv("CLAUSEWATCH_LLM_API_KEY", "explicit")
	t.Setenv("ANTHROPIC_API_KEY", "conventional")

	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestApplyWellKnownEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "gemini"
	applyWellKnownEnv(cfg)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)

	cfg = model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	applyWellKnownEnv(cfg)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.BaseURL)
}

func TestRequireLLMKey(t *testing.T) {
	cfg := model.DefaultConfig()
	assert.NoError(t, requireLLMKey(cfg), "disabled provider needs no key")

	cfg.LLM.Provider = "ollama"
	assert.NoError(t, requireLLMKey(cfg))

	cfg.LLM.Provider = "anthropic"
	assert.EqualError(t, requireLLMKey(cfg), "ANTHROPIC_API_KEY environment variable not set")

	cfg.LLM.APIKey = "sk-ant"
	assert.NoError(t, requireLLMKey(cfg))
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, writeDefaultConfig(path))
	assert.Error(t, writeDefaultConfig(path), "existing file is not overwritten")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestMaskSecrets(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "sk-1234567890"
	cfg.Server.APIKey = "short"

	masked := maskSecrets(*cfg)
	assert.Equal(t, "sk-1****", masked.LLM.APIKey)
	assert.Equal(t, "****", masked.Server.APIKey)
	assert.Empty(t, masked.Classifier.APIToken)
	assert.Equal(t, "sk-1234567890", cfg.LLM.APIKey, "original is untouched")
}

func TestReportBaseName(t *testing.T) {
	tests := []struct {
		index  int
		report model.Report
		want   string
	}{
		{0, model.Report{Document: model.DocumentMeta{Title: "Residential Lease: 2026"}}, "001-residential-lease-2026"},
		{9, model.Report{Document: model.DocumentMeta{Source: "/tmp/contracts/Gym Membership.pdf"}}, "010-gym-membership"},
		{2, model.Report{Document: model.DocumentMeta{Title: "§§§"}}, "003-document"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, reportBaseName(tt.index, &tt.report))
		})
	}
}

func TestSlugify_Truncates(t *testing.T) {
	long := "terms of service for a very long product name that keeps going and going"
	got := slugify(long)
	assert.LessOrEqual(t, len(got), 60)
	assert.NotEqual(t, '-', got[len(got)-1])
}
