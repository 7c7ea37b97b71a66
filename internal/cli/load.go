package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clausewatch/internal/model"
)

const envPrefix = "CLAUSEWATCH"

// Keys left out of the marshalled defaults (omitempty) that can still come
// from the environment, e.g. CLAUSEWATCH_LLM_API_KEY.
var envOnlyKeys = []string{
	"http.http_proxy",
	"http.https_proxy",
	"http.no_proxy",
	"analysis.patterns_file",
	"classifier.api_token",
	"entities.api_token",
	"llm.api_key",
	"llm.base_url",
	"server.api_key",
}

// providerKeyEnv maps an LLM provider to the conventional variable holding its key
var providerKeyEnv = map[string][]string{
	"openai":    {"OPENAI_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"google":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"claude":    {"ANTHROPIC_API_KEY"},
}

// loadConfig merges defaults, the config file and the environment.
// Command flags are applied on top by each command.
func loadConfig(v *viper.Viper) (*model.Config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v, model.DefaultConfig()); err != nil {
		return nil, err
	}
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	cfg := &model.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyWellKnownEnv(cfg)
	return cfg, nil
}

// setDefaults registers every leaf of cfg as a viper default, so that
// AutomaticEnv can override any of them
func setDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	flattenInto(v, "", tree)
	return nil
}

func flattenInto(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flattenInto(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// applyWellKnownEnv fills credentials from the variables other tools use
func applyWellKnownEnv(cfg *model.Config) {
	if token := os.Getenv("HF_API_TOKEN"); token != "" {
		if cfg.Classifier.APIToken == "" {
			cfg.Classifier.APIToken = token
		}
		if cfg.Entities.APIToken == "" {
			cfg.Entities.APIToken = token
		}
	}

	provider := strings.ToLower(cfg.LLM.Provider)
	if cfg.LLM.APIKey == "" {
		for _, name := range providerKeyEnv[provider] {
			if key := os.Getenv(name); key != "" {
				cfg.LLM.APIKey = key
				break
			}
		}
	}
	if provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
}

// requireLLMKey reports a missing key for providers that need one
func requireLLMKey(cfg *model.Config) error {
	names, ok := providerKeyEnv[strings.ToLower(cfg.LLM.Provider)]
	if !ok || cfg.LLM.APIKey != "" {
		return nil
	}
	return fmt.Errorf("%s environment variable not set", names[0])
}
