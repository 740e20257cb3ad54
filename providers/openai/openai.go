// Package openai adapts the OpenAI text-generation API to the plugin
// capability contract. The remote transport is not wired in yet: Generate
// synthesizes a response locally and Activate leaves the client handle empty.
package openai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/evosuite-ai/evosuite-go/plugin"
	"github.com/evosuite-ai/evosuite-go/plugin/config"
	"github.com/evosuite-ai/evosuite-go/plugin/schema"
)

const (
	defaultModel       = "gpt-3.5-turbo"
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultMaxTokens   = 1000
	defaultTemperature = 0.7

	envAPIKey = "OPENAI_API_KEY"

	// Keys shorter than this fail validation. A heuristic, not real
	// credential verification.
	minKeyLength = 10

	promptEchoLimit = 50
)

// Options documents the accepted configuration surface. The metadata config
// schema is derived from this struct.
type Options struct {
	APIKey      string  `json:"api_key" jsonschema:"description=OpenAI API key"`
	Model       string  `json:"model,omitempty" jsonschema:"default=gpt-3.5-turbo"`
	BaseURL     string  `json:"base_url,omitempty" jsonschema:"default=https://api.openai.com/v1"`
	MaxTokens   int     `json:"max_tokens,omitempty" jsonschema:"default=1000"`
	Temperature float64 `json:"temperature,omitempty" jsonschema:"default=0.7"`
}

// Provider implements plugin.Provider for OpenAI.
type Provider struct {
	cfg     config.Map
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Option configures a Provider.
type Option func(*providerSettings)

type providerSettings struct {
	lookup config.Lookup
}

// WithEnvLookup overrides the environment accessor used for the API key
// fallback. Default is config.EnvLookup.
func WithEnvLookup(lookup config.Lookup) Option {
	return func(s *providerSettings) {
		if lookup != nil {
			s.lookup = lookup
		}
	}
}

// New constructs an OpenAI provider. The supplied mapping is merged over
// defaults; a missing api_key falls back to OPENAI_API_KEY.
func New(cfg config.Map, opts ...Option) *Provider {
	settings := providerSettings{lookup: config.EnvLookup}
	for _, opt := range opts {
		opt(&settings)
	}

	merged := config.Merge(config.Map{
		"model":       defaultModel,
		"base_url":    defaultBaseURL,
		"max_tokens":  defaultMaxTokens,
		"temperature": defaultTemperature,
	}, cfg)

	apiKey := merged.GetString("api_key", "")
	if apiKey == "" {
		apiKey = settings.lookup(envAPIKey)
	}

	return &Provider{
		cfg:     merged,
		apiKey:  apiKey,
		model:   merged.GetString("model", defaultModel),
		baseURL: merged.GetString("base_url", defaultBaseURL),
	}
}

// Metadata returns the static provider descriptor.
func (p *Provider) Metadata() plugin.Metadata {
	configSchema, err := schema.ForStruct(&Options{})
	if err != nil {
		configSchema = nil
	}
	hash, err := schema.Hash(configSchema)
	if err != nil {
		hash = ""
	}
	return plugin.Metadata{
		Name:         "openai_provider",
		Version:      "0.2.0",
		Description:  "OpenAI LLM provider for text generation",
		Author:       "EvoSuite Team",
		Provides:     []string{"provider.openai", "provider.llm"},
		RequiresCore: ">=0.2, <0.3",
		ConfigSchema: configSchema,
		SchemaHash:   hash,
	}
}

// ValidateConfig checks the resolved API key. A real implementation would
// replace the length heuristic with a lightweight authenticated request and
// report network failure as a probe failure, not as "invalid".
func (p *Provider) ValidateConfig(ctx context.Context) plugin.Validation {
	if p.apiKey == "" {
		return plugin.Invalid("api key missing")
	}
	if len(p.apiKey) <= minKeyLength {
		return plugin.Invalid("api key too short")
	}
	return plugin.Valid()
}

// Generate returns a locally synthesized completion. The configuration must
// validate; generation parameters are resolved here so the eventual
// transport can forward them.
func (p *Provider) Generate(ctx context.Context, prompt string, callCtx map[string]any) (string, error) {
	if v := p.ValidateConfig(ctx); !v.Valid() {
		return "", fmt.Errorf("%w: %s", plugin.ErrInvalidConfig, v.Reason)
	}

	call := config.Map(callCtx)
	_ = call.GetInt("max_tokens", p.cfg.GetInt("max_tokens", defaultMaxTokens))
	_ = call.GetFloat("temperature", p.cfg.GetFloat("temperature", defaultTemperature))

	return fmt.Sprintf("[OpenAI %s] Generated response for prompt: %s...", p.model, truncate(prompt, promptEchoLimit)), nil
}

// Activate would build the HTTP client for p.baseURL. The stub keeps the
// client handle empty; once the transport lands, a client that cannot be
// constructed surfaces as plugin.ErrMissingDependency.
func (p *Provider) Activate(ctx context.Context, hostCtx map[string]any) error {
	return nil
}

// Deactivate releases the client handle if one exists.
func (p *Provider) Deactivate(ctx context.Context, hostCtx map[string]any) error {
	if p.client != nil {
		p.client.CloseIdleConnections()
		p.client = nil
	}
	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
