// Package anthropic implements the plugin capability contract on top of the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/evosuite-ai/evosuite-go/plugin"
	"github.com/evosuite-ai/evosuite-go/plugin/config"
	"github.com/evosuite-ai/evosuite-go/plugin/schema"
)

const (
	defaultModel     = "claude-3-5-sonnet-latest"
	defaultMaxTokens = 1024

	envAPIKey = "ANTHROPIC_API_KEY"
)

// Options documents the accepted configuration surface.
type Options struct {
	APIKey      string  `json:"api_key" jsonschema:"description=Anthropic API key"`
	Model       string  `json:"model,omitempty" jsonschema:"default=claude-3-5-sonnet-latest"`
	BaseURL     string  `json:"base_url,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" jsonschema:"default=1024"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Provider implements plugin.Provider for Anthropic Claude.
type Provider struct {
	cfg        config.Map
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	client     *sdk.Client
}

// Option configures a Provider.
type Option func(*providerSettings)

type providerSettings struct {
	lookup     config.Lookup
	httpClient *http.Client
}

// WithEnvLookup overrides the environment accessor used for the API key
// fallback.
func WithEnvLookup(lookup config.Lookup) Option {
	return func(s *providerSettings) {
		if lookup != nil {
			s.lookup = lookup
		}
	}
}

// WithHTTPClient sets the HTTP client handed to the SDK on activation.
func WithHTTPClient(client *http.Client) Option {
	return func(s *providerSettings) {
		s.httpClient = client
	}
}

// New constructs an Anthropic provider. The supplied mapping is merged over
// defaults; a missing api_key falls back to ANTHROPIC_API_KEY.
func New(cfg config.Map, opts ...Option) *Provider {
	settings := providerSettings{lookup: config.EnvLookup}
	for _, opt := range opts {
		opt(&settings)
	}

	merged := config.Merge(config.Map{
		"model":      defaultModel,
		"max_tokens": defaultMaxTokens,
	}, cfg)

	apiKey := strings.TrimSpace(merged.GetString("api_key", ""))
	if apiKey == "" {
		apiKey = settings.lookup(envAPIKey)
	}

	return &Provider{
		cfg:        merged,
		apiKey:     apiKey,
		model:      merged.GetString("model", defaultModel),
		baseURL:    strings.TrimSpace(merged.GetString("base_url", "")),
		maxTokens:  merged.GetInt("max_tokens", defaultMaxTokens),
		httpClient: settings.httpClient,
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
		Name:         "anthropic_provider",
		Version:      "0.2.0",
		Description:  "Anthropic Claude provider for text generation",
		Author:       "EvoSuite Team",
		Provides:     []string{"provider.anthropic", "provider.llm"},
		RequiresCore: ">=0.2, <0.3",
		ConfigSchema: configSchema,
		SchemaHash:   hash,
	}
}

// ValidateConfig checks for a usable API key.
func (p *Provider) ValidateConfig(ctx context.Context) plugin.Validation {
	if p.apiKey == "" {
		return plugin.Invalid("api key missing")
	}
	return plugin.Valid()
}

// Generate sends a single user message and returns the concatenated text
// blocks of the reply.
func (p *Provider) Generate(ctx context.Context, prompt string, callCtx map[string]any) (string, error) {
	if v := p.ValidateConfig(ctx); !v.Valid() {
		return "", fmt.Errorf("%w: %s", plugin.ErrInvalidConfig, v.Reason)
	}
	if p.client == nil {
		return "", plugin.ErrNotActivated
	}

	call := config.Map(callCtx)
	maxTokens := call.GetInt("max_tokens", p.maxTokens)

	req := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	}
	if system := strings.TrimSpace(call.GetString("system", "")); system != "" {
		req.System = []sdk.TextBlockParam{{Text: system}}
	}
	if temperature, ok := resolveTemperature(call, p.cfg); ok {
		req.Temperature = sdk.Float(temperature)
	}

	msg, err := p.client.Messages.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(sdk.TextBlock); ok {
			reply.WriteString(text.Text)
		}
	}
	return strings.TrimSpace(reply.String()), nil
}

// Activate builds the SDK client.
func (p *Provider) Activate(ctx context.Context, hostCtx map[string]any) error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: api key missing", plugin.ErrInvalidConfig)
	}
	opts := []option.RequestOption{option.WithAPIKey(p.apiKey)}
	if p.baseURL != "" {
		opts = append(opts, option.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(p.httpClient))
	}
	client := sdk.NewClient(opts...)
	p.client = &client
	return nil
}

// Deactivate drops the SDK client. Idempotent.
func (p *Provider) Deactivate(ctx context.Context, hostCtx map[string]any) error {
	p.client = nil
	return nil
}

func resolveTemperature(call, cfg config.Map) (float64, bool) {
	if call.Has("temperature") {
		return call.GetFloat("temperature", 0), true
	}
	if cfg.Has("temperature") {
		return cfg.GetFloat("temperature", 0), true
	}
	return 0, false
}
