// Package vertex implements the plugin capability contract on top of the
// Vertex AI Gemini REST API using application default credentials.
package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/evosuite-ai/evosuite-go/plugin"
	"github.com/evosuite-ai/evosuite-go/plugin/config"
	"github.com/evosuite-ai/evosuite-go/plugin/schema"
)

const (
	defaultLocation    = "global"
	defaultBaseURL     = "https://aiplatform.googleapis.com/v1"
	defaultMaxTokens   = 1024
	defaultTemperature = 0.2

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

// Options documents the accepted configuration surface.
type Options struct {
	Project     string  `json:"project" jsonschema:"description=Google Cloud project ID"`
	Location    string  `json:"location,omitempty" jsonschema:"default=global"`
	Model       string  `json:"model" jsonschema:"description=Gemini model ID"`
	BaseURL     string  `json:"base_url,omitempty" jsonschema:"default=https://aiplatform.googleapis.com/v1"`
	MaxTokens   int     `json:"max_tokens,omitempty" jsonschema:"default=1024"`
	Temperature float64 `json:"temperature,omitempty" jsonschema:"default=0.2"`
}

// Provider implements plugin.Provider for Vertex AI Gemini.
type Provider struct {
	cfg         config.Map
	project     string
	location    string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
	tokenSource oauth2.TokenSource
	cred        oauth2.TokenSource
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.client = client
		}
	}
}

// WithTokenSource overrides the credential source used on activation.
// Default is application default credentials.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(p *Provider) {
		p.tokenSource = ts
	}
}

// New constructs a Vertex provider from a configuration mapping.
func New(cfg config.Map, opts ...Option) *Provider {
	merged := config.Merge(config.Map{
		"location":    defaultLocation,
		"base_url":    defaultBaseURL,
		"max_tokens":  defaultMaxTokens,
		"temperature": defaultTemperature,
	}, cfg)

	p := &Provider{
		cfg:         merged,
		project:     strings.TrimSpace(merged.GetString("project", "")),
		location:    merged.GetString("location", defaultLocation),
		model:       strings.TrimSpace(merged.GetString("model", "")),
		baseURL:     strings.TrimRight(merged.GetString("base_url", defaultBaseURL), "/"),
		maxTokens:   merged.GetInt("max_tokens", defaultMaxTokens),
		temperature: merged.GetFloat("temperature", defaultTemperature),
		client:      &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
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
		Name:         "vertex_provider",
		Version:      "0.2.0",
		Description:  "Vertex AI Gemini provider for text generation",
		Author:       "EvoSuite Team",
		Provides:     []string{"provider.vertex", "provider.llm"},
		RequiresCore: ">=0.2, <0.3",
		ConfigSchema: configSchema,
		SchemaHash:   hash,
	}
}

// ValidateConfig checks the project and model settings.
func (p *Provider) ValidateConfig(ctx context.Context) plugin.Validation {
	if p.project == "" {
		return plugin.Invalid("project missing")
	}
	if p.model == "" {
		return plugin.Invalid("model missing")
	}
	return plugin.Valid()
}

// Generate calls generateContent with a single user turn and returns the
// concatenated text parts of the first candidate.
func (p *Provider) Generate(ctx context.Context, prompt string, callCtx map[string]any) (string, error) {
	if v := p.ValidateConfig(ctx); !v.Valid() {
		return "", fmt.Errorf("%w: %s", plugin.ErrInvalidConfig, v.Reason)
	}
	if p.cred == nil {
		return "", plugin.ErrNotActivated
	}

	call := config.Map(callCtx)
	request := vertexRequest{
		Contents: []vertexContent{{
			Role:  "user",
			Parts: []vertexPart{{Text: prompt}},
		}},
		GenerationConfig: vertexGenerationConfig{
			Temperature:     call.GetFloat("temperature", p.temperature),
			MaxOutputTokens: call.GetInt("max_tokens", p.maxTokens),
		},
	}
	if system := strings.TrimSpace(call.GetString("system", "")); system != "" {
		request.SystemInstruction = &vertexSystemInstruction{
			Parts: []vertexPart{{Text: system}},
		}
	}
	reqBody, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		p.baseURL, p.project, p.location, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := p.cred.Token()
	if err != nil {
		return "", fmt.Errorf("vertex token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := readResponseBody(resp)
		return "", fmt.Errorf("vertex gemini error: status %d: %s", resp.StatusCode, body)
	}

	var parsed vertexResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("vertex gemini: no candidates")
	}

	var reply strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		reply.WriteString(part.Text)
	}
	return strings.TrimSpace(reply.String()), nil
}

// Activate acquires the credential source. Missing application default
// credentials surface as a dependency error.
func (p *Provider) Activate(ctx context.Context, hostCtx map[string]any) error {
	if v := p.ValidateConfig(ctx); !v.Valid() {
		return fmt.Errorf("%w: %s", plugin.ErrInvalidConfig, v.Reason)
	}
	ts := p.tokenSource
	if ts == nil {
		var err error
		ts, err = google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return fmt.Errorf("%w: vertex adc: %v", plugin.ErrMissingDependency, err)
		}
	}
	p.cred = ts
	return nil
}

// Deactivate drops the credential source. Idempotent.
func (p *Provider) Deactivate(ctx context.Context, hostCtx map[string]any) error {
	p.cred = nil
	return nil
}

func readResponseBody(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	body := strings.TrimSpace(string(data))
	if body == "" {
		return "<empty body>", nil
	}
	if len(body) > 1200 {
		return body[:1200] + "... (truncated)", nil
	}
	return body, nil
}

type vertexRequest struct {
	SystemInstruction *vertexSystemInstruction `json:"system_instruction,omitempty"`
	Contents          []vertexContent          `json:"contents"`
	GenerationConfig  vertexGenerationConfig   `json:"generationConfig,omitempty"`
}

type vertexSystemInstruction struct {
	Parts []vertexPart `json:"parts,omitempty"`
}

type vertexContent struct {
	Role  string       `json:"role"`
	Parts []vertexPart `json:"parts"`
}

type vertexPart struct {
	Text string `json:"text,omitempty"`
}

type vertexGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type vertexResponse struct {
	Candidates []vertexCandidate `json:"candidates"`
}

type vertexCandidate struct {
	Content      vertexContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}
