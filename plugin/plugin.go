package plugin

import "context"

// Provider is the capability contract every LLM provider plugin implements.
// The host treats heterogeneous backends uniformly through this interface:
// it queries Metadata to discover what a provider offers, probes the
// configuration with ValidateConfig, brackets the usable period with
// Activate/Deactivate and requests completions with Generate.
type Provider interface {
	// Metadata returns the static self-description of the provider.
	Metadata() Metadata

	// ValidateConfig probes the resolved configuration. Probe failures are
	// reported as their own state instead of being folded into "invalid".
	ValidateConfig(ctx context.Context) Validation

	// Generate produces text for a prompt. callCtx carries call-time
	// parameters the provider may honor (system prompt, token overrides).
	Generate(ctx context.Context, prompt string, callCtx map[string]any) (string, error)

	// Activate establishes the remote client/session.
	Activate(ctx context.Context, hostCtx map[string]any) error

	// Deactivate releases the remote client/session. Idempotent.
	Deactivate(ctx context.Context, hostCtx map[string]any) error
}
