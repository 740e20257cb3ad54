package plugin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Metadata is the immutable self-description of a provider plugin. The host
// requests it on demand to discover capabilities, display configuration forms
// generated from ConfigSchema and check core-version compatibility.
type Metadata struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description,omitempty"`
	Author       string          `json:"author,omitempty"`
	Provides     []string        `json:"provides,omitempty"`
	RequiresCore string          `json:"requires_core,omitempty"`
	ConfigSchema json.RawMessage `json:"config_schema,omitempty"`
	SchemaHash   string          `json:"schema_hash,omitempty"`
}

// CompatibleWith checks the RequiresCore constraint against a host core
// version. An empty constraint accepts any core.
func (m Metadata) CompatibleWith(coreVersion string) error {
	constraint := strings.TrimSpace(m.RequiresCore)
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("parse requires_core %q: %w", constraint, err)
	}
	v, err := semver.NewVersion(strings.TrimSpace(coreVersion))
	if err != nil {
		return fmt.Errorf("parse core version %q: %w", coreVersion, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: core %s does not satisfy %s", ErrIncompatibleCore, coreVersion, constraint)
	}
	return nil
}

// ProvidesCapability reports whether the provider declares a capability tag.
func (m Metadata) ProvidesCapability(tag string) bool {
	for _, capability := range m.Provides {
		if capability == tag {
			return true
		}
	}
	return false
}
