// Package config resolves provider configuration mappings: supplied options
// merged over defaults, with secrets falling back to an injected environment
// lookup instead of hidden os.Getenv reads.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Map is a provider configuration mapping from option name to value.
type Map map[string]any

// Lookup resolves a value from the environment. Tests inject plain maps
// instead of mutating the process environment.
type Lookup func(key string) string

// EnvLookup reads the process environment, trimming whitespace.
func EnvLookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// MapLookup builds a Lookup backed by a static map.
func MapLookup(values map[string]string) Lookup {
	return func(key string) string {
		return strings.TrimSpace(values[key])
	}
}

// Merge returns a new map with overrides layered over defaults. Neither
// input is modified.
func Merge(defaults, overrides Map) Map {
	merged := make(Map, len(defaults)+len(overrides))
	for key, value := range defaults {
		merged[key] = value
	}
	for key, value := range overrides {
		merged[key] = value
	}
	return merged
}

// Has reports whether a key is present.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// GetString returns a string option or the fallback.
func (m Map) GetString(key, fallback string) string {
	value, ok := m[key]
	if !ok {
		return fallback
	}
	s, ok := value.(string)
	if !ok {
		return fallback
	}
	return s
}

// GetInt returns an integer option or the fallback. JSON decodes numbers as
// float64 and YAML as int, so both are accepted.
func (m Map) GetInt(key string, fallback int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// GetFloat returns a numeric option or the fallback.
func (m Map) GetFloat(key string, fallback float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// LoadDotenv loads .env files into the process environment. Missing default
// files are not an error, matching godotenv semantics for optional setups.
func LoadDotenv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		if len(files) == 0 && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

// LoadFile reads a YAML configuration file into a Map.
func LoadFile(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return Map(raw), nil
}
