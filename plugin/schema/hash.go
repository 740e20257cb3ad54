package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns a stable SHA-256 hash of a JSON schema.
// It normalizes the JSON to avoid key-order differences.
func Hash(payload json.RawMessage) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return "", err
	}
	normalized, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:]), nil
}
