package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// MarshalJSON marshals data to JSON
func MarshalJSON(data interface{}) ([]byte, error) {
	return json.Marshal(data)
}

// UnmarshalJSON unmarshals JSON data
func UnmarshalJSON(data []byte, target interface{}) error {
	return json.Unmarshal(data, target)
}

// CanonicalJSON returns the canonical serialization of v: object keys in
// lexicographic order, no insignificant whitespace, numbers kept verbatim.
// The same value always produces the same bytes across processes and runs.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Round-trip through an untyped value so struct field order does not
	// leak into the output. encoding/json sorts map keys on marshal, and
	// json.Number preserves the wire form of numeric literals.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var normalized interface{}
	if err := dec.Decode(&normalized); err != nil {
		return nil, fmt.Errorf("failed to normalize JSON: %w", err)
	}

	out, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal canonical JSON: %w", err)
	}
	return out, nil
}

// Fingerprint returns the lowercase hex SHA-256 digest of the canonical
// JSON serialization of v.
func Fingerprint(v interface{}) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
