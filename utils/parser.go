package utils

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	return validate
}

// ValidateStruct validates s using its struct tags.
func ValidateStruct(s any) error {
	return validate.Struct(s)
}

// CanonicalMetadata turns an arbitrary JSON payload into the string that is
// stored with a payment and hashed on-chain.
//
// Absent or null metadata becomes "{}", a JSON string is kept as its value,
// anything else is re-encoded compactly with object keys sorted.
func CanonicalMetadata(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "{}", nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return "", fmt.Errorf("failed to parse metadata: %w", err)
	}
	if dec.More() {
		return "", fmt.Errorf("failed to parse metadata: trailing data")
	}

	if s, ok := value.(string); ok {
		return s, nil
	}

	return CompactJSON(value)
}

// CompactJSON encodes v without insignificant whitespace or HTML escaping.
// Map keys come out sorted, which makes the output deterministic.
func CompactJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
