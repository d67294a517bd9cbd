package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errMalformedPayload = errors.New("malformed model payload")

// groundedPayload is the fully typed generator reply. It only exists when every
// contract field was present with the right type.
type groundedPayload struct {
	Answer           string
	Citations        []string
	NeedsMoreContext bool
}

type verifierPayload struct {
	Valid  bool
	Reason string
}

// stripCodeFence removes a Markdown ``` wrapper with an optional json tag.
func stripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.Trim(cleaned, "`")
	if len(cleaned) >= 4 && strings.EqualFold(cleaned[:4], "json") {
		cleaned = cleaned[4:]
	}
	return strings.TrimSpace(cleaned)
}

func decodeObject(raw string) (map[string]json.RawMessage, error) {
	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty content", errMalformedPayload)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", errMalformedPayload)
	}
	return fields, nil
}

func parseGroundedPayload(raw string) (groundedPayload, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return groundedPayload{}, err
	}

	var payload groundedPayload
	if err := decodeField(fields, "answer", &payload.Answer); err != nil {
		return groundedPayload{}, err
	}
	if err := decodeField(fields, "citations", &payload.Citations); err != nil {
		return groundedPayload{}, err
	}
	if payload.Citations == nil {
		return groundedPayload{}, fmt.Errorf("%w: citations is null", errMalformedPayload)
	}

	needsKey := "needsMoreContext"
	if _, ok := fields[needsKey]; !ok {
		needsKey = "needs_more_context"
	}
	if err := decodeField(fields, needsKey, &payload.NeedsMoreContext); err != nil {
		return groundedPayload{}, err
	}
	return payload, nil
}

// parseVerifierPayload applies the verifier defaults: a missing valid means
// pass and a missing reason is empty.
func parseVerifierPayload(raw string) (verifierPayload, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return verifierPayload{}, err
	}

	// An explicit null verdict counts as a rejection, not a missing field.
	payload := verifierPayload{Valid: true}
	if value, ok := fields["valid"]; ok && string(value) == "null" {
		payload.Valid = false
	} else if ok {
		if err := decodeField(fields, "valid", &payload.Valid); err != nil {
			return verifierPayload{}, err
		}
	}
	if value, ok := fields["reason"]; ok && string(value) != "null" {
		if err := decodeField(fields, "reason", &payload.Reason); err != nil {
			return verifierPayload{}, err
		}
	}
	return payload, nil
}

func decodeField(fields map[string]json.RawMessage, key string, dst any) error {
	value, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: missing %s", errMalformedPayload, key)
	}
	if string(value) == "null" {
		return fmt.Errorf("%w: %s is null", errMalformedPayload, key)
	}
	if err := json.Unmarshal(value, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", errMalformedPayload, key, err)
	}
	return nil
}
