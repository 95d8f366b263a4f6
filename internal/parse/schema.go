package parse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawTransaction is the loose intermediate schema at the LLM boundary.
// Every field is optional and nullable; the normalization pass in
// normalize.go produces the fully-defaulted record or rejects the whole
// payload.
type rawTransaction struct {
	Date           *string                `json:"date"`
	Amount         *json.Number           `json:"amount"`
	Category       *string                `json:"category"`
	Description    *string                `json:"description"`
	Type           *string                `json:"transaction_type"`
	Bank           *string                `json:"bank"`
	Confidence     *json.Number           `json:"confidence"`
	AdditionalInfo map[string]interface{} `json:"additional_info"`
}

// decodeRaw parses the model payload into the intermediate schema. Any JSON
// error, including a wrong type for a field, fails the whole record.
func decodeRaw(payload string) (*rawTransaction, error) {
	clean := stripFences(payload)
	if clean == "" {
		return nil, fmt.Errorf("empty model payload")
	}
	var raw rawTransaction
	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode model JSON: %w", err)
	}
	return &raw, nil
}

// stripFences removes a Markdown code-fence wrapper the model sometimes adds
// despite instructions, then trims to the outermost JSON object.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// If the model surrounded the object with prose, keep only the first
	// '{' through the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

// stringExtras flattens additional_info to string values, dropping anything
// that is not representable as a scalar. Best-effort carry-through only.
func stringExtras(extras map[string]interface{}) map[string]string {
	if len(extras) == 0 {
		return nil
	}
	out := make(map[string]string, len(extras))
	for key, value := range extras {
		switch v := value.(type) {
		case string:
			if v != "" {
				out[key] = v
			}
		case json.Number:
			out[key] = v.String()
		case bool:
			out[key] = fmt.Sprintf("%t", v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
