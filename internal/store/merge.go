package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// mergeObject applies a shallow update to a JSON object.
func mergeObject(current []byte, partial map[string]json.RawMessage) ([]byte, error) {
	obj := map[string]json.RawMessage{}
	trimmed := bytes.TrimSpace(current)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("current value is not an object: %w", err)
		}
	}
	for k, v := range partial {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			delete(obj, k)
			continue
		}
		obj[k] = v
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal merged value: %w", err)
	}
	return merged, nil
}
