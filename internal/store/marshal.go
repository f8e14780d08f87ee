package store

import (
	"encoding/json"
	"fmt"

	"github.com/levimarcus10/BerlinOriginal/internal/canonical"
)

// marshalFailures converts failure messages to canonical JSON TEXT.
func marshalFailures(failures []string) (string, error) {
	list := make([]any, len(failures))
	for i, f := range failures {
		list[i] = f
	}
	data, err := canonical.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("marshal failures: %w", err)
	}
	return string(data), nil
}

// unmarshalFailures parses the failures column.
func unmarshalFailures(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal failures: %w", err)
	}
	return out, nil
}
