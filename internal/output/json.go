package output

import (
	"encoding/json"
)

// renderJSON marshals v with indentation.
func renderJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
