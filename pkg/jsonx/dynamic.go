// Package jsonx holds JSON conversion helpers.
package jsonx

import "github.com/goccy/go-json"

// ToDynamicJSON converts any value into a map[string]any by round-tripping
// it through JSON. Used where an SDK wants untyped JSON objects, e.g. tool
// parameter schemas.
func ToDynamicJSON(val any) (map[string]any, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	result := make(map[string]any)
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}
