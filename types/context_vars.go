// Package types holds core type definitions shared across the cpeforge framework.
package types

import "github.com/goccy/go-json"

// ContextVars is a key-value store of variables available to agents during a
// run. Instructions and task prompts are text/template strings; values placed
// here are substituted at render time.
//
// ContextVars is a plain map and is not safe for concurrent mutation; the
// executor clones it per run.
type ContextVars map[string]any

// String returns the JSON representation of the variables, or the empty
// string when marshaling fails.
func (cv ContextVars) String() string {
	data, err := json.Marshal(cv)
	if err != nil {
		return ""
	}
	return string(data)
}
