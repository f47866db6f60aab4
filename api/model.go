package api

import "github.com/prplworks/cpeforge/provider"

// Model couples a model name with the provider that serves it.
type Model interface {
	Name() string
	Provider() provider.Provider
}
