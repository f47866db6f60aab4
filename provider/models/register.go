// Package models keeps a process-global registry of model configurations so
// durable executors can resolve models by name when replaying work.
package models

import (
	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/internal/registry"
)

var Global = registry.New[api.Model]()

func Add(model api.Model) {
	Global.Add(model.Name(), model)
}

func Get(name string) (api.Model, bool) {
	return Global.Get(name)
}

func GetOrAdd(name string, modelF func() api.Model) api.Model {
	m, _ := Global.GetOrAdd(name, modelF)
	return m
}

func Del(name string) {
	Global.Del(name)
}
