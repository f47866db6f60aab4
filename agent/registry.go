package agent

import (
	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/internal/registry"
)

// Global resolves agents by name, for handoff tools and durable executors.
var Global = registry.New[api.Agent]()

func Add(agent api.Agent) {
	Global.Add(agent.Name(), agent)
}

func Get(name string) (api.Agent, bool) {
	return Global.Get(name)
}

func Del(name string) {
	Global.Del(name)
}
