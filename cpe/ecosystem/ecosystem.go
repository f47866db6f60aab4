// Package ecosystem aggregates module status across the framework and
// recommends which agent should handle which backlog item.
package ecosystem

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// ModuleStatus is the reported condition of one framework module.
type ModuleStatus struct {
	Name      string    `json:"name"`
	Available bool      `json:"available"`
	Runs      int64     `json:"runs"`
	Errors    int64     `json:"errors"`
	LastRun   time.Time `json:"last_run,omitempty"`
}

// Status is the aggregated view the coordination agent reports on.
type Status struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	Modules      []ModuleStatus `json:"modules"`
	Availability float64        `json:"availability_pct"`
	TotalRuns    int64          `json:"total_runs"`
	TotalErrors  int64          `json:"total_errors"`
}

// Registry tracks module status reports in process.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]ModuleStatus
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]ModuleStatus)}
}

// Report records the latest status for a module.
func (r *Registry) Report(status ModuleStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[status.Name] = status
}

// RecordRun increments the run counters for a module, marking it available.
func (r *Registry) RecordRun(name string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.modules[name]
	m.Name = name
	m.Available = true
	m.Runs++
	if failed {
		m.Errors++
	}
	m.LastRun = time.Now().UTC()
	r.modules[name] = m
}

// Snapshot aggregates everything reported so far.
func (r *Registry) Snapshot(now time.Time) Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := Status{GeneratedAt: now}
	var available int
	for _, m := range r.modules {
		status.Modules = append(status.Modules, m)
		status.TotalRuns += m.Runs
		status.TotalErrors += m.Errors
		if m.Available {
			available++
		}
	}
	sort.Slice(status.Modules, func(i, j int) bool {
		return status.Modules[i].Name < status.Modules[j].Name
	})
	if len(status.Modules) > 0 {
		status.Availability = float64(available) / float64(len(status.Modules)) * 100
	}
	return status
}

// BacklogItem is a unit of pending work awaiting an agent.
type BacklogItem struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Priority int    `json:"priority"` // lower is more urgent
}

// Assignment routes one backlog item to an agent.
type Assignment struct {
	ItemID  string `json:"item_id"`
	Agent   string `json:"agent"`
	Reason  string `json:"reason"`
	Urgency int    `json:"urgency"`
}

// Keyword routing table, checked in order. The coordinator handles anything
// unmatched.
var routes = []struct {
	keywords []string
	agent    string
	reason   string
}{
	{[]string{"network", "config", "compliance", "routing"}, "network_optimization_specialist", "network configuration expertise"},
	{[]string{"sensor", "failure", "maintenance", "anomaly", "health"}, "predictive_maintenance_engineer", "time-series and failure analysis"},
	{[]string{"deploy", "rollout", "rollback", "service", "container"}, "service_deployment_orchestrator", "deployment lifecycle ownership"},
	{[]string{"contribution", "module", "review", "knowledge", "documentation"}, "knowledge_curation_manager", "community curation workflow"},
}

const coordinatorAgent = "ecosystem_coordination_director"

// Route assigns each backlog item to the best-matching agent, most urgent
// first.
func Route(items []BacklogItem) []Assignment {
	sorted := make([]BacklogItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	assignments := make([]Assignment, 0, len(sorted))
	for _, item := range sorted {
		agent, reason := routeItem(item)
		assignments = append(assignments, Assignment{
			ItemID:  item.ID,
			Agent:   agent,
			Reason:  reason,
			Urgency: item.Priority,
		})
	}
	return assignments
}

func routeItem(item BacklogItem) (string, string) {
	summary := strings.ToLower(item.Summary)
	for _, route := range routes {
		for _, kw := range route.keywords {
			if strings.Contains(summary, kw) {
				return route.agent, route.reason
			}
		}
	}
	return coordinatorAgent, "no specialist match, coordinator triages"
}

// ParseBacklog decodes backlog items from JSON.
func ParseBacklog(data []byte) ([]BacklogItem, error) {
	var items []BacklogItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse backlog: %w", err)
	}
	return items, nil
}
