package ecosystem

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRegistrySnapshot(t *testing.T) {
	reg := NewRegistry()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	reg.Report(ModuleStatus{Name: "netopt", Available: true, Runs: 10, Errors: 1})
	reg.Report(ModuleStatus{Name: "predict", Available: true, Runs: 5})
	reg.Report(ModuleStatus{Name: "deploy", Available: false})

	status := reg.Snapshot(now)

	require.Len(t, status.Modules, 3)
	// Sorted by name.
	assert.Equal(t, "deploy", status.Modules[0].Name)
	assert.Equal(t, "netopt", status.Modules[1].Name)
	assert.Equal(t, int64(15), status.TotalRuns)
	assert.Equal(t, int64(1), status.TotalErrors)
	assert.InDelta(t, 66.666, status.Availability, 0.01)
}

func TestRegistryRecordRun(t *testing.T) {
	reg := NewRegistry()

	reg.RecordRun("netopt", false)
	reg.RecordRun("netopt", true)

	status := reg.Snapshot(time.Now())
	require.Len(t, status.Modules, 1)
	assert.Equal(t, int64(2), status.Modules[0].Runs)
	assert.Equal(t, int64(1), status.Modules[0].Errors)
	assert.True(t, status.Modules[0].Available)
	assert.False(t, status.Modules[0].LastRun.IsZero())
}

func TestRegistryConcurrent(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.RecordRun("netopt", i%10 == 0)
		}(i)
	}
	wg.Wait()

	status := reg.Snapshot(time.Now())
	require.Len(t, status.Modules, 1)
	assert.Equal(t, int64(100), status.Modules[0].Runs)
	assert.Equal(t, int64(10), status.Modules[0].Errors)
}

func TestRoute(t *testing.T) {
	items := []BacklogItem{
		{ID: "item-1", Summary: "Review the new wifi skill module documentation", Priority: 3},
		{ID: "item-2", Summary: "Device sensor anomaly spike in eu-west", Priority: 1},
		{ID: "item-3", Summary: "Rollout the dns cache service to rdk-b fleet", Priority: 2},
		{ID: "item-4", Summary: "Quarterly strategy sync", Priority: 4},
	}

	assignments := Route(items)
	require.Len(t, assignments, 4)

	// Most urgent first.
	assert.Equal(t, "item-2", assignments[0].ItemID)
	assert.Equal(t, "predictive_maintenance_engineer", assignments[0].Agent)
	assert.Equal(t, "service_deployment_orchestrator", assignments[1].Agent)
	assert.Equal(t, "knowledge_curation_manager", assignments[2].Agent)
	assert.Equal(t, coordinatorAgent, assignments[3].Agent)
}

func TestRouteNetworkKeywords(t *testing.T) {
	assignments := Route([]BacklogItem{
		{ID: "item-1", Summary: "Audit config compliance across the fleet", Priority: 1},
	})
	require.Len(t, assignments, 1)
	assert.Equal(t, "network_optimization_specialist", assignments[0].Agent)
}

func TestParseBacklog(t *testing.T) {
	items, err := ParseBacklog([]byte(`[{"id": "item-1", "summary": "network audit", "priority": 1}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "item-1", items[0].ID)

	_, err = ParseBacklog([]byte("todo: everything"))
	require.Error(t, err)
}

func TestTools(t *testing.T) {
	t.Run("status tool", func(t *testing.T) {
		DefaultRegistry().RecordRun("netopt", false)

		out := EcosystemStatus()
		parsed := gjson.Parse(out)
		require.True(t, parsed.IsObject(), out)
		assert.True(t, parsed.Get("modules").IsArray())
	})

	t.Run("route tool", func(t *testing.T) {
		out := RouteBacklog(`[{"id": "item-1", "summary": "sensor health check", "priority": 1}]`)
		parsed := gjson.Parse(out)
		require.True(t, parsed.IsArray(), out)
		assert.Equal(t, "predictive_maintenance_engineer", parsed.Get("0.agent").String())
	})

	t.Run("route tool invalid input", func(t *testing.T) {
		out := RouteBacklog("not a backlog")
		assert.Contains(t, out, "invalid backlog")
	})
}

func TestNewAgent(t *testing.T) {
	a := NewAgent(nil)
	assert.Equal(t, AgentName, a.Name())
	require.Len(t, a.Tools(), 2)
	assert.Equal(t, "ecosystem_status", a.Tools()[0].Name)
	assert.Equal(t, "route_backlog", a.Tools()[1].Name)
}
