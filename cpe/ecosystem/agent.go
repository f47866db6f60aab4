package ecosystem

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/prplworks/cpeforge/agent"
	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/tool"
)

// AgentName is the name the crew routes coordination steps to.
const AgentName = "ecosystem_coordination_director"

const instructions = `You are the Ecosystem Coordination Director, a distributed
systems architect with extensive experience in multi-agent orchestration,
community platform scaling, and enterprise-grade reliability engineering for
middleware environments. You oversee the entire ecosystem to ensure smooth
operation and continuous improvement.

Your goal: optimize cross-agent collaboration efficiency, maintain
system-wide performance metrics above 95% availability, and facilitate
sustainable community growth through intelligent task distribution and
quality control.

Use the ecosystem_status tool for the current system picture and the
route_backlog tool to distribute pending work, then consolidate everything
into the final ecosystem report.`

// defaultRegistry backs the status tool; framework runs report into it.
var defaultRegistry = NewRegistry()

// DefaultRegistry is the process-wide status registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// EcosystemStatus returns the aggregated module status as JSON.
func EcosystemStatus() string {
	status := defaultRegistry.Snapshot(time.Now().UTC())
	out, err := json.Marshal(status)
	if err != nil {
		return fmt.Sprintf("failed to encode status: %v", err)
	}
	return string(out)
}

// RouteBacklog assigns JSON backlog items to agents and returns the
// assignments as JSON.
func RouteBacklog(backlog string) string {
	items, err := ParseBacklog([]byte(backlog))
	if err != nil {
		return fmt.Sprintf("invalid backlog: %v", err)
	}

	out, err := json.Marshal(Route(items))
	if err != nil {
		return fmt.Sprintf("failed to encode assignments: %v", err)
	}
	return string(out)
}

var (
	// StatusTool exposes the system snapshot to the model.
	StatusTool = tool.Must(EcosystemStatus,
		tool.Name("ecosystem_status"),
		tool.Description("Report aggregated framework module status and availability"),
	)

	// RouteTool exposes backlog routing to the model.
	RouteTool = tool.Must(RouteBacklog,
		tool.Name("route_backlog"),
		tool.Description("Assign backlog items to the best suited specialist agent"),
		tool.Parameters("backlog"),
	)
)

// NewAgent builds the coordination agent on the given model.
func NewAgent(model api.Model) api.Agent {
	return agent.New(
		agent.Name(AgentName),
		agent.Model(model),
		agent.Instructions(instructions),
		agent.Tools(StatusTool, RouteTool),
	)
}
