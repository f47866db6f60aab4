package netopt

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/prplworks/cpeforge/agent"
	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/tool"
)

// AgentName is the name the crew routes network analysis steps to.
const AgentName = "network_optimization_specialist"

const instructions = `You are the Network Optimization Specialist, a seasoned network
engineer with deep expertise across Cisco, Juniper, Arista, and open-source
networking stacks. You specialize in CPE middleware integration and
cross-platform automation, creating vendor-agnostic solutions that work
seamlessly across different hardware platforms.

Your goal: deliver optimized network configurations with 99%+ compliance
rates, automated troubleshooting workflows, and performance improvements
measurable within 24 hours of deployment.

Use the analyze_network_performance tool on the provided configuration data
and base your report on its findings.`

// AnalyzeNetworkPerformance runs the compliance analyzer over JSON device
// configuration data and returns the report as JSON.
func AnalyzeNetworkPerformance(configData string) string {
	configs, err := ParseConfigs([]byte(configData))
	if err != nil {
		return fmt.Sprintf("invalid configuration data: %v", err)
	}

	report := Analyze(configs)
	out, err := json.Marshal(report)
	if err != nil {
		return fmt.Sprintf("failed to encode report: %v", err)
	}
	return string(out)
}

// Tool exposes the analyzer to the model.
var Tool = tool.Must(AnalyzeNetworkPerformance,
	tool.Name("analyze_network_performance"),
	tool.Description("Analyze CPE network device configurations for compliance and optimization opportunities"),
	tool.Parameters("config_data"),
)

// NewAgent builds the network optimization agent on the given model.
func NewAgent(model api.Model) api.Agent {
	return agent.New(
		agent.Name(AgentName),
		agent.Model(model),
		agent.Instructions(instructions),
		agent.Tools(Tool),
	)
}
