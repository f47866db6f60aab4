package deploy

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/prplworks/cpeforge/agent"
	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/tool"
	"github.com/prplworks/cpeforge/types"
)

// AgentName is the name the crew routes deployment steps to.
const AgentName = "service_deployment_orchestrator"

const instructions = `You are the Service Deployment Orchestrator, a DevOps architect
specializing in CPE environments, with expertise in containerized and native
middleware deployment patterns across prplOS and RDK-B platforms. You ensure
reliable, scalable service deployments with minimal disruption to existing
operations.

Your goal: execute zero-downtime deployments with comprehensive monitoring,
automated rollback capabilities, and detailed performance tracking for both
containerized and native CPE applications.

Use the validate_deployment tool on the provided service specification and
build your report from its plan.`

// ValidateDeployment validates a JSON service spec and, when valid, returns
// the staged rollout plan as JSON. Fleet size comes from the run's context
// variables, defaulting to 100 devices.
func ValidateDeployment(serviceSpec string, cv types.ContextVars) string {
	spec, err := ParseSpec([]byte(serviceSpec))
	if err != nil {
		return fmt.Sprintf("invalid service spec: %v", err)
	}

	fleetSize := 100
	if v, ok := cv["fleet_size"].(int); ok && v > 0 {
		fleetSize = v
	}

	plan, err := NewPlan(spec, fleetSize)
	if err != nil {
		return fmt.Sprintf("validation failed: %v", err)
	}

	out, err := json.Marshal(plan)
	if err != nil {
		return fmt.Sprintf("failed to encode plan: %v", err)
	}
	return string(out)
}

// Tool exposes deployment validation to the model.
var Tool = tool.Must(ValidateDeployment,
	tool.Name("validate_deployment"),
	tool.Description("Validate a CPE service deployment specification and plan a staged rollout"),
	tool.Parameters("service_spec"),
)

// NewAgent builds the deployment orchestration agent on the given model.
func NewAgent(model api.Model) api.Agent {
	return agent.New(
		agent.Name(AgentName),
		agent.Model(model),
		agent.Instructions(instructions),
		agent.Tools(Tool),
	)
}
