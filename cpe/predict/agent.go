package predict

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/prplworks/cpeforge/agent"
	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/tool"
	"github.com/prplworks/cpeforge/types"
)

// AgentName is the name the crew routes maintenance steps to.
const AgentName = "predictive_maintenance_engineer"

const instructions = `You are the Predictive Maintenance Engineer, an industrial IoT
expert with experience in time-series analysis, sensor data processing, and
predictive workflows across diverse hardware ecosystems. You excel at turning
raw sensor data into actionable maintenance insights that prevent equipment
failures.

Your goal: achieve 85%+ accuracy in failure prediction with optimized recall
rates, generate actionable maintenance schedules, and minimize unplanned
downtime through early anomaly detection.

Use the process_sensor_data tool on the provided readings and build your
report from its assessment.`

// ProcessSensorData assesses JSON sensor series and returns the maintenance
// report as JSON. The prediction threshold comes from the run's context
// variables when set.
func ProcessSensorData(sensorReadings string, cv types.ContextVars) string {
	series, err := ParseSeries([]byte(sensorReadings))
	if err != nil {
		return fmt.Sprintf("invalid sensor data: %v", err)
	}

	threshold := 0.7
	if v, ok := cv["prediction_threshold"].(float64); ok && v > 0 {
		threshold = v
	}

	report := Assess(series, threshold, DefaultZScoreThreshold, time.Now().UTC())
	out, err := json.Marshal(report)
	if err != nil {
		return fmt.Sprintf("failed to encode report: %v", err)
	}
	return string(out)
}

// Tool exposes the sensor assessment to the model.
var Tool = tool.Must(ProcessSensorData,
	tool.Name("process_sensor_data"),
	tool.Description("Process CPE sensor readings into health scores, anomalies and a maintenance schedule"),
	tool.Parameters("sensor_readings"),
)

// NewAgent builds the predictive maintenance agent on the given model.
func NewAgent(model api.Model) api.Agent {
	return agent.New(
		agent.Name(AgentName),
		agent.Model(model),
		agent.Instructions(instructions),
		agent.Tools(Tool),
	)
}
