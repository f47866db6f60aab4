/*
Package tool defines the functions agents can invoke during a run.

A tool wraps an ordinary Go function with a name, a description, and named
parameters. The parameter schema handed to the model is derived from the
function signature by reflection, so tools stay plain Go:

	var AnalyzeDevice = tool.Must(analyzeDevice,
		tool.Name("analyze_network_performance"),
		tool.Description("Analyze a CPE device configuration for compliance issues"),
		tool.Parameters("config"),
	)

Functions may take a types.ContextVars parameter in any position. It is
injected by the executor at call time and excluded from the model-facing
schema.
*/
package tool
