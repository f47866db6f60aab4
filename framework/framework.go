// Package framework assembles the community-driven CPE innovation crew: five
// specialized agents run in sequence over an analysis input and produce the
// comprehensive ecosystem report.
package framework

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/prplworks/cpeforge"
	"github.com/prplworks/cpeforge/agent"
	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/config"
	"github.com/prplworks/cpeforge/cpe/curation"
	"github.com/prplworks/cpeforge/cpe/deploy"
	"github.com/prplworks/cpeforge/cpe/ecosystem"
	"github.com/prplworks/cpeforge/cpe/netopt"
	"github.com/prplworks/cpeforge/cpe/predict"
	"github.com/prplworks/cpeforge/events"
	"github.com/prplworks/cpeforge/provider/openai"
	"github.com/prplworks/cpeforge/types"
)

// AnalysisInput is the data the crew analyzes. Zero fields fall back to
// descriptive placeholders, matching an exploratory run.
type AnalysisInput struct {
	NetworkConfig          string `json:"network_config"`
	SensorData             string `json:"sensor_data"`
	ServiceSpecs           string `json:"service_specs"`
	CommunityContributions string `json:"community_contributions"`
	AnalysisType           string `json:"analysis_type"`
}

func (in AnalysisInput) withDefaults() AnalysisInput {
	def := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	return AnalysisInput{
		NetworkConfig:          def(in.NetworkConfig, "Current network configuration data"),
		SensorData:             def(in.SensorData, "Equipment sensor readings and historical data"),
		ServiceSpecs:           def(in.ServiceSpecs, "Service deployment specifications"),
		CommunityContributions: def(in.CommunityContributions, "Recent community submissions"),
		AnalysisType:           def(in.AnalysisType, "comprehensive_ecosystem_analysis"),
	}
}

// SystemStatus mirrors the framework's operational state.
type SystemStatus struct {
	FrameworkStatus string    `json:"framework_status"`
	AgentsCount     int       `json:"agents_count"`
	TasksCount      int       `json:"tasks_count"`
	LastAnalysis    time.Time `json:"last_analysis,omitempty"`
	CrewInitialized bool      `json:"crew_initialized"`
}

// Framework owns the five agents and runs the sequential analysis.
type Framework struct {
	settings config.Settings
	profile  *config.Profile
	agents   []api.Agent
	stream   bool

	mu           sync.Mutex
	lastAnalysis time.Time
	initialized  bool
}

// Option configures the framework.
type Option func(*Framework)

// WithProfile applies per-agent model and instruction overrides.
func WithProfile(p config.Profile) Option {
	return func(f *Framework) { f.profile = &p }
}

// WithStreaming requests chunked deltas from the model providers so hooks
// can display output as it is produced.
func WithStreaming(stream bool) Option {
	return func(f *Framework) { f.stream = stream }
}

// New validates the settings and builds the five agents.
func New(settings config.Settings, options ...Option) (*Framework, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	f := &Framework{settings: settings}
	for _, opt := range options {
		opt(f)
	}

	model := openai.Model(settings.OpenAIModel)
	builders := []func(api.Model) api.Agent{
		netopt.NewAgent,
		predict.NewAgent,
		deploy.NewAgent,
		curation.NewAgent,
		ecosystem.NewAgent,
	}

	for _, build := range builders {
		f.agents = append(f.agents, f.applyProfile(build(model)))
	}

	return f, nil
}

// applyProfile rebuilds an agent when the profile overrides it.
func (f *Framework) applyProfile(a api.Agent) api.Agent {
	if f.profile == nil {
		return a
	}
	ap, ok := f.profile.Agent(a.Name())
	if !ok {
		return a
	}

	model := a.Model()
	if ap.Model != "" {
		model = openai.Model(ap.Model)
	}
	instructions := a.Instructions()
	if ap.Instructions != "" {
		instructions = ap.Instructions
	}

	opts := []agent.Option{
		agent.Name(a.Name()),
		agent.Model(model),
		agent.Instructions(instructions),
	}
	if tools := a.Tools(); len(tools) > 0 {
		opts = append(opts, agent.Tools(tools[0], tools[1:]...))
	}
	return agent.New(opts...)
}

// Agents returns the crew roster in execution order.
func (f *Framework) Agents() []api.Agent {
	return f.agents
}

// Run executes the full sequential analysis and returns the final ecosystem
// report. Extra hooks observe every event of the run.
func (f *Framework) Run(ctx context.Context, input AnalysisInput, hooks ...events.Hook) (string, error) {
	tasks, err := renderTasks(input.withDefaults())
	if err != nil {
		return "", err
	}

	steps := make([]cpeforge.ConversationStep, 0, len(f.agents))
	for i, a := range f.agents {
		steps = append(steps, cpeforge.Step(a.Name(), tasks[i]))
	}

	crew := cpeforge.New(
		cpeforge.Agents(f.agents[0], f.agents[1:]...),
		cpeforge.Steps(steps[0], steps[1:]...),
	)

	hook := newRunHook(hooks...)
	rc := cpeforge.Local[string](hook,
		cpeforge.WithContextVars(types.ContextVars{
			"prediction_threshold": f.settings.PredictionThreshold,
			"fleet_size":           f.settings.MaxConcurrentDevices,
		}),
		cpeforge.Streaming(f.stream),
	)

	f.mu.Lock()
	f.initialized = true
	f.mu.Unlock()

	runErr := crew.Run(ctx, rc)

	f.mu.Lock()
	f.lastAnalysis = time.Now().UTC()
	f.mu.Unlock()

	ecosystem.DefaultRegistry().RecordRun("framework", runErr != nil || hook.failure() != nil)

	if runErr != nil {
		return "", runErr
	}
	if err := hook.failure(); err != nil {
		return "", err
	}
	return hook.report(), nil
}

// Status reports the framework's operational state.
func (f *Framework) Status() SystemStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return SystemStatus{
		FrameworkStatus: "Active",
		AgentsCount:     len(f.agents),
		TasksCount:      len(taskTemplates),
		LastAnalysis:    f.lastAnalysis,
		CrewInitialized: f.initialized,
	}
}

// renderTasks expands the five task prompts over the input, in crew order.
func renderTasks(input AnalysisInput) ([]string, error) {
	tasks := make([]string, 0, len(taskTemplates))
	for _, tt := range taskTemplates {
		tmpl, err := template.New(tt.name).Parse(tt.text)
		if err != nil {
			return nil, fmt.Errorf("parse task %s: %w", tt.name, err)
		}
		var buf strings.Builder
		if err := tmpl.Execute(&buf, input); err != nil {
			return nil, fmt.Errorf("render task %s: %w", tt.name, err)
		}
		tasks = append(tasks, buf.String())
	}
	return tasks, nil
}
