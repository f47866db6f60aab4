package agent

import (
	"os"
	"strings"
	"text/template"

	"github.com/fogfish/opts"
	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/provider/openai"
	"github.com/prplworks/cpeforge/tool"
	"github.com/prplworks/cpeforge/types"
)

var _ api.Agent = (*defaultAgent)(nil)

type defaultAgent struct {
	name              string
	model             api.Model
	instructions      string
	tools             []tool.Definition
	parallelToolCalls bool
}

func (a *defaultAgent) Name() string {
	return a.name
}

func (a *defaultAgent) Model() api.Model {
	return a.model
}

func (a *defaultAgent) Tools() []tool.Definition {
	return a.tools
}

func (a *defaultAgent) Instructions() string {
	return a.instructions
}

func (a *defaultAgent) ParallelToolCalls() bool {
	return a.parallelToolCalls
}

// RenderInstructions expands {{.var}} references in the instruction template
// against the provided context variables. Plain instructions pass through.
func (a *defaultAgent) RenderInstructions(cv types.ContextVars) (string, error) {
	if !strings.Contains(a.instructions, "{{") {
		return a.instructions, nil
	}
	return renderTemplate("instructions", a.instructions, cv)
}

func renderTemplate(name, templateStr string, cv types.ContextVars) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, cv); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Option configures an agent under construction.
type Option = opts.Option[defaultAgent]

var (
	Name              = opts.ForName[defaultAgent, string]("name")
	Model             = opts.ForName[defaultAgent, api.Model]("model")
	Instructions      = opts.ForName[defaultAgent, string]("instructions")
	ParallelToolCalls = opts.ForName[defaultAgent, bool]("parallelToolCalls")
)

func Tools(tool tool.Definition, extraTools ...tool.Definition) Option {
	return opts.Type[defaultAgent](func(o *defaultAgent) error {
		o.tools = append(o.tools, tool)
		o.tools = append(o.tools, extraTools...)
		return nil
	})
}

// New builds an agent from options. The model defaults to OPENAI_MODEL or
// OPENAI_DEFAULT_MODEL, falling back to gpt-4o-mini.
func New(options ...Option) api.Agent {
	agent := &defaultAgent{
		model:             defaultModel(),
		parallelToolCalls: true,
	}
	if err := opts.Apply(agent, options); err != nil {
		panic(err)
	}
	return agent
}

func defaultModel() api.Model {
	if name := os.Getenv("OPENAI_MODEL"); name != "" {
		return openai.Model(name)
	}
	if name := os.Getenv("OPENAI_DEFAULT_MODEL"); name != "" {
		return openai.Model(name)
	}
	return openai.GPT4oMini()
}
