package curation

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/prplworks/cpeforge/agent"
	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/tool"
)

// AgentName is the name the crew routes curation steps to.
const AgentName = "knowledge_curation_manager"

const instructions = `You are the Knowledge Curation Manager, an open-source community
manager with technical validation expertise, experienced in peer-review
workflows, automated testing pipelines, and community-driven quality
assurance. You ensure that shared knowledge meets high standards and remains
accessible to the community.

Your goal: maintain a high-quality, searchable repository of proven solutions
with 90%+ community satisfaction ratings, automated quality scoring, and
efficient skill module distribution.

Use the score_contribution tool on each submitted module and summarize the
outcomes in your report.`

// sharedRepository backs the curation tool so accepted modules survive
// across tool calls within a process.
var sharedRepository = NewRepository()

// ScoreContribution scores a JSON contribution, stores accepted modules in
// the repository and returns the quality score as JSON.
func ScoreContribution(contribution string) string {
	c, err := ParseContribution([]byte(contribution))
	if err != nil {
		return fmt.Sprintf("invalid contribution: %v", err)
	}

	score := Score(c, time.Now().UTC())
	if score.Accepted {
		sharedRepository.Put(c, score)
	}

	out, err := json.Marshal(score)
	if err != nil {
		return fmt.Sprintf("failed to encode score: %v", err)
	}
	return string(out)
}

// Tool exposes contribution scoring to the model.
var Tool = tool.Must(ScoreContribution,
	tool.Name("score_contribution"),
	tool.Description("Score a community-contributed skill module and admit it to the repository when it passes"),
	tool.Parameters("contribution"),
)

// NewAgent builds the knowledge curation agent on the given model.
func NewAgent(model api.Model) api.Agent {
	return agent.New(
		agent.Name(AgentName),
		agent.Model(model),
		agent.Instructions(instructions),
		agent.Tools(Tool),
	)
}
