// Package curation scores community-contributed skill modules and keeps the
// accepted ones in a searchable repository.
package curation

import (
	"fmt"
	"math"
	"time"

	json "github.com/goccy/go-json"
)

// Review is one peer review of a contribution.
type Review struct {
	Reviewer string  `json:"reviewer"`
	Score    float64 `json:"score"` // 0..5
	Comment  string  `json:"comment,omitempty"`
}

// Contribution is a community-submitted skill module.
type Contribution struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Author      string    `json:"author"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	HasTests    bool      `json:"has_tests"`
	TestsPass   bool      `json:"tests_pass"`
	HasDocs     bool      `json:"has_docs"`
	Reviews     []Review  `json:"reviews,omitempty"`
}

// QualityScore is the scored outcome of curation.
type QualityScore struct {
	ContributionID string  `json:"contribution_id"`
	Score          float64 `json:"score"` // 0..100
	TestScore      float64 `json:"test_score"`
	DocScore       float64 `json:"doc_score"`
	ReviewScore    float64 `json:"review_score"`
	RecencyScore   float64 `json:"recency_score"`
	Accepted       bool    `json:"accepted"`
	Feedback       string  `json:"feedback,omitempty"`
}

// AcceptanceThreshold is the minimum quality score for repository admission.
const AcceptanceThreshold = 70.0

// Score rates a contribution. Component weights: tests 40%, peer reviews
// 30%, documentation 20%, recency 10%.
func Score(c Contribution, now time.Time) QualityScore {
	qs := QualityScore{ContributionID: c.ID}

	switch {
	case c.HasTests && c.TestsPass:
		qs.TestScore = 100
	case c.HasTests:
		qs.TestScore = 30
	}

	if c.HasDocs {
		qs.DocScore = 100
	}

	if len(c.Reviews) > 0 {
		var sum float64
		for _, r := range c.Reviews {
			sum += math.Max(0, math.Min(5, r.Score))
		}
		qs.ReviewScore = sum / float64(len(c.Reviews)) / 5 * 100
	}

	// Linear decay over a year since submission.
	age := now.Sub(c.SubmittedAt)
	if age < 0 {
		age = 0
	}
	qs.RecencyScore = math.Max(0, 100*(1-age.Hours()/(365*24)))

	qs.Score = math.Round(0.4*qs.TestScore + 0.3*qs.ReviewScore + 0.2*qs.DocScore + 0.1*qs.RecencyScore)
	qs.Accepted = qs.Score >= AcceptanceThreshold
	qs.Feedback = feedback(c, qs)

	return qs
}

func feedback(c Contribution, qs QualityScore) string {
	switch {
	case qs.Accepted:
		return "meets community quality standards"
	case !c.HasTests:
		return "add automated tests before resubmitting"
	case !c.TestsPass:
		return "fix the failing test suite before resubmitting"
	case !c.HasDocs:
		return "document the module's usage and configuration"
	case len(c.Reviews) == 0:
		return "needs peer reviews before acceptance"
	default:
		return "address reviewer feedback and resubmit"
	}
}

// ParseContribution decodes a contribution from JSON.
func ParseContribution(data []byte) (Contribution, error) {
	var c Contribution
	if err := json.Unmarshal(data, &c); err != nil {
		return Contribution{}, fmt.Errorf("parse contribution: %w", err)
	}
	return c, nil
}
