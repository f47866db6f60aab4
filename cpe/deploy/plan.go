package deploy

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/prplworks/cpeforge/pkg/uuidx"
)

// StageKind orders the phases of a rollout.
type StageKind string

const (
	StageValidate StageKind = "validate"
	StageCanary   StageKind = "canary"
	StageWave     StageKind = "wave"
	StageFinalize StageKind = "finalize"
)

// Stage is one phase of the rollout plan.
type Stage struct {
	ID      uuid.UUID `json:"id"`
	Kind    StageKind `json:"kind"`
	Name    string    `json:"name"`
	Devices int       `json:"devices"`
}

// RollbackTrigger aborts the rollout and reverts when tripped.
type RollbackTrigger struct {
	Condition string  `json:"condition"`
	Threshold float64 `json:"threshold"`
}

// Plan is a staged rollout for one service over a fleet.
type Plan struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Platform  Platform          `json:"platform"`
	Fleet     int               `json:"fleet"`
	Stages    []Stage           `json:"stages"`
	Rollbacks []RollbackTrigger `json:"rollbacks"`
}

// Fleet waves after the canary, each covering an equal share of the
// remaining devices.
const waveCount = 3

// NewPlan builds the staged rollout for a validated spec over fleetSize
// devices.
func NewPlan(spec ServiceSpec, fleetSize int) (Plan, error) {
	if err := spec.Validate(); err != nil {
		return Plan{}, err
	}
	if fleetSize < 1 {
		return Plan{}, fmt.Errorf("fleet size must be at least 1, got %d", fleetSize)
	}

	canaryFraction := spec.CanaryFraction
	if canaryFraction == 0 {
		canaryFraction = 0.05
	}
	canarySize := int(math.Ceil(float64(fleetSize) * canaryFraction))
	if canarySize < 1 {
		canarySize = 1
	}
	if canarySize > fleetSize {
		canarySize = fleetSize
	}

	plan := Plan{
		Service:  spec.Name,
		Version:  spec.Version,
		Platform: spec.Platform,
		Fleet:    fleetSize,
		Stages: []Stage{
			{ID: uuidx.New(), Kind: StageValidate, Name: "validate spec and device compatibility"},
			{ID: uuidx.New(), Kind: StageCanary, Name: "canary rollout", Devices: canarySize},
		},
		Rollbacks: []RollbackTrigger{
			{Condition: "health_check_failure_rate", Threshold: 0.05},
			{Condition: "error_budget_burn", Threshold: 1.0},
		},
	}

	remaining := fleetSize - canarySize
	for i := 0; i < waveCount && remaining > 0; i++ {
		size := remaining / (waveCount - i)
		if i == waveCount-1 {
			size = remaining
		}
		if size < 1 {
			size = remaining
		}
		plan.Stages = append(plan.Stages, Stage{
			ID:      uuidx.New(),
			Kind:    StageWave,
			Name:    fmt.Sprintf("fleet wave %d", i+1),
			Devices: size,
		})
		remaining -= size
	}

	plan.Stages = append(plan.Stages, Stage{
		ID:   uuidx.New(),
		Kind: StageFinalize,
		Name: "finalize and record deployment",
	})

	return plan, nil
}
