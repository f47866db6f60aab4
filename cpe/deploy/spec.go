// Package deploy validates CPE service deployment specifications and plans
// staged rollouts with rollback triggers. It never talks to devices.
package deploy

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
)

// Platform is a supported CPE middleware platform.
type Platform string

const (
	PlatformPrplOS Platform = "prplos"
	PlatformRDKB   Platform = "rdk-b"
)

// Runtime is how the service executes on the device.
type Runtime string

const (
	RuntimeContainer Runtime = "container"
	RuntimeNative    Runtime = "native"
)

// Resources bounds what the service may consume on a device.
type Resources struct {
	CPUMillis int `json:"cpu_millis"`
	MemoryMB  int `json:"memory_mb"`
	StorageMB int `json:"storage_mb,omitempty"`
}

// HealthCheck describes how the rollout decides a device is healthy.
type HealthCheck struct {
	Endpoint        string `json:"endpoint"`
	IntervalSeconds int    `json:"interval_seconds,omitempty"`
	FailureLimit    int    `json:"failure_limit,omitempty"`
}

// ServiceSpec is a deployable service description.
type ServiceSpec struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Platform    Platform    `json:"platform"`
	Runtime     Runtime     `json:"runtime"`
	Image       string      `json:"image,omitempty"`
	Resources   Resources   `json:"resources"`
	HealthCheck HealthCheck `json:"health_check"`
	// CanaryFraction is the share of the fleet that receives the canary
	// stage, defaulting to 0.05 when zero.
	CanaryFraction float64 `json:"canary_fraction,omitempty"`
}

// Device resource ceilings for a single service. Typical CPE hardware is
// small, anything above these points at a misconfigured spec.
const (
	maxCPUMillis = 2000
	maxMemoryMB  = 1024
	maxStorageMB = 4096
)

var semverPattern = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

// ValidationError collects everything wrong with a spec.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid service spec: %s", strings.Join(e.Problems, "; "))
}

// Validate checks the service spec against the platform's requirements.
func (s ServiceSpec) Validate() error {
	var problems []string

	if s.Name == "" {
		problems = append(problems, "name is required")
	}
	if s.Version == "" {
		problems = append(problems, "version is required")
	} else if !semverPattern.MatchString(s.Version) {
		problems = append(problems, fmt.Sprintf("version %q is not semantic", s.Version))
	}

	switch s.Platform {
	case PlatformPrplOS, PlatformRDKB:
	case "":
		problems = append(problems, "platform is required")
	default:
		problems = append(problems, fmt.Sprintf("unknown platform %q", s.Platform))
	}

	switch s.Runtime {
	case RuntimeContainer:
		if s.Image == "" {
			problems = append(problems, "container runtime requires an image")
		}
	case RuntimeNative:
	case "":
		problems = append(problems, "runtime is required")
	default:
		problems = append(problems, fmt.Sprintf("unknown runtime %q", s.Runtime))
	}

	if s.Resources.CPUMillis <= 0 || s.Resources.CPUMillis > maxCPUMillis {
		problems = append(problems, fmt.Sprintf("cpu request %dm outside (0, %d]", s.Resources.CPUMillis, maxCPUMillis))
	}
	if s.Resources.MemoryMB <= 0 || s.Resources.MemoryMB > maxMemoryMB {
		problems = append(problems, fmt.Sprintf("memory request %dMB outside (0, %d]", s.Resources.MemoryMB, maxMemoryMB))
	}
	if s.Resources.StorageMB > maxStorageMB {
		problems = append(problems, fmt.Sprintf("storage request %dMB exceeds %d", s.Resources.StorageMB, maxStorageMB))
	}

	if s.HealthCheck.Endpoint == "" {
		problems = append(problems, "health check endpoint is required")
	}
	if s.CanaryFraction < 0 || s.CanaryFraction > 0.5 {
		problems = append(problems, fmt.Sprintf("canary fraction %g outside [0, 0.5]", s.CanaryFraction))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ParseSpec decodes a service spec from JSON.
func ParseSpec(data []byte) (ServiceSpec, error) {
	var spec ServiceSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return ServiceSpec{}, fmt.Errorf("parse service spec: %w", err)
	}
	return spec, nil
}
