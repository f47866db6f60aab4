package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is an optional YAML overlay that tunes individual agents without
// code changes. String values may reference environment variables as
// ${VAR:-default}, ${VAR} or $VAR.
type Profile struct {
	Name   string                  `yaml:"name,omitempty"`
	Agents map[string]AgentProfile `yaml:"agents,omitempty"`
}

// AgentProfile overrides a single agent's model or instructions.
type AgentProfile struct {
	Model        string `yaml:"model,omitempty"`
	Instructions string `yaml:"instructions,omitempty"`
}

// LoadProfile reads a profile from disk and expands environment references
// in its values.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}

	p.Name = expandEnvVars(p.Name)
	for name, ap := range p.Agents {
		ap.Model = expandEnvVars(ap.Model)
		ap.Instructions = expandEnvVars(ap.Instructions)
		p.Agents[name] = ap
	}
	return p, nil
}

// Agent returns the overrides for the named agent, if any.
func (p Profile) Agent(name string) (AgentProfile, bool) {
	ap, ok := p.Agents[name]
	return ap, ok
}

var envVarPatterns = struct {
	withDefault *regexp.Regexp // ${VAR:-default}
	braced      *regexp.Regexp // ${VAR}
	simple      *regexp.Regexp // $VAR
}{
	withDefault: regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`),
	braced:      regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`),
	simple:      regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`),
}

// expandEnvVars expands ${VAR:-default}, ${VAR} and $VAR references, most
// specific pattern first.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	s = envVarPatterns.withDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.withDefault.FindStringSubmatch(match)
		if len(parts) == 3 {
			if val := os.Getenv(parts[1]); val != "" {
				return val
			}
			return parts[2]
		}
		return match
	})

	s = envVarPatterns.braced.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.braced.FindStringSubmatch(match)
		if len(parts) == 2 {
			return os.Getenv(parts[1])
		}
		return match
	})

	return envVarPatterns.simple.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.simple.FindStringSubmatch(match)
		if len(parts) == 2 {
			return os.Getenv(parts[1])
		}
		return match
	})
}
