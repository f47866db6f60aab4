package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadProfile(t *testing.T) {
	t.Setenv("FLEET_MODEL", "gpt-4o")

	path := writeProfile(t, `
name: eu-west-fleet
agents:
  network_optimization_specialist:
    model: ${FLEET_MODEL}
    instructions: Focus on prplOS devices in ${REGION:-eu-west}
  predictive_maintenance_engineer:
    model: ${MAINT_MODEL:-gpt-4o-mini}
`)

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-fleet", p.Name)

	netOpt, ok := p.Agent("network_optimization_specialist")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", netOpt.Model)
	assert.Equal(t, "Focus on prplOS devices in eu-west", netOpt.Instructions)

	maint, ok := p.Agent("predictive_maintenance_engineer")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", maint.Model)

	_, ok = p.Agent("unknown_agent")
	assert.False(t, ok)
}

func TestLoadProfileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read profile")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeProfile(t, "agents: [not a map")
		_, err := LoadProfile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse profile")
	})
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CPE_REGION", "us-east")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no references", "plain text", "plain text"},
		{"braced", "region ${CPE_REGION}", "region us-east"},
		{"simple", "region $CPE_REGION", "region us-east"},
		{"default used", "${CPE_MISSING:-fallback}", "fallback"},
		{"default ignored when set", "${CPE_REGION:-fallback}", "us-east"},
		{"unset braced empty", "x${CPE_MISSING}y", "xy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.in))
		})
	}
}
