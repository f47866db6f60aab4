package tool

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/prplworks/cpeforge/types"
)

func TestNew(t *testing.T) {
	testFunc := func(device string) string { return device }

	t.Run("valid function", func(t *testing.T) {
		def, err := New(testFunc)
		require.NoError(t, err)
		assert.Equal(t, reflect.ValueOf(testFunc).Pointer(), reflect.ValueOf(def.Function).Pointer())
		assert.NotEmpty(t, def.Name)
	})

	t.Run("not a function", func(t *testing.T) {
		_, err := New("not a function")
		require.Error(t, err)
	})
}

func TestMust(t *testing.T) {
	t.Run("valid function", func(t *testing.T) {
		assert.NotPanics(t, func() { Must(func() {}) })
	})

	t.Run("invalid function panics", func(t *testing.T) {
		assert.Panics(t, func() { Must(42) })
	})
}

func TestOptions(t *testing.T) {
	def, err := New(func(a, b string) {},
		Name("analyze_network_performance"),
		Description("Analyze a CPE device configuration"),
		Parameters("config", "profile"),
	)
	require.NoError(t, err)

	assert.Equal(t, "analyze_network_performance", def.Name)
	assert.Equal(t, "Analyze a CPE device configuration", def.Description)
	assert.Equal(t, map[string]string{"param0": "config", "param1": "profile"}, def.Parameters)
}

func TestToNameAndSchema(t *testing.T) {
	t.Run("named parameters", func(t *testing.T) {
		def := Must(func(config string, threshold float64) string { return "" },
			Name("validate_deployment"),
			Parameters("config", "threshold"),
		)

		name, schema := def.ToNameAndSchema()
		assert.Equal(t, "validate_deployment", name)
		require.NotNil(t, schema.Properties)

		_, hasConfig := schema.Properties.Get("config")
		_, hasThreshold := schema.Properties.Get("threshold")
		assert.True(t, hasConfig)
		assert.True(t, hasThreshold)
		assert.Equal(t, []string{"config", "threshold"}, schema.Required)
	})

	t.Run("context vars excluded", func(t *testing.T) {
		def := Must(func(cv types.ContextVars, device string) string { return "" },
			Parameters("device"),
		)

		_, schema := def.ToNameAndSchema()
		assert.Equal(t, 1, schema.Properties.Len())
		_, hasDevice := schema.Properties.Get("device")
		assert.True(t, hasDevice)
	})

	t.Run("no parameters", func(t *testing.T) {
		def := Must(func() {})
		_, schema := def.ToNameAndSchema()
		assert.Equal(t, 0, schema.Properties.Len())
		assert.Empty(t, schema.Required)
	})
}
