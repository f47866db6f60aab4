package predict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/prplworks/cpeforge/types"
)

func seriesOf(device, metric string, values ...float64) SensorSeries {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := SensorSeries{DeviceID: device, Metric: metric}
	for i, v := range values {
		s.Readings = append(s.Readings, Reading{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Value:     v,
		})
	}
	return s
}

func TestSummarize(t *testing.T) {
	s := seriesOf("cpe-001", "temperature", 40, 42, 44, 46)
	st := s.Summarize()

	assert.Equal(t, 4, st.Count)
	assert.InDelta(t, 40, st.Min, 1e-9)
	assert.InDelta(t, 46, st.Max, 1e-9)
	assert.InDelta(t, 43, st.Mean, 1e-9)
	assert.InDelta(t, 46, st.Last, 1e-9)
	assert.InDelta(t, 2.23606, st.StdDev, 1e-4)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Stats{}, SensorSeries{}.Summarize())
}

func TestDetectAnomalies(t *testing.T) {
	t.Run("flags outliers", func(t *testing.T) {
		values := make([]float64, 30)
		for i := range values {
			values[i] = 42
		}
		values[5] = 41
		values[12] = 43
		values[20] = 95 // way outside the band

		s := seriesOf("cpe-001", "temperature", values...)
		anomalies := DetectAnomalies(s, 3)

		require.Len(t, anomalies, 1)
		assert.Equal(t, 95.0, anomalies[0].Value)
		assert.Greater(t, anomalies[0].ZScore, 3.0)
	})

	t.Run("constant series has none", func(t *testing.T) {
		s := seriesOf("cpe-001", "temperature", 42, 42, 42)
		assert.Empty(t, DetectAnomalies(s, 3))
	})

	t.Run("zero threshold uses default", func(t *testing.T) {
		s := seriesOf("cpe-001", "temperature", 42, 42, 42, 42)
		assert.Empty(t, DetectAnomalies(s, 0))
	})
}

func TestParseSeries(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		series, err := ParseSeries([]byte(`{"device_id": "cpe-001", "metric": "temperature", "readings": []}`))
		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.Equal(t, "cpe-001", series[0].DeviceID)
	})

	t.Run("array", func(t *testing.T) {
		series, err := ParseSeries([]byte(`[{"device_id": "a"}, {"device_id": "b"}]`))
		require.NoError(t, err)
		assert.Len(t, series, 2)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseSeries([]byte("sensors go brr"))
		require.Error(t, err)
	})
}

func TestAssessDevice(t *testing.T) {
	t.Run("healthy device", func(t *testing.T) {
		series := []SensorSeries{
			seriesOf("cpe-001", "temperature", 40, 41, 40, 42),
			seriesOf("cpe-001", "cpu_utilization", 30, 35, 32, 31),
		}
		health := AssessDevice("cpe-001", series, 3)

		assert.Greater(t, health.HealthScore, 90.0)
		assert.Less(t, health.FailureProbability, 0.2)
		assert.Empty(t, health.Anomalies)
	})

	t.Run("stressed device", func(t *testing.T) {
		series := []SensorSeries{
			seriesOf("cpe-002", "temperature", 80, 82, 84, 83),
			seriesOf("cpe-002", "cpu_utilization", 95, 97, 96, 98),
		}
		health := AssessDevice("cpe-002", series, 3)

		assert.Less(t, health.HealthScore, 60.0)
		assert.Greater(t, health.FailureProbability, 0.5)
	})
}

func TestAssess(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	series := []SensorSeries{
		seriesOf("cpe-healthy", "temperature", 40, 41, 40),
		seriesOf("cpe-hot", "temperature", 82, 84, 85, 83),
		seriesOf("cpe-hot", "cpu_utilization", 96, 97, 98, 99),
	}

	report := Assess(series, 0.7, 3, now)

	require.Len(t, report.Devices, 2)
	assert.Equal(t, "cpe-healthy", report.Devices[0].DeviceID)
	assert.Equal(t, "cpe-hot", report.Devices[1].DeviceID)

	require.Len(t, report.Schedule, 1)
	window := report.Schedule[0]
	assert.Equal(t, "cpe-hot", window.DeviceID)
	assert.Equal(t, now.Add(24*time.Hour), window.Start)
	assert.Equal(t, 4*time.Hour, window.End.Sub(window.Start))
	assert.GreaterOrEqual(t, window.FailureProbability, 0.7)
}

func TestAssessScheduleOrder(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	series := []SensorSeries{
		seriesOf("cpe-warm", "temperature", 75, 76, 77),
		seriesOf("cpe-critical", "temperature", 84, 85, 85),
		seriesOf("cpe-critical", "cpu_utilization", 99, 99, 100),
	}

	report := Assess(series, 0.5, 3, now)
	require.GreaterOrEqual(t, len(report.Schedule), 2)

	// Riskiest device gets the earliest window.
	assert.Equal(t, "cpe-critical", report.Schedule[0].DeviceID)
	assert.True(t, report.Schedule[0].Start.Before(report.Schedule[1].Start))
}

func TestProcessSensorDataTool(t *testing.T) {
	t.Run("returns a json report", func(t *testing.T) {
		out := ProcessSensorData(`[{"device_id": "cpe-001", "metric": "temperature", "readings": [{"timestamp": "2026-08-01T00:00:00Z", "value": 41}]}]`, nil)
		parsed := gjson.Parse(out)
		require.True(t, parsed.IsObject())
		assert.Equal(t, "cpe-001", parsed.Get("devices.0.device_id").String())
		assert.InDelta(t, 0.7, parsed.Get("threshold").Float(), 1e-9)
	})

	t.Run("honors the context threshold", func(t *testing.T) {
		out := ProcessSensorData(`[]`, types.ContextVars{"prediction_threshold": 0.9})
		assert.InDelta(t, 0.9, gjson.Get(out, "threshold").Float(), 1e-9)
	})

	t.Run("reports invalid input", func(t *testing.T) {
		out := ProcessSensorData("not json", nil)
		assert.Contains(t, out, "invalid sensor data")
	})

	t.Run("definition", func(t *testing.T) {
		assert.Equal(t, "process_sensor_data", Tool.Name)
		_, schema := Tool.ToNameAndSchema()
		_, hasParam := schema.Properties.Get("sensor_readings")
		assert.True(t, hasParam)
		// Context vars are injected, not model-supplied.
		assert.Equal(t, 1, schema.Properties.Len())
	})
}

func TestNewAgent(t *testing.T) {
	a := NewAgent(nil)
	assert.Equal(t, AgentName, a.Name())
	require.Len(t, a.Tools(), 1)
	assert.Equal(t, "process_sensor_data", a.Tools()[0].Name)
}
