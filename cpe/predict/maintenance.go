package predict

import (
	"math"
	"sort"
	"time"
)

// DeviceHealth is the assessed condition of one device.
type DeviceHealth struct {
	DeviceID string `json:"device_id"`
	// HealthScore is 0..100, higher is healthier.
	HealthScore float64 `json:"health_score"`
	// FailureProbability is 0..1 over the next maintenance horizon.
	FailureProbability float64   `json:"failure_probability"`
	Anomalies          []Anomaly `json:"anomalies,omitempty"`
}

// MaintenanceWindow schedules attention for one device.
type MaintenanceWindow struct {
	DeviceID           string    `json:"device_id"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	Risk               string    `json:"risk"`
	FailureProbability float64   `json:"failure_probability"`
	Reason             string    `json:"reason"`
}

// MaintenanceReport is the full prediction output for a fleet.
type MaintenanceReport struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Devices     []DeviceHealth      `json:"devices"`
	Schedule    []MaintenanceWindow `json:"schedule,omitempty"`
	Threshold   float64             `json:"threshold"`
}

// Feature normalization bounds. Values outside clamp to the edge.
const (
	tempNominal = 45.0 // degrees C where stress begins
	tempMax     = 85.0
	utilNominal = 70.0 // percent where sustained load becomes a concern
	utilMax     = 100.0
)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// featureStress maps a series to a 0..1 stress contribution based on its
// metric kind and the latest observed mean.
func featureStress(s SensorSeries, st Stats) float64 {
	switch s.Metric {
	case "temperature":
		return clamp01((st.Mean - tempNominal) / (tempMax - tempNominal))
	case "cpu_utilization", "memory_utilization":
		return clamp01((st.Mean - utilNominal) / (utilMax - utilNominal))
	default:
		// Unknown metrics contribute through anomalies only.
		return 0
	}
}

// AssessDevice scores one device from all of its series.
func AssessDevice(deviceID string, series []SensorSeries, zThreshold float64) DeviceHealth {
	var stress float64
	var contributions int
	var anomalies []Anomaly
	var readings int

	for _, s := range series {
		st := s.Summarize()
		readings += st.Count
		if f := featureStress(s, st); f > 0 || knownMetric(s.Metric) {
			stress += f
			contributions++
		}
		anomalies = append(anomalies, DetectAnomalies(s, zThreshold)...)
	}

	if contributions > 0 {
		stress /= float64(contributions)
	}

	anomalyRate := 0.0
	if readings > 0 {
		anomalyRate = clamp01(float64(len(anomalies)) / float64(readings) * 10)
	}

	// Logistic curve over the combined stress signal, centered so a device
	// with moderate stress and no anomalies stays below typical thresholds.
	x := 4.5*stress + 3.0*anomalyRate - 2.0
	failureProbability := 1 / (1 + math.Exp(-x))

	health := (1 - (0.6*stress + 0.4*anomalyRate)) * 100

	return DeviceHealth{
		DeviceID:           deviceID,
		HealthScore:        math.Round(health*10) / 10,
		FailureProbability: math.Round(failureProbability*1000) / 1000,
		Anomalies:          anomalies,
	}
}

func knownMetric(metric string) bool {
	switch metric {
	case "temperature", "cpu_utilization", "memory_utilization":
		return true
	}
	return false
}

// Assess builds the fleet report. Devices whose failure probability meets or
// exceeds the threshold get a maintenance window, soonest for the riskiest.
func Assess(series []SensorSeries, threshold, zThreshold float64, now time.Time) MaintenanceReport {
	byDevice, devices := groupByDevice(series)

	report := MaintenanceReport{
		GeneratedAt: now,
		Threshold:   threshold,
	}

	for _, id := range devices {
		report.Devices = append(report.Devices, AssessDevice(id, byDevice[id], zThreshold))
	}

	atRisk := make([]DeviceHealth, 0, len(report.Devices))
	for _, d := range report.Devices {
		if d.FailureProbability >= threshold {
			atRisk = append(atRisk, d)
		}
	}
	sort.SliceStable(atRisk, func(i, j int) bool {
		return atRisk[i].FailureProbability > atRisk[j].FailureProbability
	})

	for i, d := range atRisk {
		// Riskiest device first, next-day windows spaced a day apart.
		start := now.Add(time.Duration(i+1) * 24 * time.Hour)
		risk := "high"
		if d.FailureProbability < threshold+0.15 {
			risk = "elevated"
		}
		report.Schedule = append(report.Schedule, MaintenanceWindow{
			DeviceID:           d.DeviceID,
			Start:              start,
			End:                start.Add(4 * time.Hour),
			Risk:               risk,
			FailureProbability: d.FailureProbability,
			Reason:             windowReason(d),
		})
	}

	return report
}

func windowReason(d DeviceHealth) string {
	if len(d.Anomalies) > 0 {
		return "anomalous sensor readings and elevated failure probability"
	}
	return "elevated failure probability from sustained stress"
}
