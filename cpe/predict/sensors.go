// Package predict turns raw CPE sensor data into health scores, anomaly
// alerts, failure probabilities and a risk-ranked maintenance schedule.
package predict

import (
	"fmt"
	"math"
	"sort"
	"time"

	json "github.com/goccy/go-json"
)

// Reading is a single timestamped sensor sample.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// SensorSeries is the history of one metric on one device.
type SensorSeries struct {
	DeviceID string    `json:"device_id"`
	Metric   string    `json:"metric"`
	Unit     string    `json:"unit,omitempty"`
	Readings []Reading `json:"readings"`
}

// Stats summarizes a series.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Last   float64 `json:"last"`
}

// Summarize computes summary statistics over the readings.
func (s SensorSeries) Summarize() Stats {
	if len(s.Readings) == 0 {
		return Stats{}
	}

	st := Stats{
		Count: len(s.Readings),
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
		Last:  s.Readings[len(s.Readings)-1].Value,
	}

	var sum float64
	for _, r := range s.Readings {
		sum += r.Value
		st.Min = math.Min(st.Min, r.Value)
		st.Max = math.Max(st.Max, r.Value)
	}
	st.Mean = sum / float64(st.Count)

	var sq float64
	for _, r := range s.Readings {
		d := r.Value - st.Mean
		sq += d * d
	}
	st.StdDev = math.Sqrt(sq / float64(st.Count))

	return st
}

// Anomaly is a reading that deviates from the series mean beyond the z-score
// threshold.
type Anomaly struct {
	DeviceID  string    `json:"device_id"`
	Metric    string    `json:"metric"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	ZScore    float64   `json:"z_score"`
	Severity  string    `json:"severity"`
}

// DefaultZScoreThreshold flags readings more than three standard deviations
// from the mean.
const DefaultZScoreThreshold = 3.0

// DetectAnomalies flags readings whose z-score exceeds the threshold. A
// threshold of zero or less falls back to the default. Readings beyond twice
// the threshold are critical, the rest are warnings.
func DetectAnomalies(series SensorSeries, threshold float64) []Anomaly {
	if threshold <= 0 {
		threshold = DefaultZScoreThreshold
	}

	st := series.Summarize()
	if st.Count < 2 || st.StdDev == 0 {
		return nil
	}

	var anomalies []Anomaly
	for _, r := range series.Readings {
		z := (r.Value - st.Mean) / st.StdDev
		if math.Abs(z) < threshold {
			continue
		}
		severity := "warning"
		if math.Abs(z) >= 2*threshold {
			severity = "critical"
		}
		anomalies = append(anomalies, Anomaly{
			DeviceID:  series.DeviceID,
			Metric:    series.Metric,
			Timestamp: r.Timestamp,
			Value:     r.Value,
			ZScore:    z,
			Severity:  severity,
		})
	}
	return anomalies
}

// ParseSeries decodes a single series or an array of them.
func ParseSeries(data []byte) ([]SensorSeries, error) {
	var many []SensorSeries
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}

	var one SensorSeries
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("parse sensor data: %w", err)
	}
	return []SensorSeries{one}, nil
}

// groupByDevice indexes series by device, metrics sorted for stable output.
func groupByDevice(series []SensorSeries) (map[string][]SensorSeries, []string) {
	byDevice := make(map[string][]SensorSeries)
	for _, s := range series {
		byDevice[s.DeviceID] = append(byDevice[s.DeviceID], s)
	}

	devices := make([]string, 0, len(byDevice))
	for id := range byDevice {
		devices = append(devices, id)
	}
	sort.Strings(devices)
	return byDevice, devices
}
