package aggregate

import "math"

// Stats holds the summary statistics for one rollup window.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	StdDev float64 `json:"stddev"`
}

// Compute summarizes a window of values. An empty input yields a
// zero-valued Stats with Count 0; callers skip persisting those.
func Compute(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	s := Stats{
		Count: len(values),
		Min:   values[0],
		Max:   values[0],
	}

	sum := 0.0
	for _, v := range values {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += v
	}
	s.Avg = sum / float64(s.Count)

	// Population standard deviation. Rollup windows contain the full
	// set of readings for the window, not a sample.
	variance := 0.0
	for _, v := range values {
		d := v - s.Avg
		variance += d * d
	}
	s.StdDev = math.Sqrt(variance / float64(s.Count))

	return s
}

// fields renders stats as a telemetry field map.
func (s Stats) fields() map[string]interface{} {
	return map[string]interface{}{
		"count":  s.Count,
		"min":    s.Min,
		"max":    s.Max,
		"avg":    s.Avg,
		"stddev": s.StdDev,
	}
}
