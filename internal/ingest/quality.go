package ingest

import (
	"fmt"

	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// Quality penalties, additive and floored at 0.
const (
	penaltyMissingValue = 60
	penaltyOutOfRange   = 30
	penaltyMissingUnit  = 10
	maxScore            = 100
)

// Quality tier cutoffs on the 0-100 score.
const (
	scoreGood = 90
	scoreFair = 70
	scorePoor = 40
)

// physicalRange bounds what a sensor can physically report, independent
// of any per-device threshold. Values outside these bounds indicate a
// faulty sensor, not an agronomic problem.
type physicalRange struct {
	min *float64
	max *float64
}

var physicalRanges = map[reading.DataType]physicalRange{
	reading.DataTypeTemperature:    {min: ptr(-50), max: ptr(70)},
	reading.DataTypeHumidity:       {min: ptr(0), max: ptr(100)},
	reading.DataTypeSoilMoisture:   {min: ptr(0), max: ptr(100)},
	reading.DataTypeSoilPH:         {min: ptr(0), max: ptr(14)},
	reading.DataTypeLightIntensity: {min: ptr(0)},
	reading.DataTypeWaterLevel:     {min: ptr(0)},
	reading.DataTypeBatteryLevel:   {min: ptr(0), max: ptr(100)},
}

func ptr(f float64) *float64 { return &f }

// ScoreResult is the outcome of quality scoring one measurement.
type ScoreResult struct {
	Score     int
	Quality   reading.Quality
	Validated bool
	Issues    []string
}

// Score rates a single measurement on a 0-100 scale.
//
// Scoring is deterministic: the same inputs always produce the same
// result. A measurement is Validated only when no issues were found;
// evaluators and the rule engine act exclusively on validated readings.
//
// Parameters:
//   - dataType: What was measured
//   - value: The measured value, nil when the device omitted it
//   - unit: The reported unit, may be empty
func Score(dataType reading.DataType, value *float64, unit string) ScoreResult {
	score := maxScore
	var issues []string

	if value == nil {
		score -= penaltyMissingValue
		issues = append(issues, "missing value")
	} else if r, ok := physicalRanges[dataType]; ok {
		if r.min != nil && *value < *r.min {
			score -= penaltyOutOfRange
			issues = append(issues, fmt.Sprintf("%s %g below physical minimum %g", dataType, *value, *r.min))
		} else if r.max != nil && *value > *r.max {
			score -= penaltyOutOfRange
			issues = append(issues, fmt.Sprintf("%s %g above physical maximum %g", dataType, *value, *r.max))
		}
	}

	if unit == "" {
		score -= penaltyMissingUnit
		issues = append(issues, "missing unit")
	}

	if score < 0 {
		score = 0
	}

	return ScoreResult{
		Score:     score,
		Quality:   qualityForScore(score),
		Validated: len(issues) == 0,
		Issues:    issues,
	}
}

// qualityForScore maps a numeric score to its quality tier.
func qualityForScore(score int) reading.Quality {
	switch {
	case score >= scoreGood:
		return reading.QualityGood
	case score >= scoreFair:
		return reading.QualityFair
	case score >= scorePoor:
		return reading.QualityPoor
	default:
		return reading.QualityError
	}
}
