package ingest

import (
	"testing"

	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

func value(f float64) *float64 { return &f }

func TestScore(t *testing.T) {
	tests := []struct {
		name          string
		dataType      reading.DataType
		value         *float64
		unit          string
		wantScore     int
		wantQuality   reading.Quality
		wantValidated bool
	}{
		{
			name:          "perfect reading",
			dataType:      reading.DataTypeTemperature,
			value:         value(21.5),
			unit:          "C",
			wantScore:     100,
			wantQuality:   reading.QualityGood,
			wantValidated: true,
		},
		{
			name:          "missing unit",
			dataType:      reading.DataTypeTemperature,
			value:         value(21.5),
			unit:          "",
			wantScore:     90,
			wantQuality:   reading.QualityGood,
			wantValidated: false,
		},
		{
			name:          "out of physical range",
			dataType:      reading.DataTypeHumidity,
			value:         value(130),
			unit:          "%",
			wantScore:     70,
			wantQuality:   reading.QualityFair,
			wantValidated: false,
		},
		{
			name:          "below physical range",
			dataType:      reading.DataTypeTemperature,
			value:         value(-80),
			unit:          "C",
			wantScore:     70,
			wantQuality:   reading.QualityFair,
			wantValidated: false,
		},
		{
			name:          "missing value",
			dataType:      reading.DataTypeSoilMoisture,
			value:         nil,
			unit:          "%",
			wantScore:     40,
			wantQuality:   reading.QualityPoor,
			wantValidated: false,
		},
		{
			name:          "missing value and unit",
			dataType:      reading.DataTypeSoilMoisture,
			value:         nil,
			unit:          "",
			wantScore:     30,
			wantQuality:   reading.QualityError,
			wantValidated: false,
		},
		{
			name:          "out of range without unit",
			dataType:      reading.DataTypeSoilPH,
			value:         value(19),
			unit:          "",
			wantScore:     60,
			wantQuality:   reading.QualityPoor,
			wantValidated: false,
		},
		{
			name:          "unranged data type accepts any value",
			dataType:      reading.DataTypeCO2,
			value:         value(12000),
			unit:          "ppm",
			wantScore:     100,
			wantQuality:   reading.QualityGood,
			wantValidated: true,
		},
		{
			name:          "light intensity has no upper bound",
			dataType:      reading.DataTypeLightIntensity,
			value:         value(120000),
			unit:          "lux",
			wantScore:     100,
			wantQuality:   reading.QualityGood,
			wantValidated: true,
		},
		{
			name:          "negative light intensity penalized",
			dataType:      reading.DataTypeLightIntensity,
			value:         value(-5),
			unit:          "lux",
			wantScore:     70,
			wantQuality:   reading.QualityFair,
			wantValidated: false,
		},
		{
			name:          "boundary value is in range",
			dataType:      reading.DataTypeSoilPH,
			value:         value(14),
			unit:          "pH",
			wantScore:     100,
			wantQuality:   reading.QualityGood,
			wantValidated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.dataType, tt.value, tt.unit)

			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.Quality != tt.wantQuality {
				t.Errorf("Quality = %s, want %s", got.Quality, tt.wantQuality)
			}
			if got.Validated != tt.wantValidated {
				t.Errorf("Validated = %v, want %v", got.Validated, tt.wantValidated)
			}
			if tt.wantValidated && len(got.Issues) != 0 {
				t.Errorf("validated reading carries issues: %v", got.Issues)
			}
			if !tt.wantValidated && len(got.Issues) == 0 {
				t.Error("unvalidated reading carries no issues")
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	a := Score(reading.DataTypeHumidity, value(130), "")
	b := Score(reading.DataTypeHumidity, value(130), "")

	if a.Score != b.Score || a.Quality != b.Quality || len(a.Issues) != len(b.Issues) {
		t.Errorf("Score not deterministic: %+v vs %+v", a, b)
	}
}
