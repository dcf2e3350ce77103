package reading

import "time"

// Reading is a single decoded sensor measurement.
//
// Timestamp is the device-asserted measurement time, which is
// authoritative for deduplication and ordering. CreatedAt records when
// Core received the reading and is used only for diagnostics.
type Reading struct {
	ID       string   `json:"id"`
	DeviceID string   `json:"device_id"`
	FarmID   string   `json:"farm_id"`
	DataType DataType `json:"data_type"`
	Value    float64  `json:"value"`
	Unit     string   `json:"unit,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// Quality assessment, filled in by the ingest scorer.
	QualityScore int      `json:"quality_score"`
	Quality      Quality  `json:"quality"`
	Validated    bool     `json:"validated"`
	Issues       []string `json:"issues,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DataType identifies what a reading measures.
type DataType string

// Data types with known physical ranges.
const (
	DataTypeTemperature    DataType = "temperature"
	DataTypeHumidity       DataType = "humidity"
	DataTypeSoilMoisture   DataType = "soil_moisture"
	DataTypeSoilPH         DataType = "soil_ph"
	DataTypeLightIntensity DataType = "light_intensity"
	DataTypeWaterLevel     DataType = "water_level"
	DataTypeBatteryLevel   DataType = "battery_level"
)

// Data types without a fixed physical range.
const (
	DataTypeRainfall      DataType = "rainfall"
	DataTypeWindSpeed     DataType = "wind_speed"
	DataTypeWindDirection DataType = "wind_direction"
	DataTypeCO2           DataType = "co2"
	DataTypeEC            DataType = "ec"
)

// AllDataTypes returns all valid data type values.
func AllDataTypes() []DataType {
	return []DataType{
		DataTypeTemperature, DataTypeHumidity, DataTypeSoilMoisture,
		DataTypeSoilPH, DataTypeLightIntensity, DataTypeWaterLevel,
		DataTypeBatteryLevel, DataTypeRainfall, DataTypeWindSpeed,
		DataTypeWindDirection, DataTypeCO2, DataTypeEC,
	}
}

// Quality buckets a reading's quality score.
type Quality string

// Quality constants. Bucketing happens in the ingest scorer.
const (
	QualityGood  Quality = "good"
	QualityFair  Quality = "fair"
	QualityPoor  Quality = "poor"
	QualityError Quality = "error"
)

// AllQualities returns all valid quality values.
func AllQualities() []Quality {
	return []Quality{QualityGood, QualityFair, QualityPoor, QualityError}
}
