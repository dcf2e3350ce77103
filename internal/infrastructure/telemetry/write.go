package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading records a sensor reading in the time-series store.
//
// This is the primary method for long-term telemetry history. The write
// is non-blocking; points are batched and sent asynchronously. The
// device-asserted timestamp is used, so late-arriving readings land at
// their true position in the series.
//
// Example:
//
//	client.WriteReading("farm-001", "soil-probe-7", "soil_moisture", 42.5, 95, r.Timestamp)
func (c *Client) WriteReading(farmID, deviceID, dataType string, value float64, qualityScore int, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"readings",
		map[string]string{
			"farm_id":   farmID,
			"device_id": deviceID,
			"data_type": dataType,
		},
		map[string]interface{}{
			"value":         value,
			"quality_score": qualityScore,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceHealth records a device health indicator such as battery
// level or signal strength.
func (c *Client) WriteDeviceHealth(farmID, deviceID, metric string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_health",
		map[string]string{
			"farm_id":   farmID,
			"device_id": deviceID,
			"metric":    metric,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRollup records an aggregation window so dashboards can chart
// long ranges without scanning raw readings.
func (c *Client) WriteRollup(farmID, deviceID, dataType, period string, stats map[string]interface{}, windowStart time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"rollups",
		map[string]string{
			"farm_id":   farmID,
			"device_id": deviceID,
			"data_type": dataType,
			"period":    period,
		},
		stats,
		windowStart,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
