package alert

import (
	"time"

	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// Alert is a raised condition against a device: a threshold breach, a
// low battery, or a device going silent.
//
// At most one open (unresolved) alert exists per (device, type). The
// partial unique index in the schema enforces this at the database, so
// concurrent evaluators racing on the same breach produce one winner.
type Alert struct {
	ID       string    `json:"id"`
	DeviceID string    `json:"device_id"`
	FarmID   string    `json:"farm_id"`
	Type     AlertType `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`

	// Trigger context for threshold alerts.
	DataType     reading.DataType `json:"data_type,omitempty"`
	Value        *float64         `json:"value,omitempty"`
	ThresholdMin *float64         `json:"threshold_min,omitempty"`
	ThresholdMax *float64         `json:"threshold_max,omitempty"`

	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AlertType identifies the condition an alert reports.
// Threshold alerts embed the data type so each measurement dedups
// independently: a temperature breach and a humidity breach on the same
// probe are two separate open alerts.
type AlertType string //nolint:revive // alert.AlertType is clearer than alert.Type in calling code

// Non-threshold alert types.
const (
	AlertTypeDeviceOffline AlertType = "device_offline"
	AlertTypeDeviceError   AlertType = "device_error"
)

// ThresholdAlertType returns the alert type for a threshold breach on
// the given data type, e.g. "threshold_soil_moisture".
func ThresholdAlertType(dataType reading.DataType) AlertType {
	return AlertType("threshold_" + string(dataType))
}

// Severity ranks how urgent an alert is.
type Severity string

// Severity constants, least to most urgent.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities returns all valid severity values.
func AllSeverities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}
