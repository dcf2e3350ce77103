package alert

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/damirbriga107-creator/agrisense-core/internal/device"
	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// Notifier receives alert lifecycle events. The pipeline wires this to
// the WebSocket hub so raised and resolved alerts reach subscribers.
type Notifier interface {
	AlertRaised(a Alert)
	AlertResolved(a Alert)
}

// Logger defines the logging interface the evaluator requires.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Evaluator compares validated readings against per-device thresholds,
// raising alerts on breaches and resolving them when values return to
// range.
//
// Deduplication rests on the repository: CreateIfAbsent returns
// ErrAlertExists when an open alert of the same type is already
// recorded, so redelivered or concurrent breaches never produce
// duplicates.
type Evaluator struct {
	repo     Repository
	notifier Notifier
	logger   Logger
}

// systemResolver marks alerts auto-resolved by an in-range reading.
const systemResolver = "system"

// Battery severity cutoffs in percent.
const (
	batteryCriticalBelow = 10.0
	batteryHighBelow     = 20.0
)

// Breach magnitude cutoffs as a fraction of the threshold span. A
// breach is Medium by default; magnitude only raises severity.
const (
	breachCritical = 1.0
	breachHigh     = 0.5
)

// NewEvaluator creates a threshold evaluator. The notifier may be nil
// when no broadcast target exists.
func NewEvaluator(repo Repository, notifier Notifier, logger Logger) *Evaluator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Evaluator{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// Evaluate checks a reading against the device's threshold for its data
// type. Out-of-range readings raise an alert; in-range readings resolve
// any open alert of the matching type.
//
// Only validated readings drive alert state in either direction. A
// sensor glitch that produces a garbage value must not raise an alert,
// and equally must not resolve one.
//
// Parameters:
//   - ctx: Context for persistence operations
//   - dev: Device the reading belongs to, supplies the thresholds
//   - r: The reading to evaluate
//
// Returns an error only on persistence failure. A duplicate open alert
// is normal operation, not an error.
func (e *Evaluator) Evaluate(ctx context.Context, dev *device.Device, r reading.Reading) error {
	if dev == nil {
		return nil
	}
	if !r.Validated {
		e.logger.Debug("skipping unvalidated reading",
			"device_id", r.DeviceID,
			"data_type", string(r.DataType),
			"quality_score", r.QualityScore)
		return nil
	}

	threshold, ok := dev.Thresholds[string(r.DataType)]
	if !ok {
		return nil
	}

	if threshold.Contains(r.Value) {
		return e.resolveIfOpen(ctx, r)
	}

	return e.raise(ctx, dev, r, threshold)
}

// raise creates a threshold alert for an out-of-range reading.
func (e *Evaluator) raise(ctx context.Context, dev *device.Device, r reading.Reading, th device.Threshold) error {
	value := r.Value
	a := Alert{
		DeviceID:     r.DeviceID,
		FarmID:       r.FarmID,
		Type:         ThresholdAlertType(r.DataType),
		Severity:     severityFor(r.DataType, r.Value, th),
		Message:      breachMessage(dev, r, th),
		DataType:     r.DataType,
		Value:        &value,
		ThresholdMin: th.Min,
		ThresholdMax: th.Max,
	}

	err := retryWithBackoff(ctx, func() error {
		return e.repo.CreateIfAbsent(ctx, &a)
	})
	if errors.Is(err, ErrAlertExists) {
		e.logger.Debug("breach already alerted",
			"device_id", r.DeviceID,
			"type", string(a.Type))
		return nil
	}
	if err != nil {
		return fmt.Errorf("raising alert: %w", err)
	}

	e.logger.Info("alert raised",
		"alert_id", a.ID,
		"device_id", r.DeviceID,
		"type", string(a.Type),
		"severity", string(a.Severity),
		"value", r.Value)

	if e.notifier != nil {
		e.notifier.AlertRaised(a)
	}
	return nil
}

// resolveIfOpen closes an open threshold alert when the value is back
// in range. No open alert is the common case and not an error.
func (e *Evaluator) resolveIfOpen(ctx context.Context, r reading.Reading) error {
	var resolved *Alert
	err := retryWithBackoff(ctx, func() error {
		var resolveErr error
		resolved, resolveErr = e.repo.ResolveOpen(ctx, r.DeviceID, ThresholdAlertType(r.DataType), systemResolver)
		return resolveErr
	})
	if errors.Is(err, ErrAlertNotFound) || errors.Is(err, ErrAlreadyResolved) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolving alert: %w", err)
	}

	e.logger.Info("alert auto-resolved",
		"alert_id", resolved.ID,
		"device_id", r.DeviceID,
		"type", string(resolved.Type),
		"value", r.Value)

	if e.notifier != nil {
		e.notifier.AlertResolved(*resolved)
	}
	return nil
}

// severityFor ranks a breach. Battery level uses fixed cutoffs because
// a dying battery is urgent regardless of the configured threshold;
// everything else scales with how far the value sits outside the range.
func severityFor(dataType reading.DataType, value float64, th device.Threshold) Severity {
	if dataType == reading.DataTypeBatteryLevel {
		switch {
		case value < batteryCriticalBelow:
			return SeverityCritical
		case value < batteryHighBelow:
			return SeverityHigh
		default:
			return SeverityMedium
		}
	}

	ratio := breachRatio(value, th)
	switch {
	case ratio > breachCritical:
		return SeverityCritical
	case ratio > breachHigh:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// breachRatio measures how far a value lies outside the threshold,
// as a fraction of the threshold span. With only one bound configured
// the bound's own magnitude stands in for the span.
func breachRatio(value float64, th device.Threshold) float64 {
	var excess, span float64

	switch {
	case th.Min != nil && value < *th.Min:
		excess = *th.Min - value
	case th.Max != nil && value > *th.Max:
		excess = value - *th.Max
	default:
		return 0
	}

	switch {
	case th.Min != nil && th.Max != nil:
		span = *th.Max - *th.Min
	case th.Min != nil:
		span = math.Abs(*th.Min)
	case th.Max != nil:
		span = math.Abs(*th.Max)
	}
	if span <= 0 {
		span = 1
	}

	return excess / span
}

// breachMessage builds a human-readable description of the breach.
func breachMessage(dev *device.Device, r reading.Reading, th device.Threshold) string {
	unit := r.Unit
	if unit == "" {
		unit = th.Unit
	}

	switch {
	case th.Min != nil && r.Value < *th.Min:
		return fmt.Sprintf("%s %s %.2f%s below minimum %.2f%s",
			dev.Name, r.DataType, r.Value, unit, *th.Min, unit)
	case th.Max != nil && r.Value > *th.Max:
		return fmt.Sprintf("%s %s %.2f%s above maximum %.2f%s",
			dev.Name, r.DataType, r.Value, unit, *th.Max, unit)
	default:
		return fmt.Sprintf("%s %s %.2f%s out of range", dev.Name, r.DataType, r.Value, unit)
	}
}
