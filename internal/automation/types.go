package automation

import (
	"time"

	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// Rule represents an automation rule: when every condition holds for a
// matched device's latest readings, the rule's actions fire.
//
// A rule only considers readings from devices listed in DeviceIDs, and
// only while its schedule window (if any) is open. After firing, the
// rule stays quiet for CooldownSeconds.
type Rule struct {
	// Identity
	ID     string `json:"id"`
	FarmID string `json:"farm_id"`
	Name   string `json:"name"`

	// Description (optional)
	Description *string `json:"description,omitempty"`

	// Configuration
	Active bool `json:"active"`

	// Devices whose readings can trigger this rule
	DeviceIDs []string `json:"device_ids"`

	// Conditions, all of which must hold (AND semantics)
	Conditions []Condition `json:"conditions"`

	// Actions to execute when the rule fires (ordered)
	Actions []Action `json:"actions"`

	// Optional daily time window; nil means always active
	Schedule *Schedule `json:"schedule,omitempty"`

	// Minimum seconds between firings (default 300)
	CooldownSeconds int `json:"cooldown_seconds"`

	// Execution bookkeeping
	ExecutionCount int64      `json:"execution_count"`
	LastExecuted   *time.Time `json:"last_executed,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Condition compares the latest reading of a data type against a value.
//
// A condition on a data type no matched device has ever reported is
// not satisfied: rules never fire on absent data.
type Condition struct {
	DataType reading.DataType `json:"data_type"`
	Operator Operator         `json:"operator"`
	Value    float64          `json:"value"`

	// DurationSeconds, when positive, requires the comparison to hold
	// continuously for at least this long before the condition counts
	// as satisfied. Zero means satisfied immediately.
	DurationSeconds int `json:"duration_seconds,omitempty"`
}

// Satisfied reports whether the condition holds for the given value.
func (c Condition) Satisfied(value float64) bool {
	switch c.Operator {
	case OperatorGT:
		return value > c.Value
	case OperatorGTE:
		return value >= c.Value
	case OperatorLT:
		return value < c.Value
	case OperatorLTE:
		return value <= c.Value
	case OperatorEQ:
		return value == c.Value
	case OperatorNEQ:
		return value != c.Value
	default:
		return false
	}
}

// Operator is a comparison operator for conditions.
type Operator string

const (
	OperatorGT  Operator = "gt"
	OperatorGTE Operator = "gte"
	OperatorLT  Operator = "lt"
	OperatorLTE Operator = "lte"
	OperatorEQ  Operator = "eq"
	OperatorNEQ Operator = "neq"
)

// AllOperators returns all valid condition operators.
func AllOperators() []Operator {
	return []Operator{OperatorGT, OperatorGTE, OperatorLT, OperatorLTE, OperatorEQ, OperatorNEQ}
}

// Action defines a single step executed when a rule fires.
type Action struct {
	// What kind of action this is
	Type ActionType `json:"type"`

	// Target actuator for command actions
	DeviceID string `json:"device_id,omitempty"`

	// Command to send (e.g. "open_valve", "start_pump")
	Command string `json:"command,omitempty"`

	// Command parameters (device-specific)
	Params map[string]any `json:"params,omitempty"`

	// Delay before executing (seconds, default 0)
	DelaySeconds int `json:"delay_seconds"`
}

// ActionType identifies the kind of action to execute.
type ActionType string

const (
	// ActionCommand publishes a command to an actuator over MQTT.
	ActionCommand ActionType = "command"

	// ActionNotify broadcasts a notification to WebSocket subscribers.
	ActionNotify ActionType = "notify"
)

// Schedule restricts a rule to a daily time window.
//
// Times are "HH:MM" in the platform's local time. A window where End
// precedes Start wraps past midnight: {Start: "22:00", End: "06:00"}
// covers the night. Empty Days means every day.
type Schedule struct {
	Start string         `json:"start"`
	End   string         `json:"end"`
	Days  []time.Weekday `json:"days,omitempty"`
}

// Execution records a single firing of a rule.
type Execution struct {
	ID          string    `json:"id"`
	RuleID      string    `json:"rule_id"`
	DeviceID    string    `json:"device_id"` // Device whose reading triggered the firing
	TriggeredAt time.Time `json:"triggered_at"`

	Status ExecutionStatus `json:"status"`

	// Action counts
	ActionsTotal     int `json:"actions_total"`
	ActionsCompleted int `json:"actions_completed"`
	ActionsFailed    int `json:"actions_failed"`

	// Failure details (populated when actions fail)
	Failures []ActionFailure `json:"failures,omitempty"`

	// Total execution duration in milliseconds
	DurationMS *int `json:"duration_ms,omitempty"`
}

// ActionFailure records details of a failed action within an execution.
type ActionFailure struct {
	ActionIndex int    `json:"action_index"`
	DeviceID    string `json:"device_id"`
	Command     string `json:"command"`
	ErrorMsg    string `json:"error_message"`
}

// ExecutionStatus represents the outcome of a rule firing.
type ExecutionStatus string

const (
	StatusCompleted ExecutionStatus = "completed"
	StatusPartial   ExecutionStatus = "partial" // Some actions failed
	StatusFailed    ExecutionStatus = "failed"  // Every action failed
	StatusCancelled ExecutionStatus = "cancelled"
)

// DeepCopy creates a complete independent copy of the Rule.
// All map and slice fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (r *Rule) DeepCopy() *Rule {
	if r == nil {
		return nil
	}

	cpy := *r // Shallow copy of value fields

	cpy.Description = cloneStringPtr(r.Description)

	if r.DeviceIDs != nil {
		cpy.DeviceIDs = make([]string, len(r.DeviceIDs))
		copy(cpy.DeviceIDs, r.DeviceIDs)
	}

	if r.Conditions != nil {
		cpy.Conditions = make([]Condition, len(r.Conditions))
		copy(cpy.Conditions, r.Conditions)
	}

	if r.Actions != nil {
		cpy.Actions = make([]Action, len(r.Actions))
		for i, action := range r.Actions {
			cpy.Actions[i] = action
			if action.Params != nil {
				cpy.Actions[i].Params = deepCopyMap(action.Params)
			}
		}
	}

	if r.Schedule != nil {
		sched := *r.Schedule
		if r.Schedule.Days != nil {
			sched.Days = make([]time.Weekday, len(r.Schedule.Days))
			copy(sched.Days, r.Schedule.Days)
		}
		cpy.Schedule = &sched
	}

	if r.LastExecuted != nil {
		t := *r.LastExecuted
		cpy.LastExecuted = &t
	}

	return &cpy
}

// matchesDevice reports whether the rule listens to the given device.
func (r *Rule) matchesDevice(deviceID string) bool {
	for _, id := range r.DeviceIDs {
		if id == deviceID {
			return true
		}
	}
	return false
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v // Primitives are immutable
	}
}

// cloneStringPtr creates an independent copy of a *string.
func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
