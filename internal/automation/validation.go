package automation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength      = 100
	maxDescriptionLen  = 500
	maxDevices         = 50
	maxConditions      = 20
	maxActions         = 20
	maxParamKeys       = 20
	maxDelaySeconds    = 3600 // 1 hour
	maxCooldownSeconds = 86400
	maxHoldSeconds     = 86400
	defaultCooldown    = 300
)

// Pre-computed validation set for O(1) operator lookups.
var validOperators map[Operator]struct{}

func init() {
	validOperators = make(map[Operator]struct{}, len(AllOperators()))
	for _, op := range AllOperators() {
		validOperators[op] = struct{}{}
	}
}

// ValidateRule performs comprehensive validation on a rule.
// Returns an error describing the first validation failure found.
func ValidateRule(r *Rule) error {
	if r == nil {
		return ErrInvalidRule
	}

	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidRule)
	}
	if len(r.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidRule, maxNameLength)
	}
	if r.FarmID == "" {
		return fmt.Errorf("%w: farm_id is required", ErrInvalidRule)
	}
	if r.Description != nil && len(*r.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidRule, maxDescriptionLen)
	}

	if len(r.DeviceIDs) == 0 {
		return fmt.Errorf("%w: at least one device is required", ErrInvalidRule)
	}
	if len(r.DeviceIDs) > maxDevices {
		return fmt.Errorf("%w: exceeds maximum of %d devices", ErrInvalidRule, maxDevices)
	}
	for i, id := range r.DeviceIDs {
		if id == "" {
			return fmt.Errorf("%w: device_ids[%d] is empty", ErrInvalidRule, i)
		}
	}

	if len(r.Conditions) == 0 {
		return fmt.Errorf("%w: at least one condition is required", ErrInvalidRule)
	}
	if len(r.Conditions) > maxConditions {
		return fmt.Errorf("%w: exceeds maximum of %d conditions", ErrInvalidCondition, maxConditions)
	}
	for i, cond := range r.Conditions {
		if err := ValidateCondition(cond); err != nil {
			return fmt.Errorf("condition[%d]: %w", i, err)
		}
	}

	if len(r.Actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", ErrInvalidRule)
	}
	if len(r.Actions) > maxActions {
		return fmt.Errorf("%w: exceeds maximum of %d actions", ErrInvalidAction, maxActions)
	}
	for i, action := range r.Actions {
		if err := ValidateAction(action); err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
	}

	if r.CooldownSeconds < 0 || r.CooldownSeconds > maxCooldownSeconds {
		return fmt.Errorf("%w: cooldown_seconds must be 0-%d", ErrInvalidRule, maxCooldownSeconds)
	}

	return validateSchedule(r.Schedule)
}

// ValidateCondition checks if a rule condition is valid.
func ValidateCondition(c Condition) error {
	if c.DataType == "" {
		return fmt.Errorf("%w: data_type is required", ErrInvalidCondition)
	}
	if _, ok := validOperators[c.Operator]; !ok {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, c.Operator)
	}
	if c.DurationSeconds < 0 || c.DurationSeconds > maxHoldSeconds {
		return fmt.Errorf("%w: duration_seconds must be 0-%d", ErrInvalidCondition, maxHoldSeconds)
	}
	return nil
}

// ValidateAction checks if a rule action is valid.
func ValidateAction(action Action) error {
	switch action.Type {
	case ActionCommand:
		if action.DeviceID == "" {
			return fmt.Errorf("%w: device_id is required for command actions", ErrInvalidAction)
		}
		if action.Command == "" {
			return fmt.Errorf("%w: command is required", ErrInvalidAction)
		}
	case ActionNotify:
		// Notify actions carry their message in Params
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, action.Type)
	}

	if action.DelaySeconds < 0 || action.DelaySeconds > maxDelaySeconds {
		return fmt.Errorf("%w: delay_seconds must be 0-%d", ErrInvalidAction, maxDelaySeconds)
	}
	if len(action.Params) > maxParamKeys {
		return fmt.Errorf("%w: params exceeds %d keys", ErrInvalidAction, maxParamKeys)
	}
	return nil
}

// GenerateID creates a new UUID for a rule or execution.
func GenerateID() string {
	return uuid.New().String()
}
