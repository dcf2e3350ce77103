package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrRuleNotFound) {
//	    // handle not found case
//	}
var (
	// ErrRuleNotFound is returned when a rule ID does not exist.
	ErrRuleNotFound = errors.New("automation: rule not found")

	// ErrRuleExists is returned when creating a rule with an ID that already exists.
	ErrRuleExists = errors.New("automation: rule already exists")

	// ErrRuleInactive is returned when attempting to fire an inactive rule.
	ErrRuleInactive = errors.New("automation: rule inactive")

	// ErrInvalidRule is returned when rule validation fails.
	ErrInvalidRule = errors.New("automation: invalid rule")

	// ErrInvalidCondition is returned when a rule condition is invalid.
	ErrInvalidCondition = errors.New("automation: invalid condition")

	// ErrInvalidAction is returned when a rule action is invalid.
	ErrInvalidAction = errors.New("automation: invalid action")

	// ErrInvalidSchedule is returned when a schedule window is malformed.
	ErrInvalidSchedule = errors.New("automation: invalid schedule")

	// ErrExecutionNotFound is returned when an execution ID does not exist.
	ErrExecutionNotFound = errors.New("automation: execution not found")

	// ErrMQTTUnavailable is returned when no MQTT client is wired for command actions.
	ErrMQTTUnavailable = errors.New("automation: MQTT unavailable")
)
