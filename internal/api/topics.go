package api

import (
	"fmt"
	"strings"

	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// Subscription topic grammar. Clients subscribe with patterns; the hub
// matches broadcast topics against them segment by segment.
//
//	farm/<farmId>/device/<deviceId>/<dataType>   sensor readings
//	farm/<farmId>/alerts                         alert lifecycle events
//	farm/<farmId>/rules                          rule firings and notifications
//	*                                            everything (admin only)
//
// Any segment may be the wildcard "*": farm/f1/device/*/temperature
// matches temperature from every device on farm f1.
const (
	topicSegmentFarm   = "farm"
	topicSegmentDevice = "device"
	topicSegmentAlerts = "alerts"
	topicSegmentRules  = "rules"

	// TopicWildcard matches any single segment, or as a whole pattern,
	// every topic.
	TopicWildcard = "*"
)

// ReadingTopic returns the broadcast topic for a sensor reading.
func ReadingTopic(r reading.Reading) string {
	return fmt.Sprintf("farm/%s/device/%s/%s", r.FarmID, r.DeviceID, r.DataType)
}

// AlertsTopic returns the broadcast topic for a farm's alert events.
func AlertsTopic(farmID string) string {
	return fmt.Sprintf("farm/%s/alerts", farmID)
}

// RulesTopic returns the broadcast topic for a farm's rule events.
func RulesTopic(farmID string) string {
	return fmt.Sprintf("farm/%s/rules", farmID)
}

// ValidateTopicPattern checks a subscription pattern against the
// grammar. Returns ErrInvalidTopic for anything else.
func ValidateTopicPattern(pattern string) error {
	if pattern == TopicWildcard {
		return nil
	}

	parts := strings.Split(pattern, "/")
	switch {
	case len(parts) == 3 && parts[0] == topicSegmentFarm && parts[2] == topicSegmentAlerts:
	case len(parts) == 3 && parts[0] == topicSegmentFarm && parts[2] == topicSegmentRules:
	case len(parts) == 5 && parts[0] == topicSegmentFarm && parts[2] == topicSegmentDevice:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}

	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidTopic, pattern)
		}
	}
	return nil
}

// MatchTopic reports whether a broadcast topic matches a subscription
// pattern. Patterns are matched segment by segment with "*" matching
// any one segment; the bare "*" pattern matches every topic.
func MatchTopic(pattern, topic string) bool {
	if pattern == TopicWildcard {
		return true
	}

	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")
	if len(patternParts) != len(topicParts) {
		return false
	}

	for i, p := range patternParts {
		if p != TopicWildcard && p != topicParts[i] {
			return false
		}
	}
	return true
}

// patternFarmID extracts the farm segment from a pattern. Returns the
// wildcard for the global pattern.
func patternFarmID(pattern string) string {
	if pattern == TopicWildcard {
		return TopicWildcard
	}
	parts := strings.Split(pattern, "/")
	if len(parts) >= 2 && parts[0] == topicSegmentFarm {
		return parts[1]
	}
	return ""
}
