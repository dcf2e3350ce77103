package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/mqtt"
	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// MQTTClient is the interface for publishing commands to actuators.
type MQTTClient interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// LatestReadings supplies the newest reading per data type for a
// device, fed by the ingest pipeline's tracker.
type LatestReadings interface {
	Snapshot(deviceID string) map[reading.DataType]reading.Reading
}

// Engine evaluates rules against incoming readings and executes the
// actions of rules that fire.
//
// A rule fires when it is active, lists the triggering device, its
// schedule window is open, the cooldown has elapsed, and every
// condition holds against the newest readings across the rule's
// devices. Actions run in the background, concurrently, with
// per-action delays; firing a rule schedules its actions and returns
// without waiting for them.
//
// Thread Safety: HandleReading is safe for concurrent use.
type Engine struct {
	registry *Registry
	latest   LatestReadings
	mqtt     MQTTClient
	hub      WSHub
	repo     Repository // For execution logging
	logger   Logger
	topics   mqtt.Topics

	// now is swappable for schedule, cooldown, and hold tests.
	now func() time.Time

	// holds tracks when each duration-qualified condition last became
	// satisfied, keyed by rule and condition index.
	holdMu sync.Mutex
	holds  map[holdKey]time.Time

	// inflight counts background action runs for Drain.
	inflight sync.WaitGroup
}

// holdKey identifies one condition of one rule in the hold tracker.
type holdKey struct {
	ruleID string
	index  int
}

// maxRuleExecutionTime is the hard limit for a single rule firing.
// Even rules with long action delays must complete within this window
// to prevent goroutine accumulation from runaway rules.
const maxRuleExecutionTime = 2 * time.Hour

// NewEngine creates a new rule engine.
//
// Parameters:
//   - registry: Rule registry for matching and cooldown bookkeeping
//   - latest: Latest-reading source for condition evaluation
//   - mqttClient: MQTT client for publishing actuator commands
//   - hub: WebSocket hub for notify actions and firing events (may be nil)
//   - repo: Repository for persisting execution logs
//   - logger: Logger instance
func NewEngine(registry *Registry, latest LatestReadings, mqttClient MQTTClient, hub WSHub, repo Repository, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		registry: registry,
		latest:   latest,
		mqtt:     mqttClient,
		hub:      hub,
		repo:     repo,
		logger:   logger,
		now:      time.Now,
		holds:    make(map[holdKey]time.Time),
	}
}

// Drain blocks until every scheduled action run has finished. Call
// during shutdown after the ingest pipeline has stopped feeding
// readings.
func (e *Engine) Drain() {
	e.inflight.Wait()
}

// HandleReading evaluates every rule listening to the reading's device.
//
// Rules that do not fire cost one cache lookup and a handful of
// comparisons. Returns the IDs of executions started; the actions of
// those executions run in the background. Evaluation errors on one
// rule never stop the others.
func (e *Engine) HandleReading(ctx context.Context, r reading.Reading) []string {
	rules := e.registry.RulesForDevice(r.DeviceID)
	if len(rules) == 0 {
		return nil
	}

	var executionIDs []string
	for i := range rules {
		rule := rules[i]
		if !e.shouldFire(&rule) {
			continue
		}

		execID, err := e.fire(ctx, &rule, r)
		if err != nil {
			e.logger.Error("rule firing failed",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"error", err)
			continue
		}
		executionIDs = append(executionIDs, execID)
	}
	return executionIDs
}

// shouldFire checks conditions, schedule, and cooldown for a rule.
// Conditions come first so hold tracking for duration-qualified
// conditions stays continuous even while the schedule window or
// cooldown blocks firing.
func (e *Engine) shouldFire(rule *Rule) bool {
	now := e.now()

	if !e.conditionsHold(rule, now) {
		return false
	}

	if !rule.Schedule.ActiveAt(now) {
		return false
	}

	if rule.LastExecuted != nil {
		cooldown := time.Duration(rule.CooldownSeconds) * time.Second
		if now.Sub(*rule.LastExecuted) < cooldown {
			return false
		}
	}
	return true
}

// conditionsHold evaluates every condition against the newest readings
// across the rule's devices, updating hold state as it goes. All
// conditions are visited even after one fails so a condition that
// dropped out of range loses its hold immediately.
func (e *Engine) conditionsHold(rule *Rule, now time.Time) bool {
	latest := e.latestFor(rule)

	held := true
	for i, cond := range rule.Conditions {
		key := holdKey{ruleID: rule.ID, index: i}

		r, ok := latest[cond.DataType]
		if !ok || !cond.Satisfied(r.Value) {
			e.holdMu.Lock()
			delete(e.holds, key)
			e.holdMu.Unlock()
			held = false
			continue
		}

		if cond.DurationSeconds <= 0 {
			continue
		}

		e.holdMu.Lock()
		since, tracking := e.holds[key]
		if !tracking {
			since = now
			e.holds[key] = since
		}
		e.holdMu.Unlock()

		if now.Sub(since) < time.Duration(cond.DurationSeconds)*time.Second {
			held = false
		}
	}
	return held
}

// latestFor merges the latest readings of every device the rule
// listens to. When two devices report the same data type the newest
// reading wins.
func (e *Engine) latestFor(rule *Rule) map[reading.DataType]reading.Reading {
	merged := make(map[reading.DataType]reading.Reading)
	for _, deviceID := range rule.DeviceIDs {
		for dataType, r := range e.latest.Snapshot(deviceID) {
			if current, ok := merged[dataType]; !ok || r.Timestamp.After(current.Timestamp) {
				merged[dataType] = r
			}
		}
	}
	return merged
}

// fire records a firing and schedules the rule's actions.
//
// The execution count and last_executed stamp are updated before any
// action runs: a rule that fired and then failed its actions still
// consumed its firing, so the cooldown applies either way.
//
// Actions run on a background goroutine detached from the caller's
// context. An action delay must not hold up the ingest worker that
// delivered the trigger, and cancelling the trigger's context must not
// abort actions already scheduled.
func (e *Engine) fire(ctx context.Context, rule *Rule, trigger reading.Reading) (string, error) {
	if e.mqtt == nil && hasCommandAction(rule.Actions) {
		return "", ErrMQTTUnavailable
	}

	now := e.now().UTC()
	if err := e.registry.MarkExecuted(ctx, rule.ID, now); err != nil {
		return "", fmt.Errorf("marking executed: %w", err)
	}

	exec := &Execution{
		ID:           GenerateID(),
		RuleID:       rule.ID,
		DeviceID:     trigger.DeviceID,
		TriggeredAt:  now,
		Status:       StatusCompleted,
		ActionsTotal: len(rule.Actions),
	}

	if createErr := e.repo.CreateExecution(ctx, exec); createErr != nil {
		e.logger.Error("failed to create execution record", "error", createErr)
		// Continue execution even if logging fails; the actions matter more
	}

	e.logger.Info("rule fired",
		"rule_id", rule.ID,
		"rule_name", rule.Name,
		"execution_id", exec.ID,
		"trigger_device", trigger.DeviceID,
		"actions", len(rule.Actions),
	)

	e.inflight.Add(1)
	go e.runActions(context.WithoutCancel(ctx), rule, exec)

	return exec.ID, nil
}

// runActions executes a firing's actions and completes its record.
func (e *Engine) runActions(ctx context.Context, rule *Rule, exec *Execution) {
	defer e.inflight.Done()

	ctx, cancel := context.WithTimeout(ctx, maxRuleExecutionTime)
	defer cancel()

	started := e.now()
	failures := e.executeActions(ctx, rule, exec.ID)

	duration := int(e.now().Sub(started).Milliseconds())
	exec.DurationMS = &duration
	exec.ActionsFailed = len(failures)
	exec.ActionsCompleted = len(rule.Actions) - len(failures)
	exec.Failures = failures

	switch {
	case len(failures) == 0:
		exec.Status = StatusCompleted
	case len(failures) == len(rule.Actions):
		exec.Status = StatusFailed
	default:
		exec.Status = StatusPartial
	}
	if ctx.Err() != nil {
		exec.Status = StatusCancelled
	}

	if updateErr := e.repo.UpdateExecution(ctx, exec); updateErr != nil {
		e.logger.Error("failed to update execution record", "error", updateErr)
	}

	e.logger.Info("rule execution complete",
		"rule_id", rule.ID,
		"execution_id", exec.ID,
		"status", exec.Status,
		"completed", exec.ActionsCompleted,
		"failed", exec.ActionsFailed,
		"duration_ms", duration,
	)

	if e.hub != nil {
		e.hub.Broadcast("rule.fired", map[string]any{
			"rule_id":      rule.ID,
			"rule_name":    rule.Name,
			"farm_id":      rule.FarmID,
			"execution_id": exec.ID,
			"status":       string(exec.Status),
			"duration_ms":  duration,
		})
	}
}

// executeActions runs all of a rule's actions concurrently.
// Returns a slice of failures (empty if all succeeded).
func (e *Engine) executeActions(ctx context.Context, rule *Rule, executionID string) []ActionFailure {
	var (
		mu       sync.Mutex
		failures []ActionFailure
		wg       sync.WaitGroup
	)

	for i, action := range rule.Actions {
		wg.Add(1)
		go func(idx int, a Action) {
			defer wg.Done()

			if err := e.executeAction(ctx, rule, executionID, a); err != nil {
				mu.Lock()
				failures = append(failures, ActionFailure{
					ActionIndex: idx,
					DeviceID:    a.DeviceID,
					Command:     a.Command,
					ErrorMsg:    err.Error(),
				})
				mu.Unlock()
			}
		}(i, action)
	}

	wg.Wait()
	return failures
}

// executeAction executes a single rule action.
// It handles delay, then publishes a command or broadcasts a notification.
func (e *Engine) executeAction(ctx context.Context, rule *Rule, executionID string, action Action) error {
	if action.DelaySeconds > 0 {
		select {
		case <-time.After(time.Duration(action.DelaySeconds) * time.Second):
		case <-ctx.Done():
			return fmt.Errorf("action delayed: %w", ctx.Err())
		}
	}

	switch action.Type {
	case ActionCommand:
		return e.publishCommand(rule, executionID, action)
	case ActionNotify:
		return e.broadcastNotification(rule, executionID, action)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, action.Type)
	}
}

// publishCommand sends an actuator command over MQTT.
func (e *Engine) publishCommand(rule *Rule, executionID string, action Action) error {
	params := action.Params
	if params == nil {
		params = make(map[string]any)
	}

	payload, err := json.Marshal(map[string]any{
		"id":           GenerateID(),
		"device_id":    action.DeviceID,
		"command":      action.Command,
		"params":       params,
		"source":       "rule:" + rule.ID,
		"execution_id": executionID,
	})
	if err != nil {
		return fmt.Errorf("marshalling command: %w", err)
	}

	topic := e.topics.Command(rule.FarmID, action.DeviceID)
	if pubErr := e.mqtt.Publish(topic, payload, 1, false); pubErr != nil {
		return fmt.Errorf("publishing to %q: %w", topic, pubErr)
	}

	e.logger.Debug("rule action published",
		"rule_id", rule.ID,
		"device_id", action.DeviceID,
		"command", action.Command,
		"topic", topic,
	)
	return nil
}

// broadcastNotification pushes a notify action to WebSocket subscribers.
func (e *Engine) broadcastNotification(rule *Rule, executionID string, action Action) error {
	if e.hub == nil {
		return nil
	}
	e.hub.Broadcast("rule.notification", map[string]any{
		"rule_id":      rule.ID,
		"rule_name":    rule.Name,
		"farm_id":      rule.FarmID,
		"execution_id": executionID,
		"params":       action.Params,
	})
	return nil
}

// hasCommandAction reports whether any action needs the MQTT client.
func hasCommandAction(actions []Action) bool {
	for _, a := range actions {
		if a.Type == ActionCommand {
			return true
		}
	}
	return false
}
