package automation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// ============================================================================
// Test Fixtures
// ============================================================================

// mockRepository is an in-memory Repository for engine tests.
type mockRepository struct {
	mu    sync.Mutex
	rules map[string]*Rule
	execs map[string]*Execution
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		rules: make(map[string]*Rule),
		execs: make(map[string]*Execution),
	}
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return r.DeepCopy(), nil
}

func (m *mockRepository) List(_ context.Context) ([]Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Rule
	for _, r := range m.rules {
		out = append(out, *r.DeepCopy())
	}
	return out, nil
}

func (m *mockRepository) ListByFarm(_ context.Context, farmID string) ([]Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Rule
	for _, r := range m.rules {
		if r.FarmID == farmID {
			out = append(out, *r.DeepCopy())
		}
	}
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, rule *Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rules[rule.ID]; exists {
		return ErrRuleExists
	}
	m.rules[rule.ID] = rule.DeepCopy()
	return nil
}

func (m *mockRepository) Update(_ context.Context, rule *Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rules[rule.ID]; !exists {
		return ErrRuleNotFound
	}
	m.rules[rule.ID] = rule.DeepCopy()
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rules[id]; !exists {
		return ErrRuleNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *mockRepository) MarkExecuted(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return ErrRuleNotFound
	}
	r.ExecutionCount++
	t := at
	r.LastExecuted = &t
	return nil
}

func (m *mockRepository) CreateExecution(_ context.Context, exec *Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *exec
	m.execs[exec.ID] = &copied
	return nil
}

func (m *mockRepository) UpdateExecution(_ context.Context, exec *Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.execs[exec.ID]; !ok {
		return ErrExecutionNotFound
	}
	copied := *exec
	m.execs[exec.ID] = &copied
	return nil
}

func (m *mockRepository) GetExecution(_ context.Context, id string) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.execs[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	copied := *e
	return &copied, nil
}

func (m *mockRepository) ListExecutions(_ context.Context, ruleID string, _ int) ([]Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Execution
	for _, e := range m.execs {
		if e.RuleID == ruleID {
			out = append(out, *e)
		}
	}
	return out, nil
}

// mockMQTT records published messages, optionally failing on matching topics.
type mockMQTT struct {
	mu        sync.Mutex
	published []publishedMessage
	failTopic string // Publishes to topics containing this substring fail
}

type publishedMessage struct {
	topic   string
	payload []byte
	qos     byte
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTopic != "" && strings.Contains(topic, m.failTopic) {
		return errors.New("broker unavailable")
	}
	m.published = append(m.published, publishedMessage{topic: topic, payload: payload, qos: qos})
	return nil
}

func (m *mockMQTT) messages() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishedMessage, len(m.published))
	copy(out, m.published)
	return out
}

// mockHub records broadcast events.
type mockHub struct {
	mu     sync.Mutex
	events []broadcastEvent
}

type broadcastEvent struct {
	channel string
	payload any
}

func (m *mockHub) Broadcast(channel string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, broadcastEvent{channel: channel, payload: payload})
}

func (m *mockHub) channels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		out = append(out, e.channel)
	}
	return out
}

// mockLatest serves canned latest readings per device.
type mockLatest struct {
	readings map[string]map[reading.DataType]reading.Reading
}

func (m *mockLatest) Snapshot(deviceID string) map[reading.DataType]reading.Reading {
	return m.readings[deviceID]
}

func (m *mockLatest) set(deviceID string, dataType reading.DataType, value float64) {
	if m.readings == nil {
		m.readings = make(map[string]map[reading.DataType]reading.Reading)
	}
	if m.readings[deviceID] == nil {
		m.readings[deviceID] = make(map[reading.DataType]reading.Reading)
	}
	m.readings[deviceID][dataType] = reading.Reading{
		DeviceID:  deviceID,
		DataType:  dataType,
		Value:     value,
		Timestamp: time.Now(),
	}
}

func testRule() *Rule {
	return &Rule{
		ID:     "rule-1",
		FarmID: "farm-001",
		Name:   "Dry Soil Irrigation",
		Active: true,
		DeviceIDs: []string{
			"probe-1",
		},
		Conditions: []Condition{
			{DataType: reading.DataTypeSoilMoisture, Operator: OperatorLT, Value: 25},
		},
		Actions: []Action{
			{Type: ActionCommand, DeviceID: "valve-1", Command: "open_valve", Params: map[string]any{"duration_s": 600}},
		},
		CooldownSeconds: 300,
	}
}

func triggerReading(deviceID string, dataType reading.DataType, value float64) reading.Reading {
	return reading.Reading{
		DeviceID:  deviceID,
		FarmID:    "farm-001",
		DataType:  dataType,
		Value:     value,
		Timestamp: time.Now(),
		Validated: true,
	}
}

type engineFixture struct {
	engine   *Engine
	registry *Registry
	repo     *mockRepository
	mqtt     *mockMQTT
	hub      *mockHub
	latest   *mockLatest
}

func setupEngine(t *testing.T, rules ...*Rule) *engineFixture {
	t.Helper()

	repo := newMockRepository()
	for _, r := range rules {
		if err := repo.Create(context.Background(), r); err != nil {
			t.Fatalf("seeding rule: %v", err)
		}
	}

	registry := NewRegistry(repo)
	if err := registry.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	f := &engineFixture{
		registry: registry,
		repo:     repo,
		mqtt:     &mockMQTT{},
		hub:      &mockHub{},
		latest:   &mockLatest{},
	}
	f.engine = NewEngine(registry, f.latest, f.mqtt, f.hub, repo, nil)
	return f
}

// ============================================================================
// Firing Tests
// ============================================================================

func TestEngineFiresOnConditionMet(t *testing.T) {
	f := setupEngine(t, testRule())
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)

	execIDs := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18))

	if len(execIDs) != 1 {
		t.Fatalf("HandleReading() started %d executions, want 1", len(execIDs))
	}
	f.engine.Drain()

	msgs := f.mqtt.messages()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	wantTopic := "agrisense/farm-001/commands/valve-1"
	if msgs[0].topic != wantTopic {
		t.Errorf("published topic = %q, want %q", msgs[0].topic, wantTopic)
	}
	if msgs[0].qos != 1 {
		t.Errorf("published qos = %d, want 1", msgs[0].qos)
	}

	exec, err := f.repo.GetExecution(context.Background(), execIDs[0])
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}
	if exec.Status != StatusCompleted {
		t.Errorf("execution status = %s, want completed", exec.Status)
	}
	if exec.ActionsCompleted != 1 || exec.ActionsFailed != 0 {
		t.Errorf("actions completed/failed = %d/%d, want 1/0", exec.ActionsCompleted, exec.ActionsFailed)
	}
}

func TestEngineDoesNotFireWhenConditionFails(t *testing.T) {
	f := setupEngine(t, testRule())
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 40)

	execIDs := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 40))

	if len(execIDs) != 0 {
		t.Errorf("HandleReading() started %d executions, want 0", len(execIDs))
	}
	if len(f.mqtt.messages()) != 0 {
		t.Errorf("published %d messages, want 0", len(f.mqtt.messages()))
	}
}

func TestEngineDoesNotFireOnMissingDataType(t *testing.T) {
	rule := testRule()
	rule.Conditions = append(rule.Conditions, Condition{
		DataType: reading.DataTypeTemperature, Operator: OperatorGT, Value: 30,
	})
	f := setupEngine(t, rule)

	// Soil moisture satisfies its condition but the probe has never
	// reported temperature
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)

	execIDs := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18))

	if len(execIDs) != 0 {
		t.Errorf("HandleReading() started %d executions, want 0", len(execIDs))
	}
}

func TestEngineRequiresAllConditions(t *testing.T) {
	rule := testRule()
	rule.Conditions = append(rule.Conditions, Condition{
		DataType: reading.DataTypeTemperature, Operator: OperatorGT, Value: 30,
	})
	f := setupEngine(t, rule)
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)
	f.latest.set("probe-1", reading.DataTypeTemperature, 22) // Fails the > 30 condition

	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18)); len(got) != 0 {
		t.Errorf("HandleReading() started %d executions, want 0", len(got))
	}

	// Temperature climbs past the threshold: now both conditions hold
	f.latest.set("probe-1", reading.DataTypeTemperature, 34)
	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeTemperature, 34)); len(got) != 1 {
		t.Errorf("HandleReading() started %d executions, want 1", len(got))
	}
	f.engine.Drain()
}

func TestEngineIgnoresUnlistedDevice(t *testing.T) {
	f := setupEngine(t, testRule())
	f.latest.set("probe-2", reading.DataTypeSoilMoisture, 10)

	execIDs := f.engine.HandleReading(context.Background(), triggerReading("probe-2", reading.DataTypeSoilMoisture, 10))

	if len(execIDs) != 0 {
		t.Errorf("HandleReading() started %d executions for unlisted device, want 0", len(execIDs))
	}
}

func TestEngineIgnoresInactiveRule(t *testing.T) {
	rule := testRule()
	rule.Active = false
	f := setupEngine(t, rule)
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 10)

	execIDs := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 10))

	if len(execIDs) != 0 {
		t.Errorf("HandleReading() started %d executions for inactive rule, want 0", len(execIDs))
	}
}

func TestEngineEvaluatesConditionsAcrossRuleDevices(t *testing.T) {
	rule := testRule()
	rule.DeviceIDs = []string{"temp-1", "hum-1"}
	rule.Conditions = []Condition{
		{DataType: reading.DataTypeTemperature, Operator: OperatorGT, Value: 30},
		{DataType: reading.DataTypeHumidity, Operator: OperatorLT, Value: 40},
	}
	f := setupEngine(t, rule)

	// Only the temperature sensor has reported so far
	f.latest.set("temp-1", reading.DataTypeTemperature, 34)
	if got := f.engine.HandleReading(context.Background(), triggerReading("temp-1", reading.DataTypeTemperature, 34)); len(got) != 0 {
		t.Errorf("HandleReading() without humidity data started %d executions, want 0", len(got))
	}

	// The humidity sensor reports; each condition is now held by a
	// different device
	f.latest.set("hum-1", reading.DataTypeHumidity, 32)
	got := f.engine.HandleReading(context.Background(), triggerReading("hum-1", reading.DataTypeHumidity, 32))
	if len(got) != 1 {
		t.Fatalf("HandleReading() with conditions spread over two devices started %d executions, want 1", len(got))
	}
	f.engine.Drain()
}

func TestEngineSchedulesDelayedActionsWithoutBlocking(t *testing.T) {
	rule := testRule()
	rule.Actions = []Action{
		{Type: ActionCommand, DeviceID: "valve-1", Command: "open_valve", DelaySeconds: 1},
	}
	f := setupEngine(t, rule)
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)

	started := time.Now()
	execIDs := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18))
	elapsed := time.Since(started)

	if len(execIDs) != 1 {
		t.Fatalf("HandleReading() started %d executions, want 1", len(execIDs))
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("HandleReading() took %v, must return before delayed actions run", elapsed)
	}
	if len(f.mqtt.messages()) != 0 {
		t.Error("command published before its delay elapsed")
	}

	f.engine.Drain()

	if len(f.mqtt.messages()) != 1 {
		t.Fatalf("published %d messages after drain, want 1", len(f.mqtt.messages()))
	}
	exec, err := f.repo.GetExecution(context.Background(), execIDs[0])
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}
	if exec.Status != StatusCompleted {
		t.Errorf("execution status = %s, want completed", exec.Status)
	}
	if exec.ActionsCompleted != 1 {
		t.Errorf("actions completed = %d, want 1", exec.ActionsCompleted)
	}
}

// ============================================================================
// Cooldown and Schedule Tests
// ============================================================================

func TestEngineCooldownSuppressesRefiring(t *testing.T) {
	f := setupEngine(t, testRule())
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)

	now := time.Now()
	f.engine.now = func() time.Time { return now }

	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18)); len(got) != 1 {
		t.Fatalf("first HandleReading() started %d executions, want 1", len(got))
	}

	// Still breaching one minute later, inside the 5 minute cooldown
	f.engine.now = func() time.Time { return now.Add(time.Minute) }
	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 17)); len(got) != 0 {
		t.Errorf("HandleReading() inside cooldown started %d executions, want 0", len(got))
	}

	// Cooldown elapsed
	f.engine.now = func() time.Time { return now.Add(6 * time.Minute) }
	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 16)); len(got) != 1 {
		t.Errorf("HandleReading() after cooldown started %d executions, want 1", len(got))
	}
	f.engine.Drain()
}

func TestEngineRespectsScheduleWindow(t *testing.T) {
	rule := testRule()
	rule.Schedule = &Schedule{Start: "06:00", End: "10:00"}
	f := setupEngine(t, rule)
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)

	noon := time.Date(2026, 8, 30, 12, 0, 0, 0, time.Local)
	f.engine.now = func() time.Time { return noon }
	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18)); len(got) != 0 {
		t.Errorf("HandleReading() outside window started %d executions, want 0", len(got))
	}

	morning := time.Date(2026, 8, 30, 7, 30, 0, 0, time.Local)
	f.engine.now = func() time.Time { return morning }
	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18)); len(got) != 1 {
		t.Errorf("HandleReading() inside window started %d executions, want 1", len(got))
	}
	f.engine.Drain()
}

func TestEngineConditionHoldDuration(t *testing.T) {
	rule := testRule()
	rule.Conditions = []Condition{
		{DataType: reading.DataTypeSoilMoisture, Operator: OperatorLT, Value: 25, DurationSeconds: 600},
	}
	f := setupEngine(t, rule)
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)

	now := time.Now()
	f.engine.now = func() time.Time { return now }

	// First breach starts the hold clock; the rule must not fire yet
	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18)); len(got) != 0 {
		t.Errorf("HandleReading() at hold start began %d executions, want 0", len(got))
	}

	// Five minutes in, still short of the ten minute hold
	f.engine.now = func() time.Time { return now.Add(5 * time.Minute) }
	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 17)); len(got) != 0 {
		t.Errorf("HandleReading() mid-hold began %d executions, want 0", len(got))
	}

	// Breach has held past the duration
	f.engine.now = func() time.Time { return now.Add(11 * time.Minute) }
	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 17)); len(got) != 1 {
		t.Errorf("HandleReading() after hold began %d executions, want 1", len(got))
	}
	f.engine.Drain()
}

func TestEngineConditionHoldResetsOnRecovery(t *testing.T) {
	rule := testRule()
	rule.Conditions = []Condition{
		{DataType: reading.DataTypeSoilMoisture, Operator: OperatorLT, Value: 25, DurationSeconds: 600},
	}
	f := setupEngine(t, rule)

	now := time.Now()
	f.engine.now = func() time.Time { return now }

	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)
	f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18))

	// Moisture recovers mid-hold, which clears the clock
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 40)
	f.engine.now = func() time.Time { return now.Add(5 * time.Minute) }
	f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 40))

	// A fresh breach starts a new hold; eleven minutes after the first
	// breach only five have accrued on this one
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)
	f.engine.now = func() time.Time { return now.Add(6 * time.Minute) }
	f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18))

	f.engine.now = func() time.Time { return now.Add(11 * time.Minute) }
	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 17)); len(got) != 0 {
		t.Errorf("HandleReading() began %d executions before the new hold elapsed, want 0", len(got))
	}

	// The new hold finally matures
	f.engine.now = func() time.Time { return now.Add(17 * time.Minute) }
	if got := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 17)); len(got) != 1 {
		t.Errorf("HandleReading() after the new hold began %d executions, want 1", len(got))
	}
	f.engine.Drain()
}

// ============================================================================
// Execution Tests
// ============================================================================

func TestEnginePartialFailureIsolation(t *testing.T) {
	rule := testRule()
	rule.Actions = []Action{
		{Type: ActionCommand, DeviceID: "valve-1", Command: "open_valve"},
		{Type: ActionCommand, DeviceID: "valve-broken", Command: "open_valve"},
	}
	f := setupEngine(t, rule)
	f.mqtt.failTopic = "valve-broken"
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)

	execIDs := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18))
	if len(execIDs) != 1 {
		t.Fatalf("HandleReading() started %d executions, want 1", len(execIDs))
	}
	f.engine.Drain()

	// The healthy valve still received its command
	msgs := f.mqtt.messages()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}

	exec, err := f.repo.GetExecution(context.Background(), execIDs[0])
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}
	if exec.Status != StatusPartial {
		t.Errorf("execution status = %s, want partial", exec.Status)
	}
	if len(exec.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(exec.Failures))
	}
	if exec.Failures[0].DeviceID != "valve-broken" {
		t.Errorf("failure device = %s, want valve-broken", exec.Failures[0].DeviceID)
	}
}

func TestEngineMarksExecutedEvenOnActionFailure(t *testing.T) {
	rule := testRule()
	f := setupEngine(t, rule)
	f.mqtt.failTopic = "valve-1"
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)

	f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18))
	f.engine.Drain()

	updated, err := f.registry.GetRule(context.Background(), rule.ID)
	if err != nil {
		t.Fatalf("GetRule() error = %v", err)
	}
	if updated.ExecutionCount != 1 {
		t.Errorf("ExecutionCount = %d, want 1", updated.ExecutionCount)
	}
	if updated.LastExecuted == nil {
		t.Error("LastExecuted is nil, want set")
	}
}

func TestEngineNotifyAction(t *testing.T) {
	rule := testRule()
	rule.Actions = []Action{
		{Type: ActionNotify, Params: map[string]any{"message": "soil is dry"}},
	}
	f := setupEngine(t, rule)
	f.latest.set("probe-1", reading.DataTypeSoilMoisture, 18)

	execIDs := f.engine.HandleReading(context.Background(), triggerReading("probe-1", reading.DataTypeSoilMoisture, 18))
	if len(execIDs) != 1 {
		t.Fatalf("HandleReading() started %d executions, want 1", len(execIDs))
	}
	f.engine.Drain()

	channels := f.hub.channels()
	var sawNotification bool
	for _, ch := range channels {
		if ch == "rule.notification" {
			sawNotification = true
		}
	}
	if !sawNotification {
		t.Errorf("broadcast channels = %v, want rule.notification included", channels)
	}
}

// ============================================================================
// Condition Tests
// ============================================================================

func TestConditionSatisfied(t *testing.T) {
	tests := []struct {
		name  string
		cond  Condition
		value float64
		want  bool
	}{
		{"gt true", Condition{Operator: OperatorGT, Value: 10}, 11, true},
		{"gt false on equal", Condition{Operator: OperatorGT, Value: 10}, 10, false},
		{"gte true on equal", Condition{Operator: OperatorGTE, Value: 10}, 10, true},
		{"lt true", Condition{Operator: OperatorLT, Value: 10}, 9, true},
		{"lte false", Condition{Operator: OperatorLTE, Value: 10}, 10.5, false},
		{"eq true", Condition{Operator: OperatorEQ, Value: 3.5}, 3.5, true},
		{"neq true", Condition{Operator: OperatorNEQ, Value: 3.5}, 3.6, true},
		{"unknown operator", Condition{Operator: "like", Value: 1}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Satisfied(tt.value); got != tt.want {
				t.Errorf("Satisfied(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
