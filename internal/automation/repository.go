package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for rule persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Rule CRUD
	GetByID(ctx context.Context, id string) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	ListByFarm(ctx context.Context, farmID string) ([]Rule, error)
	Create(ctx context.Context, rule *Rule) error
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id string) error

	// MarkExecuted increments the execution count and stamps
	// last_executed. Called on every firing, even a partial one.
	MarkExecuted(ctx context.Context, id string, at time.Time) error

	// Execution logging
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, ruleID string, limit int) ([]Execution, error)
}

// ruleColumns is the SELECT column list for rule queries.
const ruleColumns = `id, farm_id, name, description, active, device_ids, conditions,
			actions, schedule, cooldown_seconds, execution_count, last_executed,
			created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a rule by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("querying rule by id: %w", err)
	}
	return rule, nil
}

// List retrieves all rules ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules ORDER BY name`
	return r.queryRules(ctx, query)
}

// ListByFarm retrieves all rules for a farm.
func (r *SQLiteRepository) ListByFarm(ctx context.Context, farmID string) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE farm_id = ? ORDER BY name`
	return r.queryRules(ctx, query, farmID)
}

// Create inserts a new rule.
func (r *SQLiteRepository) Create(ctx context.Context, rule *Rule) error {
	deviceIDs, conditions, actions, schedule, err := marshalRuleFields(rule)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	query := `
		INSERT INTO automation_rules (
			id, farm_id, name, description, active, device_ids, conditions,
			actions, schedule, cooldown_seconds, execution_count, last_executed,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.FarmID,
		rule.Name,
		nullableString(rule.Description),
		boolToInt(rule.Active),
		deviceIDs,
		conditions,
		actions,
		schedule,
		rule.CooldownSeconds,
		rule.ExecutionCount,
		nullableTime(rule.LastExecuted),
		rule.CreatedAt.Format(time.RFC3339),
		rule.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrRuleExists
		}
		return fmt.Errorf("inserting rule: %w", err)
	}
	return nil
}

// Update modifies an existing rule.
func (r *SQLiteRepository) Update(ctx context.Context, rule *Rule) error {
	deviceIDs, conditions, actions, schedule, err := marshalRuleFields(rule)
	if err != nil {
		return err
	}

	rule.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE automation_rules SET
			farm_id = ?, name = ?, description = ?, active = ?, device_ids = ?,
			conditions = ?, actions = ?, schedule = ?, cooldown_seconds = ?,
			updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		rule.FarmID,
		rule.Name,
		nullableString(rule.Description),
		boolToInt(rule.Active),
		deviceIDs,
		conditions,
		actions,
		schedule,
		rule.CooldownSeconds,
		rule.UpdatedAt.Format(time.RFC3339),
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("updating rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Delete removes a rule by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM automation_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// MarkExecuted increments the execution count and stamps last_executed.
func (r *SQLiteRepository) MarkExecuted(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE automation_rules
		SET execution_count = execution_count + 1, last_executed = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		at.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("marking rule executed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// CreateExecution inserts a new execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	failuresJSON, err := marshalFailures(exec.Failures)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO rule_executions (
			id, rule_id, device_id, triggered_at, status,
			actions_total, actions_completed, actions_failed, failures, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		exec.ID,
		exec.RuleID,
		exec.DeviceID,
		exec.TriggeredAt.UTC().Format(time.RFC3339),
		string(exec.Status),
		exec.ActionsTotal,
		exec.ActionsCompleted,
		exec.ActionsFailed,
		failuresJSON,
		nullableInt(exec.DurationMS),
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// UpdateExecution modifies an existing execution record.
func (r *SQLiteRepository) UpdateExecution(ctx context.Context, exec *Execution) error {
	failuresJSON, err := marshalFailures(exec.Failures)
	if err != nil {
		return err
	}

	query := `
		UPDATE rule_executions SET
			status = ?, actions_total = ?, actions_completed = ?,
			actions_failed = ?, failures = ?, duration_ms = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(exec.Status),
		exec.ActionsTotal,
		exec.ActionsCompleted,
		exec.ActionsFailed,
		failuresJSON,
		nullableInt(exec.DurationMS),
		exec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// GetExecution retrieves an execution record by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `
		SELECT id, rule_id, device_id, triggered_at, status,
			actions_total, actions_completed, actions_failed, failures, duration_ms
		FROM rule_executions WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	exec, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// ListExecutions retrieves recent executions for a rule, newest first.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, ruleID string, limit int) ([]Execution, error) {
	query := `
		SELECT id, rule_id, device_id, triggered_at, status,
			actions_total, actions_completed, actions_failed, failures, duration_ms
		FROM rule_executions
		WHERE rule_id = ?
		ORDER BY triggered_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var execs []Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		execs = append(execs, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return execs, nil
}

// queryRules executes a query and returns a slice of rules.
func (r *SQLiteRepository) queryRules(ctx context.Context, query string, args ...any) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return rules, nil
}

// marshalRuleFields serialises the JSON columns of a rule.
func marshalRuleFields(rule *Rule) (deviceIDs, conditions, actions string, schedule sql.NullString, err error) {
	d, err := json.Marshal(rule.DeviceIDs)
	if err != nil {
		return "", "", "", sql.NullString{}, fmt.Errorf("marshalling device_ids: %w", err)
	}
	c, err := json.Marshal(rule.Conditions)
	if err != nil {
		return "", "", "", sql.NullString{}, fmt.Errorf("marshalling conditions: %w", err)
	}
	a, err := json.Marshal(rule.Actions)
	if err != nil {
		return "", "", "", sql.NullString{}, fmt.Errorf("marshalling actions: %w", err)
	}

	if rule.Schedule != nil {
		s, sErr := json.Marshal(rule.Schedule)
		if sErr != nil {
			return "", "", "", sql.NullString{}, fmt.Errorf("marshalling schedule: %w", sErr)
		}
		schedule = sql.NullString{String: string(s), Valid: true}
	}

	return string(d), string(c), string(a), schedule, nil
}

// marshalFailures serialises an execution's failure list, NULL when empty.
func marshalFailures(failures []ActionFailure) (sql.NullString, error) {
	if len(failures) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(failures)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling failures: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRule scans a row or rows result into a Rule.
func scanRule(scanner rowScanner) (*Rule, error) {
	var rule Rule
	var description, scheduleJSON, lastExecuted sql.NullString
	var active int
	var deviceIDsJSON, conditionsJSON, actionsJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&rule.ID,
		&rule.FarmID,
		&rule.Name,
		&description,
		&active,
		&deviceIDsJSON,
		&conditionsJSON,
		&actionsJSON,
		&scheduleJSON,
		&rule.CooldownSeconds,
		&rule.ExecutionCount,
		&lastExecuted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Active = active != 0
	if description.Valid {
		rule.Description = &description.String
	}

	if err := json.Unmarshal([]byte(deviceIDsJSON), &rule.DeviceIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling device_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(conditionsJSON), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshalling conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &rule.Actions); err != nil {
		return nil, fmt.Errorf("unmarshalling actions: %w", err)
	}
	if scheduleJSON.Valid {
		var sched Schedule
		if err := json.Unmarshal([]byte(scheduleJSON.String), &sched); err != nil {
			return nil, fmt.Errorf("unmarshalling schedule: %w", err)
		}
		rule.Schedule = &sched
	}

	if lastExecuted.Valid {
		t, err := time.Parse(time.RFC3339, lastExecuted.String)
		if err == nil {
			rule.LastExecuted = &t
		}
	}

	var parseErr error
	rule.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	rule.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &rule, nil
}

// scanExecution scans a row or rows result into an Execution.
func scanExecution(scanner rowScanner) (*Execution, error) {
	var exec Execution
	var status, triggeredAt string
	var failuresJSON sql.NullString
	var durationMS sql.NullInt64

	err := scanner.Scan(
		&exec.ID,
		&exec.RuleID,
		&exec.DeviceID,
		&triggeredAt,
		&status,
		&exec.ActionsTotal,
		&exec.ActionsCompleted,
		&exec.ActionsFailed,
		&failuresJSON,
		&durationMS,
	)
	if err != nil {
		return nil, err
	}

	exec.Status = ExecutionStatus(status)
	exec.TriggeredAt, err = time.Parse(time.RFC3339, triggeredAt)
	if err != nil {
		return nil, fmt.Errorf("parsing triggered_at: %w", err)
	}

	if failuresJSON.Valid {
		if err := json.Unmarshal([]byte(failuresJSON.String), &exec.Failures); err != nil {
			return nil, fmt.Errorf("unmarshalling failures: %w", err)
		}
	}
	if durationMS.Valid {
		d := int(durationMS.Int64)
		exec.DurationMS = &d
	}

	return &exec, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableTime returns a sql.NullString holding an RFC3339 timestamp.
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// nullableInt returns a sql.NullInt64 for optional int pointers.
func nullableInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// boolToInt converts a bool to the 0/1 integer SQLite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
