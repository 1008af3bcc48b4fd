package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/leadforge/automation/internal/data/pgxutil"
	"github.com/leadforge/automation/internal/domain/model"
)

// AutomationRepo provides database operations for automation definitions.
type AutomationRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAutomationRepo creates a new AutomationRepo with a real time provider.
func NewAutomationRepo(db *sql.DB) *AutomationRepo {
	return &AutomationRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewAutomationRepoWithTimeProvider creates an AutomationRepo with a custom
// time provider (useful for tests).
func NewAutomationRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *AutomationRepo {
	return &AutomationRepo{DB: db, timeProvider: tp}
}

const automationColumns = `
	id, name, channel, subject_template, body_template, enabled,
	trigger_type, trigger_config, delay_seconds, created_at, updated_at`

// Create inserts a new automation definition.
func (r *AutomationRepo) Create(
	ctx context.Context,
	req *model.CreateAutomationRequest,
) (*model.Automation, error) {
	if req == nil {
		return nil, errors.New("create automation request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	channel := req.Channel
	if channel == "" {
		channel = model.ChannelEmail
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	cfg := req.TriggerConfig
	if len(cfg) == 0 {
		cfg = json.RawMessage(`{}`)
	}

	now := r.timeProvider.Now().UTC()
	var out model.Automation
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO automations (
				name, channel, subject_template, body_template, enabled,
				trigger_type, trigger_config, delay_seconds, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			RETURNING `+automationColumns,
			strings.TrimSpace(req.Name),
			channel,
			req.SubjectTemplate,
			req.BodyTemplate,
			enabled,
			req.TriggerType,
			[]byte(cfg),
			req.DelaySeconds,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, rowToAutomation)
		return err
	}); err != nil {
		return nil, fmt.Errorf("create automation: %w", err)
	}
	return &out, nil
}

// GetByID retrieves an automation by ID.
func (r *AutomationRepo) GetByID(ctx context.Context, id string) (*model.Automation, error) {
	var out model.Automation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+automationColumns+` FROM automations WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, rowToAutomation)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAutomationNotFound
		}
		return nil, fmt.Errorf("get automation: %w", err)
	}
	return &out, nil
}

// List retrieves automations ordered by creation time, newest first.
func (r *AutomationRepo) List(ctx context.Context, limit, offset int) ([]model.Automation, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var out []model.Automation
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+automationColumns+`
			FROM automations
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2`, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, rowToAutomation)
		return err
	}); err != nil {
		return nil, fmt.Errorf("list automations: %w", err)
	}
	return out, nil
}

// ListEnabled retrieves all enabled automation definitions. This is the read
// path of the trigger evaluator and the scanner.
func (r *AutomationRepo) ListEnabled(ctx context.Context) ([]model.Automation, error) {
	var out []model.Automation
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+automationColumns+`
			FROM automations
			WHERE enabled = TRUE
			ORDER BY created_at ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, rowToAutomation)
		return err
	}); err != nil {
		return nil, fmt.Errorf("list enabled automations: %w", err)
	}
	return out, nil
}

// Update updates fields of an automation. Nil request fields are unchanged.
func (r *AutomationRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateAutomationRequest,
) (*model.Automation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	setClause, args := r.buildUpdateClause(req)
	args = append(args, id)
	query := "UPDATE automations SET " + setClause +
		fmt.Sprintf(" WHERE id = $%d RETURNING ", len(args)) + automationColumns

	var out model.Automation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, rowToAutomation)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAutomationNotFound
		}
		return nil, fmt.Errorf("update automation: %w", err)
	}
	return &out, nil
}

func (r *AutomationRepo) buildUpdateClause(req model.UpdateAutomationRequest) (string, []any) {
	setParts := make([]string, 0, 8)
	args := make([]any, 0, 8)
	nextIdx := func() int { return len(args) + 1 }

	if req.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.Name))
	}
	if req.SubjectTemplate != nil {
		setParts = append(setParts, fmt.Sprintf("subject_template = $%d", nextIdx()))
		args = append(args, *req.SubjectTemplate)
	}
	if req.BodyTemplate != nil {
		setParts = append(setParts, fmt.Sprintf("body_template = $%d", nextIdx()))
		args = append(args, *req.BodyTemplate)
	}
	if req.Enabled != nil {
		setParts = append(setParts, fmt.Sprintf("enabled = $%d", nextIdx()))
		args = append(args, *req.Enabled)
	}
	if req.TriggerType != nil {
		setParts = append(setParts, fmt.Sprintf("trigger_type = $%d", nextIdx()))
		args = append(args, *req.TriggerType)
	}
	if req.TriggerConfig != nil {
		setParts = append(setParts, fmt.Sprintf("trigger_config = $%d", nextIdx()))
		args = append(args, []byte(req.TriggerConfig))
	}
	if req.DelaySeconds != nil {
		setParts = append(setParts, fmt.Sprintf("delay_seconds = $%d", nextIdx()))
		args = append(args, *req.DelaySeconds)
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", nextIdx()))
	args = append(args, r.timeProvider.Now().UTC())

	return strings.Join(setParts, ", "), args
}

// Delete deletes an automation by ID. Jobs referencing it are retained; the
// worker cancels them at claim time when the definition is gone.
func (r *AutomationRepo) Delete(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM automations WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete automation: %w", err)
	}
	return affected > 0, nil
}

// automationRow matches the automations table schema for pgx struct scanning.
type automationRow struct {
	ID              string    `db:"id"`
	Name            string    `db:"name"`
	Channel         string    `db:"channel"`
	SubjectTemplate string    `db:"subject_template"`
	BodyTemplate    string    `db:"body_template"`
	Enabled         bool      `db:"enabled"`
	TriggerType     string    `db:"trigger_type"`
	TriggerConfig   []byte    `db:"trigger_config"`
	DelaySeconds    int       `db:"delay_seconds"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func rowToAutomation(row pgx.CollectableRow) (model.Automation, error) {
	dbRow, err := pgx.RowToStructByName[automationRow](row)
	if err != nil {
		return model.Automation{}, fmt.Errorf("scan automation row: %w", err)
	}

	cfg := json.RawMessage(`{}`)
	if len(dbRow.TriggerConfig) > 0 {
		cfg = append(json.RawMessage(nil), dbRow.TriggerConfig...)
	}

	return model.Automation{
		ID:               dbRow.ID,
		Name:             dbRow.Name,
		Channel:          model.ChannelType(dbRow.Channel),
		SubjectTemplate:  dbRow.SubjectTemplate,
		BodyTemplate:     dbRow.BodyTemplate,
		Enabled:          dbRow.Enabled,
		TriggerType:      model.TriggerType(dbRow.TriggerType),
		RawTriggerConfig: cfg,
		DelaySeconds:     dbRow.DelaySeconds,
		CreatedAt:        dbRow.CreatedAt,
		UpdatedAt:        dbRow.UpdatedAt,
	}, nil
}
