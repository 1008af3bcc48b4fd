package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leadforge/automation/internal/data/pgxutil"
	"github.com/leadforge/automation/internal/domain/model"
)

// JobRepo provides database operations for scheduled send jobs.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewJobRepo creates a new JobRepo with a real time provider.
func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewJobRepoWithTimeProvider creates a JobRepo with a custom time provider
// (useful for tests).
func NewJobRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *JobRepo {
	return &JobRepo{DB: db, timeProvider: tp}
}

const jobColumns = `
	id, automation_id, recipient_email, recipient_name, recipient_data,
	status, attempts, max_attempts, scheduled_for, error_message,
	processed_at, created_at, updated_at`

// Insert creates a pending job. When an active job already exists for the
// same automation and recipient the partial unique index rejects the row and
// Insert returns ErrDuplicateActiveJob.
func (r *JobRepo) Insert(ctx context.Context, params model.NewJobParams) (*model.Job, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	recipientData := params.RecipientData
	if recipientData == nil {
		recipientData = map[string]string{}
	}
	dataJSON, err := json.Marshal(recipientData)
	if err != nil {
		return nil, fmt.Errorf("marshal recipient data: %w", err)
	}

	now := r.timeProvider.Now().UTC()
	var out model.Job
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO jobs (
				automation_id, recipient_email, recipient_name, recipient_data,
				status, attempts, max_attempts, scheduled_for, created_at, updated_at
			) VALUES ($1, $2, $3, $4, 'pending', 0, $5, $6, $7, $7)
			RETURNING `+jobColumns,
			params.AutomationID,
			params.RecipientEmail,
			params.RecipientName,
			dataJSON,
			params.MaxAttempts,
			params.ScheduledFor.UTC(),
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, rowToJob)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrDuplicateActiveJob
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return &out, nil
}

// HasActiveJob reports whether a pending or processing job already exists for
// the automation and recipient. This is the cheap pre-check; the unique index
// remains the authoritative gate under concurrent schedulers.
func (r *JobRepo) HasActiveJob(ctx context.Context, automationID, recipientEmail string) (bool, error) {
	var exists bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM jobs
				WHERE automation_id = $1
				  AND recipient_email = $2
				  AND status IN ('pending', 'processing')
			)`, automationID, recipientEmail).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("check active job: %w", err)
	}
	return exists, nil
}

// ClaimDue atomically claims up to limit due pending jobs: each claimed row
// moves to processing and its attempt counter is incremented in the same
// statement. SKIP LOCKED keeps concurrent workers from claiming the same row.
// Returns ErrNoJobsDue when nothing is ready.
func (r *JobRepo) ClaimDue(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 1
	}

	now := r.timeProvider.Now().UTC()
	var out []model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			WITH due AS (
				SELECT id FROM jobs
				WHERE status = 'pending'
				  AND scheduled_for <= $1
				  AND attempts < max_attempts
				ORDER BY scheduled_for ASC
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			)
			UPDATE jobs
			SET status = 'processing',
			    attempts = attempts + 1,
			    updated_at = $1
			WHERE id IN (SELECT id FROM due)
			RETURNING `+jobColumns,
			now, limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, rowToJob)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("claim due jobs: %w", err)
	}
	if len(out) == 0 {
		return nil, model.ErrNoJobsDue
	}

	// UPDATE ... RETURNING does not promise row order; restore due order.
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledFor.Before(out[j].ScheduledFor)
	})
	return out, nil
}

// Complete marks a processing job as completed and stamps processed_at.
func (r *JobRepo) Complete(ctx context.Context, id string) error {
	return r.finishProcessing(ctx, id, `
		UPDATE jobs
		SET status = 'completed',
		    error_message = NULL,
		    processed_at = $2,
		    updated_at = $2
		WHERE id = $1 AND status = 'processing'`)
}

// Fail records a failed attempt on a processing job. If the retry budget
// still has room the job reverts to pending for a later tick; otherwise it
// becomes failed permanently. The attempt counter was already incremented at
// claim time.
func (r *JobRepo) Fail(ctx context.Context, id, errorMessage string) error {
	now := r.timeProvider.Now().UTC()
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE jobs
			SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
			    error_message = $2,
			    processed_at = CASE WHEN attempts >= max_attempts THEN $3 ELSE processed_at END,
			    updated_at = $3
			WHERE id = $1 AND status = 'processing'`,
			id, errorMessage, now,
		)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// FailPermanent marks a processing job as failed regardless of its remaining
// retry budget. Used for non-retryable conditions such as a missing mail
// transport.
func (r *JobRepo) FailPermanent(ctx context.Context, id, errorMessage string) error {
	now := r.timeProvider.Now().UTC()
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE jobs
			SET status = 'failed',
			    error_message = $2,
			    processed_at = $3,
			    updated_at = $3
			WHERE id = $1 AND status = 'processing'`,
			id, errorMessage, now,
		)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("fail job permanently: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// CancelProcessing cancels a claimed job, recording why. The worker uses this
// when the job's automation was disabled or deleted between scheduling and
// execution.
func (r *JobRepo) CancelProcessing(ctx context.Context, id, reason string) error {
	now := r.timeProvider.Now().UTC()
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE jobs
			SET status = 'cancelled',
			    error_message = $2,
			    processed_at = $3,
			    updated_at = $3
			WHERE id = $1 AND status = 'processing'`,
			id, reason, now,
		)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel processing job: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Cancel cancels a pending job on operator request. Jobs that are already
// processing or terminal are left alone and ErrJobNotFound is returned.
func (r *JobRepo) Cancel(ctx context.Context, id, reason string) error {
	now := r.timeProvider.Now().UTC()
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE jobs
			SET status = 'cancelled',
			    error_message = $2,
			    processed_at = $3,
			    updated_at = $3
			WHERE id = $1 AND status = 'pending'`,
			id, reason, now,
		)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// CancelPendingByAutomation cancels every pending job of one automation and
// returns how many were cancelled.
func (r *JobRepo) CancelPendingByAutomation(ctx context.Context, automationID, reason string) (int, error) {
	now := r.timeProvider.Now().UTC()
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE jobs
			SET status = 'cancelled',
			    error_message = $2,
			    processed_at = $3,
			    updated_at = $3
			WHERE automation_id = $1 AND status = 'pending'`,
			automationID, reason, now,
		)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cancel pending jobs for automation: %w", err)
	}
	return int(affected), nil
}

// ReleaseStuck recovers processing jobs whose worker died mid-flight. Rows
// untouched for longer than olderThan revert to pending when budget remains,
// or fail terminally when it is spent. Returns how many rows were released.
func (r *JobRepo) ReleaseStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}

	now := r.timeProvider.Now().UTC()
	cutoff := now.Add(-olderThan)
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE jobs
			SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
			    error_message = 'worker lost mid-processing',
			    processed_at = CASE WHEN attempts >= max_attempts THEN $2 ELSE processed_at END,
			    updated_at = $2
			WHERE status = 'processing' AND updated_at < $1`,
			cutoff, now,
		)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("release stuck jobs: %w", err)
	}
	return int(affected), nil
}

// GetByID retrieves a job by ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var out model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, rowToJob)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &out, nil
}

// List retrieves jobs matching the given filters, newest first.
func (r *JobRepo) List(ctx context.Context, opts model.JobListOptions) ([]model.Job, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var out []model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE ($1::uuid IS NULL OR automation_id = $1)
			  AND ($2::text IS NULL OR status = $2)
			ORDER BY created_at DESC
			LIMIT $3 OFFSET $4`,
			opts.AutomationID, (*string)(opts.Status), limit, offset,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, rowToJob)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return out, nil
}

// Stats aggregates job counts by status.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var stats model.JobStats
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `
			SELECT
				COUNT(*) FILTER (WHERE status = 'pending'),
				COUNT(*) FILTER (WHERE status = 'processing'),
				COUNT(*) FILTER (WHERE status = 'completed'),
				COUNT(*) FILTER (WHERE status = 'failed'),
				COUNT(*) FILTER (WHERE status = 'cancelled')
			FROM jobs`).Scan(
			&stats.Pending, &stats.Processing, &stats.Completed,
			&stats.Failed, &stats.Cancelled,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return &stats, nil
}

// jobRow matches the jobs table schema for pgx struct scanning.
type jobRow struct {
	ID             string         `db:"id"`
	AutomationID   string         `db:"automation_id"`
	RecipientEmail string         `db:"recipient_email"`
	RecipientName  *string        `db:"recipient_name"`
	RecipientData  []byte         `db:"recipient_data"`
	Status         string         `db:"status"`
	Attempts       int            `db:"attempts"`
	MaxAttempts    int            `db:"max_attempts"`
	ScheduledFor   time.Time      `db:"scheduled_for"`
	ErrorMessage   *string        `db:"error_message"`
	ProcessedAt    *time.Time     `db:"processed_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func rowToJob(row pgx.CollectableRow) (model.Job, error) {
	dbRow, err := pgx.RowToStructByName[jobRow](row)
	if err != nil {
		return model.Job{}, fmt.Errorf("scan job row: %w", err)
	}

	recipientData := map[string]string{}
	if len(dbRow.RecipientData) > 0 {
		if err := json.Unmarshal(dbRow.RecipientData, &recipientData); err != nil {
			return model.Job{}, fmt.Errorf("decode recipient data: %w", err)
		}
	}

	return model.Job{
		ID:             dbRow.ID,
		AutomationID:   dbRow.AutomationID,
		RecipientEmail: dbRow.RecipientEmail,
		RecipientName:  dbRow.RecipientName,
		RecipientData:  recipientData,
		Status:         model.JobStatus(dbRow.Status),
		Attempts:       dbRow.Attempts,
		MaxAttempts:    dbRow.MaxAttempts,
		ScheduledFor:   dbRow.ScheduledFor,
		ErrorMessage:   dbRow.ErrorMessage,
		ProcessedAt:    dbRow.ProcessedAt,
		CreatedAt:      dbRow.CreatedAt,
		UpdatedAt:      dbRow.UpdatedAt,
	}, nil
}

func (r *JobRepo) finishProcessing(ctx context.Context, id, query string) error {
	now := r.timeProvider.Now().UTC()
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, query, id, now)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}
