package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/leadforge/automation/internal/data/pgxutil"
	"github.com/leadforge/automation/internal/domain/model"
)

// IntentRepo provides database operations for checkout intents.
type IntentRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewIntentRepo creates a new IntentRepo with a real time provider.
func NewIntentRepo(db *sql.DB) *IntentRepo {
	return &IntentRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewIntentRepoWithTimeProvider creates an IntentRepo with a custom time
// provider (useful for tests).
func NewIntentRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *IntentRepo {
	return &IntentRepo{DB: db, timeProvider: tp}
}

const intentColumns = `
	id, visitor_id, email, name, page_slug, checkout_url,
	product_name, product_price::text AS product_price, status,
	created_at, updated_at`

// Create records a new pending checkout intent.
func (r *IntentRepo) Create(
	ctx context.Context,
	req *model.CreateIntentRequest,
) (*model.CommerceIntent, error) {
	if req == nil {
		return nil, errors.New("create intent request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	var out model.CommerceIntent
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO checkout_intents (
				visitor_id, email, name, page_slug, checkout_url,
				product_name, product_price, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, 'pending', $8, $8)
			RETURNING `+intentColumns,
			req.VisitorID,
			req.Email,
			req.Name,
			req.PageSlug,
			req.CheckoutURL,
			req.ProductName,
			req.ProductPrice,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, rowToIntent)
		return err
	}); err != nil {
		return nil, fmt.Errorf("create checkout intent: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a checkout intent by ID.
func (r *IntentRepo) GetByID(ctx context.Context, id string) (*model.CommerceIntent, error) {
	var out model.CommerceIntent
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+intentColumns+` FROM checkout_intents WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, rowToIntent)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("get checkout intent: %w", err)
	}
	return &out, nil
}

// FindStale returns pending intents created at or before the query threshold,
// oldest first, optionally restricted to one page slug.
func (r *IntentRepo) FindStale(
	ctx context.Context,
	q model.StaleIntentQuery,
) ([]model.CommerceIntent, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var out []model.CommerceIntent
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+intentColumns+`
			FROM checkout_intents
			WHERE status = 'pending'
			  AND created_at <= $1
			  AND ($2::text IS NULL OR page_slug = $2)
			ORDER BY created_at ASC
			LIMIT $3`,
			q.Threshold.UTC(), q.PageSlug, limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, rowToIntent)
		return err
	}); err != nil {
		return nil, fmt.Errorf("find stale intents: %w", err)
	}
	return out, nil
}

// MarkAutomationSent flips a pending intent to automation_sent so the scanner
// never picks it up again. A non-pending intent is left untouched.
func (r *IntentRepo) MarkAutomationSent(ctx context.Context, id string) error {
	return r.transition(ctx, id, model.IntentStatusAutomationSent, model.IntentStatusPending)
}

// MarkConverted records that the visitor completed the checkout. Both pending
// and automation_sent intents may convert.
func (r *IntentRepo) MarkConverted(ctx context.Context, id string) error {
	return r.transition(ctx, id, model.IntentStatusConverted,
		model.IntentStatusPending, model.IntentStatusAutomationSent)
}

func (r *IntentRepo) transition(
	ctx context.Context,
	id string,
	to model.IntentStatus,
	from ...model.IntentStatus,
) error {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	now := r.timeProvider.Now().UTC()
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE checkout_intents
			SET status = $2, updated_at = $3
			WHERE id = $1 AND status = ANY($4)`,
			id, to, now, fromStrs,
		)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("update checkout intent: %w", err)
	}
	if affected == 0 {
		return ErrIntentNotFound
	}
	return nil
}

// intentRow matches the checkout_intents table schema for pgx struct scanning.
type intentRow struct {
	ID           string     `db:"id"`
	VisitorID    string     `db:"visitor_id"`
	Email        *string    `db:"email"`
	Name         *string    `db:"name"`
	PageSlug     *string    `db:"page_slug"`
	CheckoutURL  string     `db:"checkout_url"`
	ProductName  *string    `db:"product_name"`
	ProductPrice *string    `db:"product_price"`
	Status       string     `db:"status"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func rowToIntent(row pgx.CollectableRow) (model.CommerceIntent, error) {
	dbRow, err := pgx.RowToStructByName[intentRow](row)
	if err != nil {
		return model.CommerceIntent{}, fmt.Errorf("scan intent row: %w", err)
	}

	return model.CommerceIntent{
		ID:           dbRow.ID,
		VisitorID:    dbRow.VisitorID,
		Email:        dbRow.Email,
		Name:         dbRow.Name,
		PageSlug:     dbRow.PageSlug,
		CheckoutURL:  dbRow.CheckoutURL,
		ProductName:  dbRow.ProductName,
		ProductPrice: dbRow.ProductPrice,
		Status:       model.IntentStatus(dbRow.Status),
		CreatedAt:    dbRow.CreatedAt,
		UpdatedAt:    dbRow.UpdatedAt,
	}, nil
}
