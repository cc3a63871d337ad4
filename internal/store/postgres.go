package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BerylCAtieno/getreach/internal/models"
)

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS reach_reports (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	report     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS reach_reports_user_created_idx ON reach_reports (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS reach_subscriptions (
	user_id    TEXT PRIMARY KEY,
	subscribed BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// Postgres stores reports as JSONB documents.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Reports = (*Postgres)(nil)

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, userID string, report *models.ReachReport) (string, error) {
	doc, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("save: encode report: %w", err)
	}
	id := uuid.NewString()
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO reach_reports (id, user_id, report) VALUES ($1, $2, $3)`,
		id, userID, doc,
	); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	return id, nil
}

func (p *Postgres) Replace(ctx context.Context, reportID string, report *models.ReachReport) error {
	if _, err := uuid.Parse(reportID); err != nil {
		return ErrNotFound
	}
	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("replace: encode report: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE reach_reports SET report = $1, updated_at = NOW() WHERE id = $2`,
		doc, reportID,
	)
	if err != nil {
		return fmt.Errorf("replace: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const selectRecord = `SELECT id::text, user_id, report, created_at, updated_at FROM reach_reports`

func (p *Postgres) Get(ctx context.Context, reportID string) (*Record, error) {
	if _, err := uuid.Parse(reportID); err != nil {
		return nil, ErrNotFound
	}
	return scanRecord(p.pool.QueryRow(ctx, selectRecord+` WHERE id = $1`, reportID))
}

func (p *Postgres) GetLatest(ctx context.Context, userID string) (*Record, error) {
	return scanRecord(p.pool.QueryRow(ctx,
		selectRecord+` WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID))
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec Record
		doc []byte
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &doc, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	report, err := models.ParseReport(string(doc))
	if err != nil {
		return nil, fmt.Errorf("stored report %s: %w", rec.ID, err)
	}
	rec.Report = report
	return &rec, nil
}

func (p *Postgres) CountReportsFor(ctx context.Context, userID string) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reach_reports WHERE user_id = $1`, userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

func (p *Postgres) SetSubscribed(ctx context.Context, userID string, subscribed bool) error {
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO reach_subscriptions (user_id, subscribed) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET subscribed = EXCLUDED.subscribed, updated_at = NOW()`,
		userID, subscribed,
	); err != nil {
		return fmt.Errorf("set subscribed: %w", err)
	}
	return nil
}

func (p *Postgres) IsSubscribed(ctx context.Context, userID string) (bool, error) {
	var subscribed bool
	err := p.pool.QueryRow(ctx,
		`SELECT subscribed FROM reach_subscriptions WHERE user_id = $1`, userID,
	).Scan(&subscribed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is subscribed: %w", err)
	}
	return subscribed, nil
}
