package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"gigleads/pkg/models"
)

// PostgresSink upserts leads into Postgres, keyed on the external listing ID.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink opens the connection, verifies it, and ensures the schema.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresSink{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(schemaCtx, `
		CREATE TABLE IF NOT EXISTS leads (
			listing_id   TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			url          TEXT NOT NULL,
			price        DOUBLE PRECISION,
			posted_at    TIMESTAMPTZ,
			neighborhood TEXT,
			scraped_at   TIMESTAMPTZ NOT NULL,
			detail       JSONB,
			reply_email  TEXT,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure leads schema: %w", err)
	}
	return nil
}

// SaveSummary upserts a bare summary without touching any detail columns a
// previous run may have filled.
func (s *PostgresSink) SaveSummary(ctx context.Context, summary *models.ListingSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (listing_id, title, url, price, posted_at, neighborhood, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (listing_id) DO UPDATE
		SET
			title        = EXCLUDED.title,
			price        = EXCLUDED.price,
			posted_at    = EXCLUDED.posted_at,
			neighborhood = EXCLUDED.neighborhood,
			scraped_at   = EXCLUDED.scraped_at,
			updated_at   = NOW()`,
		summary.ListingID, summary.Title, summary.URL, summary.Price,
		summary.PostedAt, nullableString(summary.Neighborhood), summary.ScrapedAt)
	if err != nil {
		return fmt.Errorf("upsert summary %s: %w", summary.ListingID, err)
	}
	return nil
}

// SaveDetail upserts a full detail record; the nested fields land in a JSONB
// column for downstream qualification.
func (s *PostgresSink) SaveDetail(ctx context.Context, detail *models.ListingDetail) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal detail %s: %w", detail.ListingID, err)
	}

	var replyEmail *string
	if detail.Contact != nil && detail.Contact.ReplyEmail != "" {
		replyEmail = &detail.Contact.ReplyEmail
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leads (listing_id, title, url, price, posted_at, neighborhood, scraped_at, detail, reply_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (listing_id) DO UPDATE
		SET
			title        = EXCLUDED.title,
			price        = EXCLUDED.price,
			posted_at    = EXCLUDED.posted_at,
			neighborhood = EXCLUDED.neighborhood,
			scraped_at   = EXCLUDED.scraped_at,
			detail       = EXCLUDED.detail,
			reply_email  = COALESCE(EXCLUDED.reply_email, leads.reply_email),
			updated_at   = NOW()`,
		detail.ListingID, detail.Title, detail.URL, detail.Price,
		detail.PostedAt, nullableString(detail.Neighborhood), detail.ScrapedAt,
		payload, replyEmail)
	if err != nil {
		return fmt.Errorf("upsert detail %s: %w", detail.ListingID, err)
	}
	return nil
}

// Close closes the database pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
