package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/campaign-engine/internal/domain"
)

// PostgresStore implements CampaignStore against PostgreSQL. Each row
// is one campaign; position preserves the shop's stored order.
type PostgresStore struct{ db *sql.DB }

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// OpenPostgres connects with the lib/pq driver and verifies the
// connection.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

// Schema is the DDL the store expects; applied out of band.
const Schema = `
CREATE TABLE IF NOT EXISTS marketing_campaigns (
	shop        TEXT        NOT NULL,
	position    INT         NOT NULL,
	id          TEXT        NOT NULL,
	subject     TEXT        NOT NULL,
	body        TEXT        NOT NULL,
	segment     TEXT        NOT NULL DEFAULT '',
	template_id TEXT        NOT NULL DEFAULT '',
	recipients  TEXT[]      NOT NULL DEFAULT '{}',
	send_at     TIMESTAMPTZ NOT NULL,
	sent_at     TIMESTAMPTZ,
	PRIMARY KEY (shop, id)
);
CREATE INDEX IF NOT EXISTS marketing_campaigns_due
	ON marketing_campaigns (send_at) WHERE sent_at IS NULL;
`

func (s *PostgresStore) ReadCampaigns(ctx context.Context, shop string) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, body, segment, template_id, recipients, send_at, sent_at
		FROM marketing_campaigns
		WHERE shop = $1
		ORDER BY position
	`, shop)
	if err != nil {
		return nil, fmt.Errorf("read campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []domain.Campaign{}
	for rows.Next() {
		c := domain.Campaign{Shop: shop}
		var recipients pq.StringArray
		var sentAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.Subject, &c.Body, &c.Segment, &c.TemplateID,
			&recipients, &c.SendAt, &sentAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		c.Recipients = recipients
		if sentAt.Valid {
			t := sentAt.Time.UTC()
			c.SentAt = &t
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read campaigns: %w", err)
	}
	return campaigns, nil
}

// WriteCampaigns replaces the shop's rows in one transaction.
func (s *PostgresStore) WriteCampaigns(ctx context.Context, shop string, campaigns []domain.Campaign) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write campaigns: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM marketing_campaigns WHERE shop = $1`, shop); err != nil {
		return fmt.Errorf("clear campaigns: %w", err)
	}

	for i, c := range campaigns {
		var sentAt interface{}
		if c.SentAt != nil {
			sentAt = *c.SentAt
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO marketing_campaigns
				(shop, position, id, subject, body, segment, template_id, recipients, send_at, sent_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, shop, i, c.ID, c.Subject, c.Body, c.Segment, c.TemplateID,
			pq.Array(c.Recipients), c.SendAt, sentAt); err != nil {
			return fmt.Errorf("insert campaign %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write campaigns: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListShops(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT shop FROM marketing_campaigns ORDER BY shop`)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	var shops []string
	for rows.Next() {
		var shop string
		if err := rows.Scan(&shop); err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, shop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	return shops, nil
}
