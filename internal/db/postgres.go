package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/patrickwarner/openbidder/internal/models"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS campaigns (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    budget NUMERIC(12,2) NOT NULL CHECK (budget > 0),
    spending NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (spending >= 0 AND spending <= budget)
);

CREATE TABLE IF NOT EXISTS campaign_keywords (
    campaign_id BIGINT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    keyword TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_campaign_keywords_campaign_id ON campaign_keywords (campaign_id);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	ctx := context.Background()
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// LoadCampaigns retrieves all campaigns and their keywords from the database.
func (p *Postgres) LoadCampaigns() ([]models.Campaign, error) {
	rows, err := p.DB.QueryContext(context.Background(),
		`SELECT c.id, c.name, c.budget, c.spending,
		        COALESCE(array_agg(k.keyword) FILTER (WHERE k.keyword IS NOT NULL), '{}')
		 FROM campaigns c
		 LEFT JOIN campaign_keywords k ON k.campaign_id = c.id
		 GROUP BY c.id
		 ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var cs []models.Campaign
	for rows.Next() {
		var c models.Campaign
		var keywords []string
		if err := rows.Scan(&c.ID, &c.Name, &c.Budget, &c.Spending, pq.Array(&keywords)); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		c.Keywords = keywords
		cs = append(cs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return cs, nil
}

// GetCampaign fetches a single campaign with its keywords. Returns
// models.ErrNotFound when the ID does not exist.
func (p *Postgres) GetCampaign(id int64) (*models.Campaign, error) {
	var c models.Campaign
	err := p.DB.QueryRowContext(context.Background(),
		`SELECT id, name, budget, spending FROM campaigns WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Budget, &c.Spending)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query campaign %d: %w", id, err)
	}

	rows, err := p.DB.QueryContext(context.Background(),
		`SELECT keyword FROM campaign_keywords WHERE campaign_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query keywords for campaign %d: %w", id, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		c.Keywords = append(c.Keywords, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return &c, nil
}

// InsertCampaign inserts a new campaign with its keywords and assigns the
// generated ID to the given struct.
func (p *Postgres) InsertCampaign(c *models.Campaign) error {
	ctx := context.Background()
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO campaigns (name, budget, spending) VALUES ($1, $2, 0) RETURNING id`,
		c.Name, c.Budget).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	for _, kw := range c.Keywords {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO campaign_keywords (campaign_id, keyword) VALUES ($1, $2)`,
			c.ID, kw); err != nil {
			return fmt.Errorf("insert keyword %q: %w", kw, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// IncrementSpendingIfNotExceeded atomically adds amount to a campaign's
// spending only if the result stays within budget. It returns the number of
// rows updated: 1 on success, 0 when the condition failed (lost the race or
// budget exhausted). The condition is evaluated inside the single UPDATE so
// two callers racing for the same remaining budget cannot both succeed.
func (p *Postgres) IncrementSpendingIfNotExceeded(ctx context.Context, campaignID int64, amount float64) (int64, error) {
	res, err := p.DB.ExecContext(ctx,
		`UPDATE campaigns SET spending = spending + $2 WHERE id = $1 AND spending + $2 <= budget`,
		campaignID, amount)
	if err != nil {
		return 0, fmt.Errorf("increment spending for campaign %d: %w", campaignID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return rows, nil
}
