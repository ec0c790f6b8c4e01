package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgxpool.Pool used for DDL.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Table names.
const (
	TableCandles   = "candles"
	TableFunding   = "funding_rates"
	TableSnapshots = "market_snapshots"
)

// Hypertables lists each table with its time column.
var Hypertables = []struct {
	Table      string
	TimeColumn string
}{
	{TableCandles, "open_time"},
	{TableFunding, "time"},
	{TableSnapshots, "time"},
}

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS candles (
		exchange     TEXT        NOT NULL,
		symbol       TEXT        NOT NULL,
		interval     TEXT        NOT NULL,
		open_time    TIMESTAMPTZ NOT NULL,
		close_time   TIMESTAMPTZ,
		open         NUMERIC     NOT NULL,
		high         NUMERIC     NOT NULL,
		low          NUMERIC     NOT NULL,
		close        NUMERIC     NOT NULL,
		volume       NUMERIC     NOT NULL,
		quote_volume NUMERIC,
		trades       BIGINT,
		received_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (exchange, symbol, interval, open_time)
	)`,
	`CREATE TABLE IF NOT EXISTS funding_rates (
		exchange      TEXT        NOT NULL,
		symbol        TEXT        NOT NULL,
		time          TIMESTAMPTZ NOT NULL,
		rate          NUMERIC     NOT NULL,
		premium       NUMERIC,
		mark_price    NUMERIC,
		is_settlement BOOLEAN     NOT NULL DEFAULT false,
		PRIMARY KEY (exchange, symbol, time)
	)`,
	`CREATE TABLE IF NOT EXISTS market_snapshots (
		exchange         TEXT        NOT NULL,
		dex              TEXT        NOT NULL DEFAULT '',
		symbol           TEXT        NOT NULL,
		base             TEXT        NOT NULL,
		time             TIMESTAMPTZ NOT NULL,
		mark_price       NUMERIC,
		oracle_price     NUMERIC,
		volume_24h_usd   NUMERIC,
		open_interest    NUMERIC,
		funding_rate     NUMERIC,
		poll_id          UUID,
		PRIMARY KEY (exchange, dex, symbol, time)
	)`,
}

// EnsureSchema creates the gatherer tables and, when the timescaledb
// extension is installed, converts them to hypertables.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	var hasTimescale bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'timescaledb')`,
	).Scan(&hasTimescale)
	if err != nil {
		return fmt.Errorf("check timescaledb extension: %w", err)
	}
	if !hasTimescale {
		return nil
	}

	for _, h := range Hypertables {
		_, err := db.Exec(ctx,
			`SELECT create_hypertable($1, $2, if_not_exists => TRUE, migrate_data => TRUE)`,
			h.Table, h.TimeColumn,
		)
		if err != nil {
			return fmt.Errorf("create hypertable %s: %w", h.Table, err)
		}
	}
	return nil
}
