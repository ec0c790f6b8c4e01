package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type boolRow struct {
	v   bool
	err error
}

func (r boolRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*bool) = r.v
	return nil
}

type fakeExecer struct {
	timescale bool
	failOn    string
	execs     []string
	args      [][]any
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return pgconn.CommandTag{}, errors.New("exec failed")
	}
	f.execs = append(f.execs, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeExecer) QueryRow(context.Context, string, ...any) pgx.Row {
	return boolRow{v: f.timescale}
}

func TestEnsureSchema(t *testing.T) {
	t.Run("plain postgres", func(t *testing.T) {
		db := &fakeExecer{}
		require.NoError(t, EnsureSchema(context.Background(), db))
		require.Len(t, db.execs, 3)
		assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS candles")
		assert.Contains(t, db.execs[1], "funding_rates")
		assert.Contains(t, db.execs[2], "market_snapshots")
	})

	t.Run("timescale converts hypertables", func(t *testing.T) {
		db := &fakeExecer{timescale: true}
		require.NoError(t, EnsureSchema(context.Background(), db))
		require.Len(t, db.execs, 3+len(Hypertables))
		assert.Equal(t, []any{TableCandles, "open_time"}, db.args[3])
		assert.Equal(t, []any{TableSnapshots, "time"}, db.args[5])
	})

	t.Run("ddl error", func(t *testing.T) {
		db := &fakeExecer{failOn: "funding_rates"}
		err := EnsureSchema(context.Background(), db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create schema")
	})
}
