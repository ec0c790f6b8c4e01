package writer

import (
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/perp-research/internal/database"
	"github.com/rickgao/perp-research/internal/router"
)

const insertSnapshot = `
	INSERT INTO market_snapshots (exchange, dex, symbol, base, time,
		mark_price, oracle_price, volume_24h_usd, open_interest, funding_rate, poll_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (exchange, dex, symbol, time) DO NOTHING`

// SnapshotWriter writes polled market snapshots.
type SnapshotWriter = Writer[router.SnapshotMsg]

// NewSnapshotWriter creates a writer for market snapshots.
func NewSnapshotWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[router.SnapshotMsg],
	db DB,
	logger *slog.Logger,
) *SnapshotWriter {
	return newWriter(database.TableSnapshots, cfg, input, db, queueSnapshot, logger)
}

func queueSnapshot(b *pgx.Batch, m router.SnapshotMsg) {
	s := m.Snapshot
	b.Queue(insertSnapshot,
		s.Exchange, s.Dex, s.Symbol, s.Base, s.Time.UTC(),
		numeric(s.Price()), numeric(s.OraclePrice), numeric(s.Volume24hUSD),
		numeric(s.OpenInterest), numeric(s.FundingRate), m.PollID.String(),
	)
}
