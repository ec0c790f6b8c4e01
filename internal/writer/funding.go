package writer

import (
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/perp-research/internal/database"
	"github.com/rickgao/perp-research/internal/router"
)

const insertFunding = `
	INSERT INTO funding_rates (exchange, symbol, time, rate, premium, mark_price, is_settlement)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (exchange, symbol, time) DO NOTHING`

// FundingWriter writes polled funding samples.
type FundingWriter = Writer[router.FundingMsg]

// NewFundingWriter creates a writer for funding samples.
func NewFundingWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[router.FundingMsg],
	db DB,
	logger *slog.Logger,
) *FundingWriter {
	return newWriter(database.TableFunding, cfg, input, db, queueFunding, logger)
}

func queueFunding(b *pgx.Batch, m router.FundingMsg) {
	f := m.Funding
	b.Queue(insertFunding,
		f.Exchange, f.Symbol, f.Time.UTC(),
		numeric(f.Rate), numeric(f.Premium), numeric(f.MarkPrice), f.IsSettlement,
	)
}
