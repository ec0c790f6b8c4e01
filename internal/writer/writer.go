package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/perp-research/internal/router"
)

// queueFunc appends the insert for one item to a batch.
type queueFunc[T any] func(b *pgx.Batch, item T)

// Writer consumes items of type T from a router buffer and writes them in
// batches.
type Writer[T any] struct {
	name   string
	cfg    WriterConfig
	logger *slog.Logger

	// Input from the router or poller
	input *router.GrowableBuffer[T]

	// Database
	db    DB
	queue queueFunc[T]

	// Batching
	batch       []T
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

func newWriter[T any](
	name string,
	cfg WriterConfig,
	input *router.GrowableBuffer[T],
	db DB,
	queue queueFunc[T],
	logger *slog.Logger,
) *Writer[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultWriterConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultWriterConfig().FlushInterval
	}
	return &Writer[T]{
		name:   name,
		cfg:    cfg,
		logger: logger.With("writer", name),
		input:  input,
		db:     db,
		queue:  queue,
		batch:  make([]T, 0, cfg.BatchSize),
	}
}

// Name returns the table the writer targets.
func (w *Writer[T]) Name() string {
	return w.name
}

// Start begins consuming items and writing to the database.
func (w *Writer[T]) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the loops, then writes whatever is still buffered using
// ctx for the final flush.
func (w *Writer[T]) Stop(ctx context.Context) error {
	w.logger.Info("stopping writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("writer stop timed out")
		return ctx.Err()
	}

	for _, item := range w.input.DrainTo(0) {
		w.add(item)
	}
	w.flush(ctx)

	w.logger.Info("writer stopped", "inserts", w.Stats().Inserts)
	return nil
}

// Stats returns current metrics.
func (w *Writer[T]) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input buffer and accumulates batches.
func (w *Writer[T]) consumeLoop() {
	defer w.wg.Done()

	for {
		item, ok := w.input.ReceiveContext(w.ctx)
		if !ok {
			return
		}
		if w.add(item) {
			w.flush(w.insertContext())
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer[T]) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.insertContext())
		}
	}
}

// insertContext is the context for inserts issued by the loops. Stop
// cancels the loop context, so an insert already in flight keeps running
// and Stop waits for it instead of dropping the rows.
func (w *Writer[T]) insertContext() context.Context {
	return context.WithoutCancel(w.ctx)
}

// add appends an item and reports whether the batch is full.
func (w *Writer[T]) add(item T) bool {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, item)
	return len(w.batch) >= w.cfg.BatchSize
}

// flush writes the current batch to the database.
func (w *Writer[T]) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]T, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed batch",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert sends every row in one pgx.Batch.
func (w *Writer[T]) batchInsert(ctx context.Context, rows []T) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		w.queue(batch, r)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	return conflicts, nil
}
