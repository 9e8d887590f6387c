package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"saftetl/internal/ddl"
	"saftetl/internal/metrics"
	"saftetl/internal/table"
	"saftetl/pkg/records"
)

// CopyFn abstracts a backend's bulk insert. It inserts rows aligned to
// columns and returns the number of rows written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// Option tunes the loader.
type Option func(*loadOptions)

type loadOptions struct {
	log     *zap.Logger
	dataset string
}

// WithLogger sets the logger used for per-batch progress lines.
func WithLogger(l *zap.Logger) Option {
	return func(o *loadOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithDataset labels batch metrics.
func WithDataset(name string) Option {
	return func(o *loadOptions) { o.dataset = name }
}

func resolve(opts []Option) loadOptions {
	o := loadOptions{log: zap.NewNop(), dataset: "saft"}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the total reported by
// copyFn and the first error encountered, or ctx.Err() when canceled.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
	opts ...Option,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	o := resolve(opts)

	var (
		total     int64
		batches   int
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			o.log.Error("batch copy failed", zap.Int64("inserted", n), zap.Int64("total", total), zap.Error(err))
			return err
		}

		batches++
		metrics.RecordBatches(o.dataset, 1)
		now := time.Now()
		since := now.Sub(lastFlush)
		rps := 0.0
		if since > 0 {
			rps = float64(n) / since.Seconds()
		}
		o.log.Debug("batch loaded",
			zap.Int("batch", batches),
			zap.Int64("inserted", n),
			zap.Int64("total", total),
			zap.Float64("rows_per_sec", rps),
			zap.Duration("elapsed", now.Sub(start)),
		)
		lastFlush = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				o.log.Info("load finished", zap.Int("batches", batches), zap.Int64("rows", total))
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// LoadTable streams the rows of t into repo, reading values from
// def.Sources() and writing them under def.Names(). A producer goroutine
// feeds the batcher so conversion overlaps with database round-trips.
func LoadTable(ctx context.Context, repo Repository, def ddl.TableDef, t *table.Table, batchSize int, opts ...Option) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	sources := def.Sources()
	in := make(chan []any, batchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(in)
		for _, r := range t.Rows() {
			row := make([]any, len(sources))
			for i, c := range sources {
				row[i] = sqlValue(r[c])
			}
			select {
			case in <- row:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var total int64
	g.Go(func() error {
		n, err := LoadBatches(gctx, def.Names(), in, batchSize, repo.CopyFrom, opts...)
		total = n
		return err
	})

	err := g.Wait()
	return total, err
}

// sqlValue maps a cell to a driver argument. Empty strings are null, as
// everywhere else in the table model.
func sqlValue(v any) any {
	if records.IsNull(v) {
		return nil
	}
	switch t := v.(type) {
	case int:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.UTC()
	}
	return v
}

// Load opens the backend for cfg and writes t into cfg.Table: it creates the
// table when cfg.AutoCreateTable is set, empties it when cfg.Truncate is set,
// then streams the rows in batches. It returns the number of rows written.
func Load(ctx context.Context, cfg Config, t *table.Table, opts ...Option) (int64, error) {
	if t == nil {
		return 0, fmt.Errorf("storage: nil table")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5000
	}
	repo, err := New(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	def := ddl.FromTable(cfg.Table, t)
	if cfg.AutoCreateTable {
		if err := EnsureTable(ctx, cfg.Kind, repo, def); err != nil {
			return 0, err
		}
	}
	if cfg.Truncate {
		if err := Truncate(ctx, cfg.Kind, repo, cfg.Table); err != nil {
			return 0, err
		}
	}
	return LoadTable(ctx, repo, def, t, cfg.BatchSize, opts...)
}
