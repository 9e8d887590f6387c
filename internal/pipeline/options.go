package pipeline

import (
	"context"

	"go.uber.org/zap"

	"saftetl/internal/table"
	"saftetl/internal/tableio"
	"saftetl/internal/transformer/builtin"
)

// DefaultFullSparseThreshold is the sparse-column threshold Run uses when
// full cleaning is requested.
const DefaultFullSparseThreshold = 0.7

type options struct {
	prefix        string
	dataset       string
	read          tableio.ReadOptions
	normalize     bool
	fullThreshold float64
	log           *zap.Logger
	reader        Reader
	dateCol       string
	amountCol     string
	types         map[string]table.Kind
	dedupeKeys    []string
}

// Reader loads a source file into a table. tableio.Read is the default;
// cache.Cache.Read is a drop-in that skips unchanged files.
type Reader func(ctx context.Context, path string, opts tableio.ReadOptions) (*table.Table, error)

func defaultOptions() options {
	return options{
		prefix:        builtin.DefaultPrefix,
		dataset:       "saft",
		fullThreshold: DefaultFullSparseThreshold,
		log:           zap.NewNop(),
		reader:        tableio.Read,
	}
}

// Option configures a Pipeline.
type Option func(*options)

// WithPrefix sets the column prefix StripPrefixes removes.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithDataset names the dataset in logs and metrics.
func WithDataset(name string) Option {
	return func(o *options) {
		if name != "" {
			o.dataset = name
		}
	}
}

// WithReadOptions passes sheet and delimiter settings to the loader.
func WithReadOptions(r tableio.ReadOptions) Option {
	return func(o *options) { o.read = r }
}

// WithNormalize trims text cells right after loading.
func WithNormalize(on bool) Option {
	return func(o *options) { o.normalize = on }
}

// WithFullSparseThreshold overrides the threshold Run passes to DropSparse
// when full cleaning is requested.
func WithFullSparseThreshold(th float64) Option {
	return func(o *options) { o.fullThreshold = th }
}

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithReader replaces the source loader. Nil keeps tableio.Read.
func WithReader(r Reader) Option {
	return func(o *options) {
		if r != nil {
			o.reader = r
		}
	}
}

// WithFilterColumns sets the date and amount columns Run filters on. Empty
// names keep the defaults.
func WithFilterColumns(dateCol, amountCol string) Option {
	return func(o *options) {
		o.dateCol = dateCol
		o.amountCol = amountCol
	}
}

// WithTypes sets the coercion map Run applies. Nil keeps DefaultTypes.
func WithTypes(types map[string]table.Kind) Option {
	return func(o *options) { o.types = types }
}

// WithDedupeKeys restricts Run's duplicate removal to the given columns.
func WithDedupeKeys(keys ...string) Option {
	return func(o *options) { o.dedupeKeys = keys }
}
