// =============================================================================
// PO Budget Report - Engine
// =============================================================================
//
// Engine is the entry point used by the commands. It combines Filter and
// Aggregate and memoizes the results.
//
// CACHING:
//   Results are cached per engine, keyed by
//     (dataset ID, predicates, group keys, metric, aggregation)
//   The dataset ID is a content hash, so loading a new snapshot always
//   recomputes. The cache is guarded by a mutex and is safe for concurrent
//   use. Callers receive copies and may modify them freely.
//
// Comparisons are not cached; they are computed fresh on each call.
//
// =============================================================================

package engine

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/ginjaninja78/po-budget-report/internal/log"
	"github.com/ginjaninja78/po-budget-report/internal/model"
)

// DefaultCacheSize is the number of results kept when WithCacheSize is not
// given.
const DefaultCacheSize = 128

// Option configures an Engine.
type Option func(*options)

type options struct {
	cacheSize int
	logger    *log.Logger
}

// WithCacheSize bounds the result cache. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(opts []Option) *options {
	o := &options{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.New(log.Config{Level: slog.LevelWarn, Component: log.ComponentEngine})
	}
	return o
}

// Engine runs cached aggregations over datasets.
type Engine struct {
	cache  *resultCache[[]GroupSummary]
	logger *log.Logger
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	o := applyOptions(opts)
	return &Engine{
		cache:  newResultCache[[]GroupSummary](o.cacheSize),
		logger: o.logger.WithComponent(log.ComponentEngine),
	}
}

// Summarize filters ds by preds and aggregates the result by keys.
func (e *Engine) Summarize(ds *model.Dataset, preds Predicates, keys []model.Field, metric model.Field, fn AggFunc) ([]GroupSummary, error) {
	key := cacheKey(ds, preds, keys, string(metric), string(fn))
	return e.cached(key, func() ([]GroupSummary, error) {
		filtered, err := Filter(ds, preds)
		if err != nil {
			return nil, err
		}
		return Aggregate(filtered, keys, metric, fn)
	})
}

// SummarizeDistinct filters ds by preds and counts distinct values of field
// per group.
func (e *Engine) SummarizeDistinct(ds *model.Dataset, preds Predicates, keys []model.Field, field model.Field) ([]GroupSummary, error) {
	key := cacheKey(ds, preds, keys, string(field), "distinct")
	return e.cached(key, func() ([]GroupSummary, error) {
		filtered, err := Filter(ds, preds)
		if err != nil {
			return nil, err
		}
		return CountDistinct(filtered, keys, field)
	})
}

// Stats reports cache usage.
func (e *Engine) Stats() CacheStats {
	return e.cache.stats()
}

// Reset drops every cached result.
func (e *Engine) Reset() {
	e.cache.Purge()
}

func (e *Engine) cached(key string, compute func() ([]GroupSummary, error)) ([]GroupSummary, error) {
	if hit, ok := e.cache.Get(key); ok {
		e.logger.Debug("cache hit", log.FieldCacheKey, key)
		return copyGroups(hit), nil
	}
	out, err := compute()
	if err != nil {
		return nil, err
	}
	e.cache.Set(key, out)
	e.logger.Debug("cache miss", log.FieldCacheKey, key, log.FieldGroups, len(out))
	return copyGroups(out), nil
}

func cacheKey(ds *model.Dataset, preds Predicates, keys []model.Field, parts ...string) string {
	fields := make([]string, len(keys))
	for i, k := range keys {
		fields[i] = string(k)
	}
	return strings.Join([]string{
		ds.ID(),
		preds.Key(),
		strings.Join(fields, ","),
		strings.Join(parts, ","),
	}, "|")
}

func copyGroups(in []GroupSummary) []GroupSummary {
	out := make([]GroupSummary, len(in))
	for i, g := range in {
		g.Keys = slices.Clone(g.Keys)
		out[i] = g
	}
	return out
}
