package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// Results stores layout results on top of a Cache.
type Results struct {
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// ResultsOption configures Results.
type ResultsOption func(*Results)

// WithLogger reports cache failures that Solve recovers from.
func WithLogger(l *zap.Logger) ResultsOption {
	return func(r *Results) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResults(c Cache, ttl time.Duration, opts ...ResultsOption) *Results {
	if c == nil {
		c = NewNullCache()
	}
	r := &Results{cache: c, ttl: ttl, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Solve answers from the cache when it can and otherwise calls solve,
// keeping a definitive outcome. Cache failures are logged and never fail the
// solve.
func (r *Results) Solve(ctx context.Context, key string, solve func(context.Context) (model.LayoutResult, error)) (model.LayoutResult, bool, error) {
	res, ok, err := r.Lookup(ctx, key)
	if err != nil {
		r.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		r.logger.Debug("cache hit", zap.String("key", key))
		return res, true, nil
	}

	res, err = solve(ctx)
	if err != nil {
		return model.LayoutResult{}, false, err
	}
	if stored, err := r.Store(ctx, key, res); err != nil {
		r.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	} else if stored {
		r.logger.Debug("cached result", zap.String("key", key), zap.String("status", string(res.Status)))
	}
	return res, false, nil
}

// Lookup returns a cached result for key. Undecodable entries are dropped and
// reported as misses.
func (r *Results) Lookup(ctx context.Context, key string) (model.LayoutResult, bool, error) {
	data, ok, err := r.cache.Get(ctx, key)
	if err != nil || !ok {
		return model.LayoutResult{}, false, err
	}
	var res model.LayoutResult
	if err := json.Unmarshal(data, &res); err != nil {
		_ = r.cache.Delete(ctx, key)
		return model.LayoutResult{}, false, nil
	}
	return res, true, nil
}

// Store keeps res when it is definitive and reports whether it was written.
func (r *Results) Store(ctx context.Context, key string, res model.LayoutResult) (bool, error) {
	if !res.Definitive() {
		return false, nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return false, err
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		return false, err
	}
	return true, nil
}

// Clear empties the underlying cache.
func (r *Results) Clear(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

func (r *Results) Close() error {
	return r.cache.Close()
}
