// Package cache stores solve results keyed by the problem they answer.
//
// Backends share the byte-level Cache interface: NullCache disables caching,
// FileCache keeps entries under a directory for CLI use and RedisCache shares
// them between API servers. Results wraps a backend with the layout codec and
// the rule that only definitive results are kept.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// Cache is a byte-level key/value store with expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear drops every entry owned by the cache.
	Clear(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by cfg.
func Open(cfg model.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return NewNullCache(), nil
	case "file":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("cache backend %q needs a directory", cfg.Backend)
		}
		return NewFileCache(cfg.Dir)
	case "redis":
		return NewRedisCache(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}

// Hash computes a SHA-256 hash of the input data as 64 hex characters.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// hashKey generates a key of the form prefix:hash(parts...).
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// modelSettings are the solver settings that change the formulation or the
// oracle, and with them the answer.
type modelSettings struct {
	Driver             string  `json:"driver"`
	GridStep           float64 `json:"grid_step"`
	MaxWidthCandidates int     `json:"max_width_candidates"`
	MinContact         float64 `json:"min_contact"`
}

// Key identifies a solve. Instance name and ID are ignored so renamed copies
// of one problem share entries. The driver and build settings in cfg are part
// of the key; its objective, time limit and gap are not, since the call
// passes those explicitly.
func Key(inst model.Instance, kind model.ObjectiveKind, timeLimit time.Duration, gap float64, cfg model.SolverConfig) string {
	norm := inst.Clone()
	norm.ID, norm.Name = "", ""
	settings := modelSettings{
		Driver:             cfg.Driver,
		GridStep:           cfg.GridStep,
		MaxWidthCandidates: cfg.MaxWidthCandidates,
		MinContact:         cfg.MinContact,
	}
	return hashKey("layout", norm, kind, timeLimit.String(), gap, settings)
}
