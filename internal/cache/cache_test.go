package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/piwi3910/RoomPlan/internal/model"
)

func testInstance() model.Instance {
	inst := model.NewInstance("Studio", 10, 8)
	inst.Rooms = []model.RoomSpec{model.NewRoom("A", 4, 3), model.NewRoom("B", 2, 2)}
	return inst
}

func solvedResult(certified bool) model.LayoutResult {
	l := model.NewLayout(model.Boundary{Width: 10, Height: 8})
	l.Place("A", model.Rect{Width: 4, Height: 3})
	l.Place("B", model.Rect{X: 4, Width: 2, Height: 2})
	res := model.Solved(model.ObjectivePerimeter, l, certified)
	res.ObjectiveValue = 22
	res.Stats = model.SolveStats{Oracle: "branch", Nodes: 5, Elapsed: time.Second}
	return res
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client, "")
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

// backends runs the shared contract against every real backend.
func backends(t *testing.T) map[string]Cache {
	file, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	_, rc := setupTestRedis(t)
	return map[string]Cache{"file": file, "redis": rc}
}

func TestCache_Contract(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := c.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.Set(ctx, "k1", []byte("one"), 0))
			require.NoError(t, c.Set(ctx, "k2", []byte("two"), time.Hour))

			data, ok, err := c.Get(ctx, "k1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "one", string(data))

			require.NoError(t, c.Delete(ctx, "k1"))
			require.NoError(t, c.Delete(ctx, "k1"), "deleting twice is fine")
			_, ok, _ = c.Get(ctx, "k1")
			assert.False(t, ok)

			require.NoError(t, c.Clear(ctx))
			_, ok, _ = c.Get(ctx, "k2")
			assert.False(t, ok)
		})
	}
}

func TestFileCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Nanosecond))
	time.Sleep(time.Millisecond)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	require.NoError(t, err)

	fc := c.(*FileCache)
	path := fc.path("k")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "corrupt entry removed")
}

func TestRedisCache_TTLAndPrefix(t *testing.T) {
	ctx := context.Background()
	mr, c := setupTestRedis(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists(DefaultRedisPrefix+"k"))
	assert.Equal(t, time.Minute, mr.TTL(DefaultRedisPrefix+"k"))

	require.NoError(t, mr.Set("other:key", "keep"))
	require.NoError(t, c.Clear(ctx))
	assert.False(t, mr.Exists(DefaultRedisPrefix+"k"))
	assert.True(t, mr.Exists("other:key"), "keys outside the prefix survive Clear")

	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)
	_, ok, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Unreachable(t *testing.T) {
	mr, c := setupTestRedis(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Clear(ctx))
	assert.NoError(t, c.Close())
}

func TestOpen(t *testing.T) {
	c, err := Open(model.CacheConfig{Backend: "none"})
	require.NoError(t, err)
	assert.IsType(t, &NullCache{}, c)

	c, err = Open(model.CacheConfig{Backend: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileCache{}, c)

	_, err = Open(model.CacheConfig{Backend: "file"})
	assert.Error(t, err)

	c, err = Open(model.CacheConfig{Backend: "redis", RedisAddr: "localhost:0"})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)
	assert.NoError(t, c.Close())

	_, err = Open(model.CacheConfig{Backend: "memcached"})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	inst := testInstance()
	cfg := model.DefaultAppConfig().Solver
	base := Key(inst, model.ObjectivePerimeter, 10*time.Second, 0, cfg)
	assert.Regexp(t, `^layout:[0-9a-f]{64}$`, base)

	renamed := inst.Clone()
	renamed.Name, renamed.ID = "Copy", "other"
	assert.Equal(t, base, Key(renamed, model.ObjectivePerimeter, 10*time.Second, 0, cfg))

	assert.NotEqual(t, base, Key(inst, model.ObjectiveUnusedArea, 10*time.Second, 0, cfg))
	assert.NotEqual(t, base, Key(inst, model.ObjectivePerimeter, 5*time.Second, 0, cfg))
	assert.NotEqual(t, base, Key(inst, model.ObjectivePerimeter, 10*time.Second, 0.05, cfg))

	bigger := inst.Clone()
	bigger.Rooms[0].MinWidth = 5
	assert.NotEqual(t, base, Key(bigger, model.ObjectivePerimeter, 10*time.Second, 0, cfg))
}

func TestKey_SolverSettings(t *testing.T) {
	inst := testInstance()
	cfg := model.DefaultAppConfig().Solver
	base := Key(inst, model.ObjectiveUnusedArea, 10*time.Second, 0, cfg)

	finer := cfg
	finer.GridStep = cfg.GridStep / 2
	assert.NotEqual(t, base, Key(inst, model.ObjectiveUnusedArea, 10*time.Second, 0, finer))

	capped := cfg
	capped.MaxWidthCandidates = cfg.MaxWidthCandidates + 4
	assert.NotEqual(t, base, Key(inst, model.ObjectiveUnusedArea, 10*time.Second, 0, capped))

	contact := cfg
	contact.MinContact = cfg.MinContact + 0.5
	assert.NotEqual(t, base, Key(inst, model.ObjectiveUnusedArea, 10*time.Second, 0, contact))

	driver := cfg
	driver.Driver = "highs"
	assert.NotEqual(t, base, Key(inst, model.ObjectiveUnusedArea, 10*time.Second, 0, driver))

	// Objective and budget defaults are passed to Key directly.
	other := cfg
	other.Objective = model.ObjectiveAdjacency
	other.TimeLimit = model.Duration(time.Minute)
	other.Seed = 99
	assert.Equal(t, base, Key(inst, model.ObjectiveUnusedArea, 10*time.Second, 0, other))
}

func TestResults_StoresOnlyDefinitive(t *testing.T) {
	ctx := context.Background()
	_, rc := setupTestRedis(t)
	r := NewResults(rc, time.Hour)

	tests := []struct {
		name   string
		res    model.LayoutResult
		stored bool
	}{
		{"certified", solvedResult(true), true},
		{"incumbent", solvedResult(false), false},
		{"infeasible", model.Infeasible(model.ObjectivePerimeter), true},
		{"timed out", model.TimedOutNoIncumbent(model.ObjectivePerimeter), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored, err := r.Store(ctx, tt.name, tt.res)
			require.NoError(t, err)
			assert.Equal(t, tt.stored, stored)

			got, ok, err := r.Lookup(ctx, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.stored, ok)
			if ok {
				assert.Equal(t, tt.res, got)
			}
		})
	}
}

func TestResults_UndecodableEntry(t *testing.T) {
	ctx := context.Background()
	mr, rc := setupTestRedis(t)
	r := NewResults(rc, 0)

	require.NoError(t, mr.Set(DefaultRedisPrefix+"bad", "not json"))
	_, ok, err := r.Lookup(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(DefaultRedisPrefix+"bad"))
}

func TestResults_NilCache(t *testing.T) {
	r := NewResults(nil, 0)
	stored, err := r.Store(context.Background(), "k", solvedResult(true))
	require.NoError(t, err)
	assert.True(t, stored)
	_, ok, err := r.Lookup(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok, "null cache keeps nothing")
}

func TestResults_Solve(t *testing.T) {
	ctx := context.Background()
	_, rc := setupTestRedis(t)
	r := NewResults(rc, time.Hour, WithLogger(zaptest.NewLogger(t)))

	calls := 0
	solve := func(res model.LayoutResult) func(context.Context) (model.LayoutResult, error) {
		return func(context.Context) (model.LayoutResult, error) {
			calls++
			return res, nil
		}
	}

	res, hit, err := r.Solve(ctx, "certified", solve(solvedResult(true)))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, res.CertifiedOptimal)

	res, hit, err = r.Solve(ctx, "certified", solve(solvedResult(true)))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, res.IsSolved())
	assert.Equal(t, 1, calls)

	for i := 0; i < 2; i++ {
		_, hit, err = r.Solve(ctx, "incumbent", solve(solvedResult(false)))
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, 3, calls, "non-definitive results are solved again")

	_, _, err = r.Solve(ctx, "failing", func(context.Context) (model.LayoutResult, error) {
		return model.LayoutResult{}, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestResults_SolveSurvivesBrokenCache(t *testing.T) {
	mr, rc := setupTestRedis(t)
	mr.Close()
	r := NewResults(rc, time.Hour)

	res, hit, err := r.Solve(context.Background(), "k", func(context.Context) (model.LayoutResult, error) {
		return solvedResult(true), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, res.IsSolved())
}
