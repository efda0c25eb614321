package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. ROOMPLAN_SOLVER_TIME_LIMIT.
const EnvPrefix = "ROOMPLAN"

// DefaultConfigDir returns the default directory for application configuration.
// On all platforms this is ~/.roomplan/
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".roomplan")
}

// DefaultConfigPath returns the default path for the application config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

// DefaultCacheDir is used when cache.dir is empty.
func DefaultCacheDir() string {
	return filepath.Join(DefaultConfigDir(), "cache")
}

// SaveAppConfig persists an AppConfig to the given path, as JSON when the
// extension is .json and as TOML otherwise. It creates any missing parent
// directories automatically.
func SaveAppConfig(path string, config model.AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	var data []byte
	if isJSON(path) {
		var err error
		if data, err = json.MarshalIndent(config, "", "  "); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	} else {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		data = buf.Bytes()
	}
	return os.WriteFile(path, data, 0644)
}

// LoadAppConfig reads an AppConfig from the given path on top of the
// defaults, so keys missing from the file keep their default value.
// If the file does not exist, it returns DefaultAppConfig with no error.
func LoadAppConfig(path string) (model.AppConfig, error) {
	config := model.DefaultAppConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return model.AppConfig{}, err
	}
	if isJSON(path) {
		err = json.Unmarshal(data, &config)
	} else {
		_, err = toml.Decode(string(data), &config)
	}
	if err != nil {
		return model.AppConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	// Ensure RecentInstances is never nil
	if config.RecentInstances == nil {
		config.RecentInstances = []string{}
	}
	return config, nil
}

// LoadAppConfigWithEnv loads the file at path and applies environment
// overrides on top.
func LoadAppConfigWithEnv(path string) (model.AppConfig, error) {
	config, err := LoadAppConfig(path)
	if err != nil {
		return model.AppConfig{}, err
	}
	if err := ApplyEnv(&config, os.LookupEnv); err != nil {
		return model.AppConfig{}, err
	}
	return config, nil
}

// ApplyEnv overrides config fields from variables named
// ROOMPLAN_<SECTION>_<KEY>. Empty values are ignored.
func ApplyEnv(c *model.AppConfig, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + "_" + key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}
	bad := func(key, v string, err error) error {
		return fmt.Errorf("invalid %s_%s=%q: %w", EnvPrefix, key, v, err)
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"SOLVER_DRIVER", &c.Solver.Driver},
		{"LOGGING_LEVEL", &c.Logging.Level},
		{"LOGGING_FORMAT", &c.Logging.Format},
		{"CACHE_BACKEND", &c.Cache.Backend},
		{"CACHE_DIR", &c.Cache.Dir},
		{"CACHE_REDIS_ADDR", &c.Cache.RedisAddr},
		{"CACHE_REDIS_PASSWORD", &c.Cache.RedisPassword},
		{"SERVER_ADDR", &c.Server.Addr},
	}
	for _, s := range strs {
		if v, ok := get(s.key); ok {
			*s.dst = v
		}
	}

	if v, ok := get("SOLVER_OBJECTIVE"); ok {
		kind, err := model.ParseObjective(v)
		if err != nil {
			return bad("SOLVER_OBJECTIVE", v, err)
		}
		c.Solver.Objective = kind
	}

	durations := []struct {
		key string
		dst *model.Duration
	}{
		{"SOLVER_TIME_LIMIT", &c.Solver.TimeLimit},
		{"CACHE_TTL", &c.Cache.TTL},
	}
	for _, d := range durations {
		if v, ok := get(d.key); ok {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return bad(d.key, v, err)
			}
			*d.dst = model.Duration(parsed)
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"SOLVER_GAP_TOLERANCE", &c.Solver.GapTolerance},
		{"SOLVER_GRID_STEP", &c.Solver.GridStep},
		{"SOLVER_MIN_CONTACT", &c.Solver.MinContact},
	}
	for _, f := range floats {
		if v, ok := get(f.key); ok {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return bad(f.key, v, err)
			}
			*f.dst = parsed
		}
	}

	if v, ok := get("SOLVER_MAX_WIDTH_CANDIDATES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return bad("SOLVER_MAX_WIDTH_CANDIDATES", v, err)
		}
		c.Solver.MaxWidthCandidates = n
	}
	if v, ok := get("SOLVER_SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return bad("SOLVER_SEED", v, err)
		}
		c.Solver.Seed = n
	}
	if v, ok := get("SOLVER_WARM_START"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return bad("SOLVER_WARM_START", v, err)
		}
		c.Solver.WarmStart = b
	}
	if v, ok := get("CACHE_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return bad("CACHE_REDIS_DB", v, err)
		}
		c.Cache.RedisDB = n
	}
	return nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
