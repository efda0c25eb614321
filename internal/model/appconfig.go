package model

import "time"

// SolverConfig holds the defaults applied to every solve.
type SolverConfig struct {
	Driver             string        `json:"driver" toml:"driver"`
	Objective          ObjectiveKind `json:"objective" toml:"objective"`
	TimeLimit          Duration      `json:"time_limit" toml:"time_limit"`
	GapTolerance       float64       `json:"gap_tolerance" toml:"gap_tolerance"`
	GridStep           float64       `json:"grid_step" toml:"grid_step"`
	MaxWidthCandidates int           `json:"max_width_candidates" toml:"max_width_candidates"`
	MinContact         float64       `json:"min_contact" toml:"min_contact"`
	WarmStart          bool          `json:"warm_start" toml:"warm_start"`
	Seed               int64         `json:"seed" toml:"seed"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `json:"level" toml:"level"`   // "debug", "info", "warn", "error"
	Format string `json:"format" toml:"format"` // "json" or "console"
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend       string   `json:"backend" toml:"backend"` // "none", "file", "redis"
	Dir           string   `json:"dir" toml:"dir"`
	TTL           Duration `json:"ttl" toml:"ttl"`
	RedisAddr     string   `json:"redis_addr" toml:"redis_addr"`
	RedisPassword string   `json:"redis_password" toml:"redis_password"`
	RedisDB       int      `json:"redis_db" toml:"redis_db"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" toml:"addr"`
}

// AppConfig holds application-wide preferences and default settings.
type AppConfig struct {
	Solver  SolverConfig  `json:"solver" toml:"solver"`
	Logging LoggingConfig `json:"logging" toml:"logging"`
	Cache   CacheConfig   `json:"cache" toml:"cache"`
	Server  ServerConfig  `json:"server" toml:"server"`

	RecentInstances []string `json:"recent_instances" toml:"recent_instances"`
}

// DefaultAppConfig returns an AppConfig populated with sensible defaults.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Solver: SolverConfig{
			Driver:             "branch",
			Objective:          ObjectiveUnusedArea,
			TimeLimit:          Duration(10 * time.Second),
			GapTolerance:       0,
			GridStep:           1.0,
			MaxWidthCandidates: 12,
			MinContact:         1.0,
			WarmStart:          true,
			Seed:               42,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Cache: CacheConfig{
			Backend:   "none",
			TTL:       Duration(24 * time.Hour),
			RedisAddr: "localhost:6379",
		},
		Server:          ServerConfig{Addr: ":8080"},
		RecentInstances: []string{},
	}
}

// AddRecent pushes path to the front of the recent list, capped at 10.
func (c *AppConfig) AddRecent(path string) {
	list := []string{path}
	for _, p := range c.RecentInstances {
		if p != path {
			list = append(list, p)
		}
	}
	if len(list) > 10 {
		list = list[:10]
	}
	c.RecentInstances = list
}

// Duration is a time.Duration that encodes as a string such as "10s".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
