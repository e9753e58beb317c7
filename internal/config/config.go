package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration tree, loaded from YAML with
// PUTT_-prefixed environment overrides.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	LeasePeriod     time.Duration `mapstructure:"lease_period"`
	MaxSessions     int           `mapstructure:"max_sessions"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type GameConfig struct {
	TickRate         int           `mapstructure:"tick_rate"`
	SnapshotRate     int           `mapstructure:"snapshot_rate"`
	MaxStrikePower   float64       `mapstructure:"max_strike_power"`
	HazardResetDelay float64       `mapstructure:"hazard_reset_delay"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	PersistWorkers   int           `mapstructure:"persist_workers"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	URL         string        `mapstructure:"url"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Issuer    string        `mapstructure:"issuer"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.lease_period", "5m")
	v.SetDefault("server.max_sessions", 1000)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("game.tick_rate", 60)
	v.SetDefault("game.snapshot_rate", 20)
	v.SetDefault("game.max_strike_power", 8.0)
	v.SetDefault("game.hazard_reset_delay", 0.8)
	v.SetDefault("game.idle_timeout", "10m")
	v.SetDefault("game.persist_workers", 4)

	v.SetDefault("database.url", "postgres://localhost:5432/putt?sslmode=disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.snapshot_ttl", "30m")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.issuer", "putt-server")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads the configuration file at path, applies environment overrides
// (PUTT_SERVER_ADDRESS and friends), and validates the result. A missing file
// is not an error; defaults plus environment cover local development.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PUTT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Game.TickRate <= 0 {
		return fmt.Errorf("game.tick_rate must be positive, got %d", c.Game.TickRate)
	}
	if c.Game.SnapshotRate <= 0 || c.Game.SnapshotRate > c.Game.TickRate {
		return fmt.Errorf("game.snapshot_rate must be in 1..%d, got %d", c.Game.TickRate, c.Game.SnapshotRate)
	}
	if c.Game.MaxStrikePower <= 0 {
		return fmt.Errorf("game.max_strike_power must be positive")
	}
	if c.Game.PersistWorkers <= 0 {
		return fmt.Errorf("game.persist_workers must be positive")
	}
	if c.Server.LeasePeriod <= 0 {
		return fmt.Errorf("server.lease_period must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
