// internal/config/config.go
package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"
)

// Config is the full service configuration, decoded from the environment.
// A .env file is loaded beforehand by godotenv autoload in main.
type Config struct {
	Env  string `env:"BLACKJACK_ENV,default=development"`
	Port string `env:"PORT,default=8080"`

	// AllowedOrigins is a comma-separated CORS allowlist, honored only in
	// production; development allows everything.
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default="`

	// ArchiveEnabled turns on the Postgres settlement archive; the server
	// runs purely in memory without it.
	ArchiveEnabled bool `env:"ARCHIVE_ENABLED,default=false"`

	Postgres PostgresConfig
	Redis    RedisConfig

	// SweepIntervalMS is the cadence of the deadline sweeper.
	SweepIntervalMS int `env:"SWEEP_INTERVAL_MS,default=1000"`
}

// PostgresConfig carries the archive database connection settings.
type PostgresConfig struct {
	User     string `env:"POSTGRES_USER,default=postgres"`
	Password string `env:"POSTGRES_PASSWORD,default="`
	Host     string `env:"PG_HOST,default=localhost"`
	Port     string `env:"PG_PORT,default=5432"`
	Database string `env:"PG_DATABASE,default=blackjack"`
}

// URL renders the pgx connection string.
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		p.User, p.Password, p.Host, p.Port, p.Database)
}

// RedisConfig carries the historian queue connection settings.
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR,default=localhost:6379"`
	DB        int    `env:"REDIS_DB,default=0"`
	QueueName string `env:"HISTORIAN_QUEUE_NAME,default=blackjack_events"`
}

// Load decodes the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config from env: %w", err)
	}
	return cfg, nil
}

// Production reports whether the service runs with production hardening.
func (c Config) Production() bool {
	return c.Env == "production"
}
