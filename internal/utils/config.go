package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ServerPort string `env:"PORT" envDefault:"8080"`
	Session    SessionConfig
	Chat       ChatConfig
	Store      StoreConfig
	Completion CompletionConfig
	Logging    LoggingConfig
}

type SessionConfig struct {
	CookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"anon_sid"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`
	TTL          time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

type ChatConfig struct {
	MaxTurns        int    `env:"HISTORY_MAX_TURNS" envDefault:"6"`
	MaxMessageRunes int    `env:"MESSAGE_MAX_RUNES" envDefault:"2000"`
	SystemPrompt    string `env:"SYSTEM_PROMPT" envDefault:"You are light-hearted and brief."`
}

type StoreConfig struct {
	Driver        string        `env:"STORE_DRIVER" envDefault:"redis"`
	PurgeInterval time.Duration `env:"STORE_PURGE_INTERVAL" envDefault:"10m"`
	Redis         RedisConfig
	Mongo         MongoConfig
	Postgres      PostgresConfig
}

type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"anon:history:"`
}

type MongoConfig struct {
	URI            string        `env:"MONGO_URI"`
	Database       string        `env:"MONGO_DATABASE" envDefault:"anony"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"5s"`
}

type PostgresConfig struct {
	DSN             string        `env:"POSTGRES_DSN"`
	MaxConns        int32         `env:"POSTGRES_MAX_CONNS" envDefault:"8"`
	MinConns        int32         `env:"POSTGRES_MIN_CONNS" envDefault:"1"`
	MaxConnLifetime time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"POSTGRES_MAX_CONN_IDLE" envDefault:"30m"`
	ConnectTimeout  time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" envDefault:"5s"`
}

type CompletionConfig struct {
	BaseURL string        `env:"COMPLETION_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	APIKey  string        `env:"OPENROUTER_API_KEY"`
	Model   string        `env:"COMPLETION_MODEL"`
	Timeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"8s"`
	Referer string        `env:"COMPLETION_REFERER"`
	Title   string        `env:"COMPLETION_TITLE"`
}

type LoggingConfig struct {
	Level        string `env:"LOG_LEVEL" envDefault:"info"`
	Encoding     string `env:"LOG_ENCODING" envDefault:"console"`
	Development  bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
	EnableCaller bool   `env:"LOG_CALLER" envDefault:"false"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"anony"`
}

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Override adjusts a parsed config before validation.
type Override func(*Config)

// WithStoreDriver pins the store driver regardless of STORE_DRIVER.
func WithStoreDriver(driver string) Override {
	return func(c *Config) { c.Store.Driver = driver }
}

func LoadConfig(overrides ...Override) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	for _, override := range overrides {
		override(cfg)
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Completion.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Completion.BaseURL), "/")
	cfg.Completion.APIKey = strings.TrimSpace(cfg.Completion.APIKey)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Encoding = strings.ToLower(cfg.Logging.Encoding)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	missing := make([]string, 0, 2)

	if c.Completion.APIKey == "" {
		missing = append(missing, "OPENROUTER_API_KEY")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if strings.TrimSpace(c.Store.Redis.Addr) == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	case DriverMongo:
		if strings.TrimSpace(c.Store.Mongo.URI) == "" {
			missing = append(missing, "MONGO_URI")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Store.Postgres.DSN) == "" {
			missing = append(missing, "POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("config: unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.Chat.MaxTurns <= 0 {
		return fmt.Errorf("config: HISTORY_MAX_TURNS must be positive")
	}
	if c.Chat.MaxMessageRunes <= 0 {
		return fmt.Errorf("config: MESSAGE_MAX_RUNES must be positive")
	}
	if c.Completion.Timeout <= 0 {
		return fmt.Errorf("config: COMPLETION_TIMEOUT must be positive")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive")
	}

	return nil
}
