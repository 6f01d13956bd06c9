package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration.
type Config struct {
	Env     string        `yaml:"env"    env:"GO_ENV" env-default:"development"`
	Domain  string        `yaml:"domain" env:"DOMAIN"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Redis   RedisConfig   `yaml:"redis"`
	Auth    AuthConfig    `yaml:"auth"`
	Issues  IssueConfig   `yaml:"issues"`
	CORS    CORSConfig    `yaml:"cors"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	RequestTimeout  time.Duration `yaml:"request_timeout"  env:"SERVER_REQUEST_TIMEOUT"  env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// StorageConfig selects the issue store. "memory" keeps everything in
// process and is meant for local development.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"             env:"MONGODB_URI"`
	Database       string        `yaml:"database"        env:"MONGODB_DATABASE"        env-default:"civicreport"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MONGODB_CONNECT_TIMEOUT" env-default:"10s"`
}

// RedisConfig configures the issue creation rate limiter. An empty address
// disables rate limiting.
type RedisConfig struct {
	Address     string `yaml:"address"      env:"REDIS_ADDRESS"`
	Password    string `yaml:"password"     env:"REDIS_PASSWORD"`
	DB          int    `yaml:"db"           env:"REDIS_DB"                    env-default:"0"`
	QueuePrefix string `yaml:"queue_prefix" env:"REDIS_QUEUE_FOR_ISSUE_LIMIT" env-default:"issue_limit"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `yaml:"token_ttl"  env:"JWT_TTL"    env-default:"72h"`
}

type IssueConfig struct {
	DailyLimit        int  `yaml:"daily_limit"        env:"ISSUE_DAILY_LIMIT"        env-default:"10"`
	StrictTransitions bool `yaml:"strict_transitions" env:"ISSUE_STRICT_TRANSITIONS" env-default:"false"`
}

type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults. The YAML path comes from CONFIG_PATH
// (fallback "./config.yaml"); a missing default file is not an error.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "mongo":
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required when STORAGE_DRIVER=mongo"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.Issues.DailyLimit < 0 {
		errs = append(errs, errors.New("ISSUE_DAILY_LIMIT must not be negative"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether cookies must be marked secure.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Origins splits the comma separated CORS origin list.
func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
