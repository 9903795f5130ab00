package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreSQLite   = "sqlite"

	NotifierLog      = "log"
	NotifierTelegram = "telegram"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	Auth   AuthConfig
	Store  StoreConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Notify NotifyConfig
	Tasks  TaskConfig

	BootstrapAdmin   BootstrapUser `env:", prefix=BOOTSTRAP_ADMIN_"`
	BootstrapManager BootstrapUser `env:", prefix=BOOTSTRAP_MANAGER_"`
}

type AuthConfig struct {
	SecretKey                string `env:"SECRET_KEY, required"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES, default=30"`
	BcryptCost               int    `env:"BCRYPT_COST, default=10"`
}

// AccessTTL converts the configured minutes into a duration.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=mongo"`
	DSN    string `env:"DATABASE_DSN"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=task_api"`
}

// RedisConfig is optional: notification de-duplication is skipped when
// Addr is empty.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type NotifyConfig struct {
	Sink           string        `env:"NOTIFIER,            default=log"`
	Workers        int           `env:"NOTIFY_WORKERS,      default=4"`
	DedupWindow    time.Duration `env:"NOTIFY_DEDUP_WINDOW, default=1h"`
	TelegramToken  string        `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64         `env:"TELEGRAM_CHAT_ID"`
}

type TaskConfig struct {
	StrictTransitions bool `env:"TASK_STRICT_TRANSITIONS, default=false"`
}

// BootstrapUser describes a privileged account created at startup when it
// does not exist yet. All three fields must be set for it to apply.
type BootstrapUser struct {
	Username string `env:"USERNAME"`
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
}

func (b BootstrapUser) Enabled() bool {
	return b.Username != "" && b.Email != "" && b.Password != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field requirements envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, errors.New("BCRYPT_COST must be between 4 and 31"))
	}

	switch c.Store.Driver {
	case StoreMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	case StorePostgres, StoreMySQL, StoreSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("DATABASE_DSN is required for the %s store", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of mongo, postgres, mysql, sqlite", c.Store.Driver))
	}

	switch c.Notify.Sink {
	case NotifierLog:
	case NotifierTelegram:
		if c.Notify.TelegramToken == "" || c.Notify.TelegramChatID == 0 {
			errs = append(errs, errors.New("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID are required for the telegram notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFIER %q is not one of log, telegram", c.Notify.Sink))
	}

	return errors.Join(errs...)
}
