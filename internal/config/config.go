// Package config loads the process configuration from an optional pullpay.yaml
// file and PULLPAY_* environment variables, with .env support for local
// development.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type AppConfig struct {
	Name string
	Env  string // production | development | test
}

type HTTPConfig struct {
	Addr string
}

type DBConfig struct {
	Driver          string // postgres | mysql | sqlite | sqlite3
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// AutoMigrate runs gorm schema sync instead of versioned migrations.
	// Development convenience for sqlite; postgres deployments use `pullpay migrate`.
	AutoMigrate bool
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json | console
}

type TelemetryConfig struct {
	TracesEnabled  bool
	MetricsEnabled bool
	Endpoint       string
	Protocol       string // grpc | http
	Insecure       bool
	ServiceName    string
}

// PlatformConfig seeds the platform singleton on first boot.
type PlatformConfig struct {
	AdminAccount     string
	Asset            string
	FeeBasisPoints   int
	MinFee           int64
	MaxFee           int64
	DailyVolumeLimit int64
	BadgePrice       int64
}

type SchedulerConfig struct {
	Interval           time.Duration
	BatchSize          int
	EventRetentionDays int
}

type RateLimitConfig struct {
	Enabled   bool
	PerMinute int
}

type VaultConfig struct {
	Provider string // aes | chacha
	Key      string
}

type SeedConfig struct {
	Demo        bool
	AdminAPIKey string
}

type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	DB        DBConfig
	Redis     RedisConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Platform  PlatformConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig
	Vault     VaultConfig
	Seed      SeedConfig
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// Load reads .env, the optional config file, and the environment. The returned
// viper handle stays registered for file-change notifications.
func Load() (Config, *viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("pullpay")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pullpay")

	v.SetEnvPrefix("PULLPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, nil, err
		}
	}

	cfg := Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		HTTP: HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
		DB: DBConfig{
			Driver:          v.GetString("db.driver"),
			DSN:             v.GetString("db.dsn"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("db.auto_migrate"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Telemetry: TelemetryConfig{
			TracesEnabled:  v.GetBool("telemetry.traces_enabled"),
			MetricsEnabled: v.GetBool("telemetry.metrics_enabled"),
			Endpoint:       v.GetString("telemetry.endpoint"),
			Protocol:       v.GetString("telemetry.protocol"),
			Insecure:       v.GetBool("telemetry.insecure"),
			ServiceName:    v.GetString("telemetry.service_name"),
		},
		Platform: PlatformConfig{
			AdminAccount:     v.GetString("platform.admin_account"),
			Asset:            v.GetString("platform.asset"),
			FeeBasisPoints:   v.GetInt("platform.fee_basis_points"),
			MinFee:           v.GetInt64("platform.min_fee"),
			MaxFee:           v.GetInt64("platform.max_fee"),
			DailyVolumeLimit: v.GetInt64("platform.daily_volume_limit"),
			BadgePrice:       v.GetInt64("platform.badge_price"),
		},
		Scheduler: SchedulerConfig{
			Interval:           v.GetDuration("scheduler.interval"),
			BatchSize:          v.GetInt("scheduler.batch_size"),
			EventRetentionDays: v.GetInt("scheduler.event_retention_days"),
		},
		RateLimit: RateLimitConfig{
			Enabled:   v.GetBool("ratelimit.enabled"),
			PerMinute: v.GetInt("ratelimit.per_minute"),
		},
		Vault: VaultConfig{
			Provider: v.GetString("vault.provider"),
			Key:      v.GetString("vault.key"),
		},
		Seed: SeedConfig{
			Demo:        v.GetBool("seed.demo"),
			AdminAPIKey: v.GetString("seed.admin_api_key"),
		},
	}

	return cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pullpay")
	v.SetDefault("app.env", "development")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:pullpay.db?cache=shared")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", time.Hour)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("telemetry.traces_enabled", false)
	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.protocol", "grpc")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "pullpay")
	v.SetDefault("platform.admin_account", "platform-admin")
	v.SetDefault("platform.asset", "USDC")
	v.SetDefault("platform.fee_basis_points", 250)
	v.SetDefault("platform.min_fee", 10_000)
	v.SetDefault("platform.max_fee", 500_000)
	v.SetDefault("platform.daily_volume_limit", 1_000_000_000_000)
	v.SetDefault("platform.badge_price", 50_000_000)
	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("scheduler.batch_size", 100)
	v.SetDefault("scheduler.event_retention_days", 90)
	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.per_minute", 120)
	v.SetDefault("vault.provider", "aes")
	v.SetDefault("vault.key", "")
	v.SetDefault("seed.demo", false)
	v.SetDefault("seed.admin_api_key", "")
}

// watchFile logs config file rewrites. Values are not hot-applied; the log
// line tells operators a restart is needed to pick changes up.
func watchFile(v *viper.Viper, log *zap.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	log = log.Named("config")
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("config file changed, restart to apply", zap.String("file", e.Name), zap.String("op", e.Op.String()))
	})
	v.WatchConfig()
}
