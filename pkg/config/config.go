package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	HTTP         HTTPConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Ledger       LedgerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HIREPURCHASE_APP_ENV" required:"true"`
	Port         string `envconfig:"HIREPURCHASE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HIREPURCHASE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HIREPURCHASE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HIREPURCHASE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HIREPURCHASE_DB_DSN"`
	Driver string `envconfig:"HIREPURCHASE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HIREPURCHASE_DB_HOST"`
	LegacyPort     int    `envconfig:"HIREPURCHASE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HIREPURCHASE_DB_USER"`
	LegacyPassword string `envconfig:"HIREPURCHASE_DB_PASSWORD"`
	LegacyName     string `envconfig:"HIREPURCHASE_DB_NAME"`
	LegacySSLMode  string `envconfig:"HIREPURCHASE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HIREPURCHASE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HIREPURCHASE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HIREPURCHASE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HIREPURCHASE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets a local SQLite file.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"HIREPURCHASE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HIREPURCHASE_REDIS_ADDR"`
	Password     string        `envconfig:"HIREPURCHASE_REDIS_PASSWORD"`
	DB           int           `envconfig:"HIREPURCHASE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HIREPURCHASE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HIREPURCHASE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HIREPURCHASE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HIREPURCHASE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HIREPURCHASE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the verification settings for bearer tokens minted by the
// identity service.
type JWTConfig struct {
	Secret            string `envconfig:"HIREPURCHASE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HIREPURCHASE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HIREPURCHASE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type HTTPConfig struct {
	AllowedOrigins  []string      `envconfig:"HIREPURCHASE_HTTP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ReadTimeout     time.Duration `envconfig:"HIREPURCHASE_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HIREPURCHASE_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"HIREPURCHASE_HTTP_SHUTDOWN_TIMEOUT" default:"20s"`

	// Per-actor write requests allowed per RateLimitWindow; zero disables.
	RateLimitPerWindow int           `envconfig:"HIREPURCHASE_HTTP_RATE_LIMIT" default:"120"`
	RateLimitWindow    time.Duration `envconfig:"HIREPURCHASE_HTTP_RATE_LIMIT_WINDOW" default:"1m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"HIREPURCHASE_AUTO_MIGRATE" default:"false"`
	MetricsPublic bool `envconfig:"HIREPURCHASE_METRICS_PUBLIC" default:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HIREPURCHASE_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"HIREPURCHASE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AuditTopic string `envconfig:"HIREPURCHASE_PUBSUB_AUDIT_TOPIC" default:"hp-audit-events"`
}

// OutboxConfig tunes the audit publisher draining outbox_events.
type OutboxConfig struct {
	BatchSize      int `envconfig:"HIREPURCHASE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HIREPURCHASE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HIREPURCHASE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval     time.Duration `envconfig:"HIREPURCHASE_CRON_INTERVAL" default:"1h"`
	OverdueBatch int           `envconfig:"HIREPURCHASE_CRON_OVERDUE_BATCH" default:"200"`
	JobTimeout   time.Duration `envconfig:"HIREPURCHASE_CRON_JOB_TIMEOUT" default:"10m"`
	LockTTL      time.Duration `envconfig:"HIREPURCHASE_CRON_LOCK_TTL" default:"55m"`
}

// LedgerConfig holds shop-independent ledger defaults.
type LedgerConfig struct {
	// REJECT or CAP; applies when a payment request names no policy.
	DefaultOverpayment string `envconfig:"HIREPURCHASE_LEDGER_OVERPAYMENT" default:"REJECT"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
