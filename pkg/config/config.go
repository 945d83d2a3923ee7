package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Cache         CacheConfig
	Verification  VerificationConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate catches combinations envconfig cannot express with tags.
func (c *Config) validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("EVENTPROS_DB_DRIVER must be postgres or sqlite, got %q", c.DB.Driver)
	}
	switch c.App.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("EVENTPROS_LOG_FORMAT must be json or console, got %q", c.App.LogFormat)
	}
	if v := c.Verification; v.MediumPriorityAfter >= v.HighPriorityAfter {
		return fmt.Errorf("verification medium priority threshold (%s) must be below the high threshold (%s)",
			v.MediumPriorityAfter, v.HighPriorityAfter)
	}
	return nil
}

type AppConfig struct {
	Env          string   `envconfig:"EVENTPROS_APP_ENV" required:"true"`
	Port         string   `envconfig:"EVENTPROS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"EVENTPROS_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"EVENTPROS_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"EVENTPROS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"EVENTPROS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"EVENTPROS_SERVICE_KIND" default:"api"`

	// MetricsAddr is where the workers serve /metrics. Empty disables it; the
	// API serves /metrics on its own port.
	MetricsAddr string `envconfig:"EVENTPROS_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"EVENTPROS_DB_DSN"`
	Driver string `envconfig:"EVENTPROS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EVENTPROS_DB_HOST"`
	LegacyPort     int    `envconfig:"EVENTPROS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EVENTPROS_DB_USER"`
	LegacyPassword string `envconfig:"EVENTPROS_DB_PASSWORD"`
	LegacyName     string `envconfig:"EVENTPROS_DB_NAME"`
	LegacySSLMode  string `envconfig:"EVENTPROS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EVENTPROS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EVENTPROS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EVENTPROS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EVENTPROS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EVENTPROS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"EVENTPROS_REDIS_ADDR"`
	Password     string        `envconfig:"EVENTPROS_REDIS_PASSWORD"`
	DB           int           `envconfig:"EVENTPROS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EVENTPROS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EVENTPROS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EVENTPROS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EVENTPROS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EVENTPROS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"EVENTPROS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"EVENTPROS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"EVENTPROS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"EVENTPROS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"EVENTPROS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"EVENTPROS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"EVENTPROS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"EVENTPROS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"EVENTPROS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"EVENTPROS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"EVENTPROS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"EVENTPROS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"EVENTPROS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"EVENTPROS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"EVENTPROS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// RateLimitConfig holds the per-route fixed windows applied to the public API.
type RateLimitConfig struct {
	GlobalPerMinute     int           `envconfig:"EVENTPROS_RATE_LIMIT_GLOBAL_PER_MINUTE" default:"300"`
	Window              time.Duration `envconfig:"EVENTPROS_RATE_LIMIT_WINDOW" default:"1m"`
	PrivacyReadLimit    int           `envconfig:"EVENTPROS_RATE_LIMIT_PRIVACY_READ" default:"60"`
	PrivacyWriteLimit   int           `envconfig:"EVENTPROS_RATE_LIMIT_PRIVACY_WRITE" default:"10"`
	SearchAnalyticsRead int           `envconfig:"EVENTPROS_RATE_LIMIT_SEARCH_ANALYTICS" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"EVENTPROS_AUTO_MIGRATE" default:"false"`
}

type CacheConfig struct {
	DashboardTTL time.Duration `envconfig:"EVENTPROS_CACHE_DASHBOARD_TTL" default:"5m"`
}

// VerificationConfig tunes the admin verification queue.
type VerificationConfig struct {
	HighPriorityAfter   time.Duration `envconfig:"EVENTPROS_VERIFICATION_HIGH_PRIORITY_AFTER" default:"168h"`
	MediumPriorityAfter time.Duration `envconfig:"EVENTPROS_VERIFICATION_MEDIUM_PRIORITY_AFTER" default:"72h"`
	BacklogThreshold    int           `envconfig:"EVENTPROS_VERIFICATION_BACKLOG_THRESHOLD" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"EVENTPROS_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"EVENTPROS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic       string `envconfig:"EVENTPROS_PUBSUB_DOMAIN_TOPIC" default:"eventpros-domain-events"`
	VerificationTopic string `envconfig:"EVENTPROS_PUBSUB_VERIFICATION_TOPIC" default:"eventpros-verification-events"`
}

type OutboxConfig struct {
	BatchSize        int `envconfig:"EVENTPROS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS   int `envconfig:"EVENTPROS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts      int `envconfig:"EVENTPROS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays    int `envconfig:"EVENTPROS_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays int `envconfig:"EVENTPROS_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"EVENTPROS_CRON_INTERVAL" default:"1h"`
	NotificationRetentionDays int           `envconfig:"EVENTPROS_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
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
