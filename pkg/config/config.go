package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "AGRO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EventingBackendPubSub = "pubsub"
	EventingBackendKafka  = "kafka"

	EnvAppEnv                 = "AGRO_APP_ENV"
	EnvPort                   = "AGRO_APP_PORT"
	EnvDBDSN                  = "AGRO_DB_DSN"
	EnvDBHost                 = "AGRO_DB_HOST"
	EnvDBUser                 = "AGRO_DB_USER"
	EnvDBName                 = "AGRO_DB_NAME"
	EnvRedisURL               = "AGRO_REDIS_URL"
	EnvJWTSecret              = "AGRO_JWT_SECRET"
	EnvJWTIssuer              = "AGRO_JWT_ISSUER"
	EnvJWTExpMins             = "AGRO_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "AGRO_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite              = "AGRO_USE_SQLITE"
	EnvPaystackSecretKey      = "AGRO_PAYSTACK_SECRET_KEY"
	EnvAdminSetupSecret       = "AGRO_ADMIN_SETUP_SECRET"
	EnvEventingBackend        = "AGRO_EVENTING_BACKEND"
	EnvKafkaBrokers           = "AGRO_KAFKA_BROKERS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Paystack      PaystackConfig
	Admin         AdminConfig
	Delivery      DeliveryConfig
	Cron          CronConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Kafka         KafkaConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"AGRO_APP_ENV" required:"true"`
	Port         string   `envconfig:"AGRO_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"AGRO_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"AGRO_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"AGRO_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AGRO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AGRO_DB_DSN"`
	Driver string `envconfig:"AGRO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AGRO_DB_HOST"`
	LegacyPort     int    `envconfig:"AGRO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGRO_DB_USER"`
	LegacyPassword string `envconfig:"AGRO_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGRO_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGRO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGRO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGRO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGRO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGRO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AGRO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGRO_REDIS_ADDR"`
	Password     string        `envconfig:"AGRO_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGRO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGRO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGRO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGRO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGRO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGRO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"AGRO_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"AGRO_JWT_ISSUER" default:"agromarket"`
	ExpirationMinutes      int    `envconfig:"AGRO_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"AGRO_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AGRO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AGRO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AGRO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AGRO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AGRO_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AGRO_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AGRO_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AGRO_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AGRO_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AGRO_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AGRO_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AGRO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AGRO_AUTO_MIGRATE" default:"false"`
}

type PaystackConfig struct {
	BaseURL     string        `envconfig:"AGRO_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	SecretKey   string        `envconfig:"AGRO_PAYSTACK_SECRET_KEY"`
	PublicKey   string        `envconfig:"AGRO_PAYSTACK_PUBLIC_KEY"`
	CallbackURL string        `envconfig:"AGRO_PAYSTACK_CALLBACK_URL"`
	Timeout     time.Duration `envconfig:"AGRO_PAYSTACK_TIMEOUT" default:"15s"`
}

type AdminConfig struct {
	SetupSecret string `envconfig:"AGRO_ADMIN_SETUP_SECRET"`
}

type DeliveryConfig struct {
	CommissionPercent int `envconfig:"AGRO_DELIVERY_COMMISSION_PERCENT" default:"10"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"AGRO_CRON_INTERVAL" default:"5m"`
	ReconcileStaleAfter   time.Duration `envconfig:"AGRO_RECONCILE_STALE_AFTER" default:"15m"`
	ReconcileBatchSize    int           `envconfig:"AGRO_RECONCILE_BATCH_SIZE" default:"50"`
	OutboxRetention       time.Duration `envconfig:"AGRO_OUTBOX_RETENTION" default:"720h"`
	DLQRetention          time.Duration `envconfig:"AGRO_OUTBOX_DLQ_RETENTION" default:"2160h"`
	LockTTL               time.Duration `envconfig:"AGRO_CRON_LOCK_TTL" default:"4m"`
	WebhookIdempotencyTTL time.Duration `envconfig:"AGRO_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type EventingConfig struct {
	Backend string `envconfig:"AGRO_EVENTING_BACKEND" default:"pubsub"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"AGRO_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"AGRO_PUBSUB_DOMAIN_TOPIC" default:"agro-domain-events"`
	// Ordered publishes messages for one aggregate in order. The topic's subscriptions must
	// have message ordering enabled for consumers to see that order.
	Ordered bool `envconfig:"AGRO_PUBSUB_ORDERED" default:"true"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"AGRO_KAFKA_BROKERS"`
	Topic   string   `envconfig:"AGRO_KAFKA_TOPIC" default:"agro.domain-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"AGRO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"AGRO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"AGRO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, DriverSQLite) {
		db.DSN = "file:agromarket.db?_foreign_keys=on"
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
