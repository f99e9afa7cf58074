package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "quickcart"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	Outbox       OutboxConfig
	PubSub       PubSubConfig
	GCP          GCPConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"QUICKCART_APP_ENV" required:"true"`
	Port         string `envconfig:"QUICKCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QUICKCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUICKCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"QUICKCART_DB_DSN"`

	Host     string `envconfig:"QUICKCART_DB_HOST"`
	Port     int    `envconfig:"QUICKCART_DB_PORT" default:"5432"`
	User     string `envconfig:"QUICKCART_DB_USER"`
	Password string `envconfig:"QUICKCART_DB_PASSWORD"`
	Name     string `envconfig:"QUICKCART_DB_NAME"`
	SSLMode  string `envconfig:"QUICKCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUICKCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUICKCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUICKCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUICKCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUICKCART_REDIS_URL" required:"true"`
	Password     string        `envconfig:"QUICKCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUICKCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUICKCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUICKCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUICKCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUICKCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUICKCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"QUICKCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"QUICKCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"QUICKCART_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"QUICKCART_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the redis session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"QUICKCART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"QUICKCART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"QUICKCART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"QUICKCART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"QUICKCART_ARGON_KEY_LEN" default:"32"`
}

type CheckoutConfig struct {
	// RequirePrice aborts checkout when a cart item resolves to a product
	// without a positive unit price. When false the item contributes zero
	// to the order total and is flagged for read-side repair.
	RequirePrice bool `envconfig:"QUICKCART_CHECKOUT_REQUIRE_PRICE" default:"false"`
}

type RateLimitConfig struct {
	AuthPerIP  int           `envconfig:"QUICKCART_AUTH_RATE_LIMIT_PER_IP" default:"20"`
	AuthWindow time.Duration `envconfig:"QUICKCART_AUTH_RATE_LIMIT_WINDOW" default:"1m"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"QUICKCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"QUICKCART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"QUICKCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"QUICKCART_PUBSUB_ORDERS_TOPIC" default:"qc-order-events"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"QUICKCART_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"QUICKCART_GCP_CREDENTIALS_JSON"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"QUICKCART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"QUICKCART_DB_HOST": db.Host,
		"QUICKCART_DB_USER": db.User,
		"QUICKCART_DB_NAME": db.Name,
	}
	for _, key := range []string{"QUICKCART_DB_HOST", "QUICKCART_DB_USER", "QUICKCART_DB_NAME"} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either QUICKCART_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
