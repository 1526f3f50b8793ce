package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Payments     PaymentsConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
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
	cfg.Payments.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs error
	if c.JWT.ExpirationMinutes <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if c.RateLimit.PaymentsLimit < 0 || c.RateLimit.PaymentsWindow < 0 {
		errs = multierr.Append(errs, fmt.Errorf("rate limit values must be non-negative"))
	}
	if err := c.Payments.validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"STOREFRONT_DB_DSN"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"1440"`
	CookieName        string `envconfig:"STOREFRONT_JWT_COOKIE_NAME" default:"jwt"`
}

// PaymentsConfig holds the gateway credentials. The secret doubles as the
// HMAC key for payment signatures.
type PaymentsConfig struct {
	KeyID           string        `envconfig:"STOREFRONT_RAZORPAY_KEY_ID" required:"true"`
	KeySecret       string        `envconfig:"STOREFRONT_RAZORPAY_KEY_SECRET" required:"true"`
	Currency        string        `envconfig:"STOREFRONT_PAYMENTS_CURRENCY" default:"INR"`
	ReceiptPrefix   string        `envconfig:"STOREFRONT_PAYMENTS_RECEIPT_PREFIX" default:"receipt_order"`
	AutoCapture     bool          `envconfig:"STOREFRONT_PAYMENTS_AUTO_CAPTURE" default:"true"`
	VerificationTTL time.Duration `envconfig:"STOREFRONT_PAYMENTS_VERIFICATION_TTL" default:"720h"`
}

// normalize trims the gateway credentials so the SDK client and the
// signature check share one key.
func (p *PaymentsConfig) normalize() {
	p.KeyID = strings.TrimSpace(p.KeyID)
	p.KeySecret = strings.TrimSpace(p.KeySecret)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
}

func (p PaymentsConfig) validate() error {
	var errs error
	if strings.TrimSpace(p.KeyID) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required", EnvRazorpayKeyID))
	}
	if strings.TrimSpace(p.KeySecret) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required", EnvRazorpayKeySecret))
	}
	if len(strings.TrimSpace(p.Currency)) != 3 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be a 3-letter ISO code", EnvPaymentsCurrency))
	}
	if p.VerificationTTL < 0 {
		errs = multierr.Append(errs, fmt.Errorf("payments verification ttl must be non-negative"))
	}
	return errs
}

// NormalizedCurrency returns the upper-cased ISO currency code.
func (p PaymentsConfig) NormalizedCurrency() string {
	return strings.ToUpper(strings.TrimSpace(p.Currency))
}

type CheckoutConfig struct {
	DirectEnabled bool `envconfig:"STOREFRONT_CHECKOUT_DIRECT_ENABLED" default:"true"`
}

// RateLimitConfig bounds how often a single user may hit the payment routes.
type RateLimitConfig struct {
	PaymentsLimit  int64         `envconfig:"STOREFRONT_RATE_LIMIT_PAYMENTS" default:"20"`
	PaymentsWindow time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_PAYMENTS_WINDOW" default:"1m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
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
