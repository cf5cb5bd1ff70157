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
	FeatureFlags  FeatureFlagsConfig
	Store         StoreConfig
	Shipping      ShippingConfig
	Razorpay      RazorpayConfig
	Mailer        MailerConfig
	AbandonedCart AbandonedCartConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CRAFTKART_APP_ENV" required:"true"`
	Port         string `envconfig:"CRAFTKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CRAFTKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRAFTKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CRAFTKART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CRAFTKART_DB_DSN"`
	Driver string `envconfig:"CRAFTKART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CRAFTKART_DB_HOST"`
	LegacyPort     int    `envconfig:"CRAFTKART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CRAFTKART_DB_USER"`
	LegacyPassword string `envconfig:"CRAFTKART_DB_PASSWORD"`
	LegacyName     string `envconfig:"CRAFTKART_DB_NAME"`
	LegacySSLMode  string `envconfig:"CRAFTKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRAFTKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRAFTKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRAFTKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRAFTKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRAFTKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CRAFTKART_REDIS_ADDR"`
	Password     string        `envconfig:"CRAFTKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRAFTKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRAFTKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRAFTKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRAFTKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRAFTKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRAFTKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CRAFTKART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CRAFTKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CRAFTKART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CRAFTKART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CRAFTKART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CRAFTKART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CRAFTKART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CRAFTKART_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CRAFTKART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CRAFTKART_AUTO_MIGRATE" default:"false"`
}

// StoreConfig carries tenant-wide storefront settings that used to live in a
// settings table. Loaded once at startup.
type StoreConfig struct {
	Name          string `envconfig:"CRAFTKART_STORE_NAME" default:"CraftKart"`
	BaseURL       string `envconfig:"CRAFTKART_STORE_BASE_URL" required:"true"`
	SupportEmail  string `envconfig:"CRAFTKART_STORE_SUPPORT_EMAIL" default:"support@craftkart.in"`
	AdminEmail    string `envconfig:"CRAFTKART_STORE_ADMIN_EMAIL"`
	OrderPrefix   string `envconfig:"CRAFTKART_STORE_ORDER_PREFIX" default:"CK"`
	ReturnPrefix  string `envconfig:"CRAFTKART_STORE_RETURN_PREFIX" default:"RET"`
	DefaultRegion string `envconfig:"CRAFTKART_STORE_DEFAULT_REGION" default:"IN"`
}

type ShippingConfig struct {
	FlatRate           string `envconfig:"CRAFTKART_SHIPPING_FLAT_RATE" default:"49.00"`
	FreeAboveSubtotal  string `envconfig:"CRAFTKART_SHIPPING_FREE_ABOVE" default:"999.00"`
	DefaultTrackingURL string `envconfig:"CRAFTKART_SHIPPING_TRACKING_URL_TEMPLATE"`
}

type RazorpayConfig struct {
	KeyID     string        `envconfig:"CRAFTKART_RAZORPAY_KEY_ID" required:"true"`
	KeySecret string        `envconfig:"CRAFTKART_RAZORPAY_KEY_SECRET" required:"true"`
	BaseURL   string        `envconfig:"CRAFTKART_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Currency  string        `envconfig:"CRAFTKART_RAZORPAY_CURRENCY" default:"INR"`
	Timeout   time.Duration `envconfig:"CRAFTKART_RAZORPAY_TIMEOUT" default:"15s"`
}

type MailerConfig struct {
	BaseURL     string        `envconfig:"CRAFTKART_MAILER_BASE_URL" default:"https://api.resend.com"`
	APIKey      string        `envconfig:"CRAFTKART_MAILER_API_KEY"`
	DefaultFrom string        `envconfig:"CRAFTKART_MAILER_FROM_EMAIL" default:"orders@craftkart.in"`
	Timeout     time.Duration `envconfig:"CRAFTKART_MAILER_TIMEOUT" default:"10s"`
}

type AbandonedCartConfig struct {
	ThresholdHours int `envconfig:"CRAFTKART_ABANDONED_CART_THRESHOLD_HOURS" default:"4"`
	BatchSize      int `envconfig:"CRAFTKART_ABANDONED_CART_BATCH_SIZE" default:"50"`
	ExpiryDays     int `envconfig:"CRAFTKART_ABANDONED_CART_EXPIRY_DAYS" default:"7"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CRAFTKART_CRON_INTERVAL" default:"1h"`
}

// Expiry returns the configured abandoned cart lifetime.
func (a AbandonedCartConfig) Expiry() time.Duration {
	days := a.ExpiryDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// Threshold returns how long a cart must sit idle before recovery mail.
func (a AbandonedCartConfig) Threshold() time.Duration {
	hours := a.ThresholdHours
	if hours <= 0 {
		hours = 4
	}
	return time.Duration(hours) * time.Hour
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
