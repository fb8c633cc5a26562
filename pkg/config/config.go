package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Payment  PaymentConfig
	Checkout CheckoutConfig
	Catalog  CatalogConfig
	Features FeatureFlagsConfig
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
	Env          string `envconfig:"NOVASHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"NOVASHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NOVASHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NOVASHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NOVASHOP_DB_DSN"`
	Driver string `envconfig:"NOVASHOP_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"NOVASHOP_DB_HOST"`
	Port     int    `envconfig:"NOVASHOP_DB_PORT" default:"5432"`
	User     string `envconfig:"NOVASHOP_DB_USER"`
	Password string `envconfig:"NOVASHOP_DB_PASSWORD"`
	Name     string `envconfig:"NOVASHOP_DB_NAME"`
	SSLMode  string `envconfig:"NOVASHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NOVASHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NOVASHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NOVASHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NOVASHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NOVASHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NOVASHOP_REDIS_ADDR"`
	Password     string        `envconfig:"NOVASHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"NOVASHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NOVASHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NOVASHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NOVASHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NOVASHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NOVASHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"NOVASHOP_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"NOVASHOP_JWT_ISSUER" required:"true"`
}

// PaymentConfig tunes the simulated gateway. Latency bounds exist only to
// mimic a real round trip; tests set them to zero.
type PaymentConfig struct {
	MinLatency time.Duration `envconfig:"NOVASHOP_PAYMENT_MIN_LATENCY" default:"500ms"`
	MaxLatency time.Duration `envconfig:"NOVASHOP_PAYMENT_MAX_LATENCY" default:"1s"`
	Timeout    time.Duration `envconfig:"NOVASHOP_PAYMENT_TIMEOUT" default:"5s"`
}

type CheckoutConfig struct {
	ShippingFlatFee string `envconfig:"NOVASHOP_CHECKOUT_SHIPPING_FLAT_FEE" default:"15.00"`
	TaxRate         string `envconfig:"NOVASHOP_CHECKOUT_TAX_RATE" default:"0.08"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"NOVASHOP_CATALOG_CACHE_TTL" default:"60s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NOVASHOP_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
