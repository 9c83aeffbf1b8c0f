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
	Commerce CommerceConfig
	Pricing  PricingConfig
	Catalog  CatalogConfig
	Storage  StorageConfig
	DB       DBConfig
	Redis    RedisConfig
	CORS     CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CommerceConfig points at the merchant's external commerce API.
type CommerceConfig struct {
	BaseURL   string        `envconfig:"STOREFRONT_COMMERCE_BASE_URL" default:"https://admin.refabry.com/api"`
	AssetHost string        `envconfig:"STOREFRONT_COMMERCE_ASSET_HOST" default:"https://admin.refabry.com"`
	Timeout   time.Duration `envconfig:"STOREFRONT_COMMERCE_TIMEOUT" default:"10s"`
}

// PricingConfig holds the two flat delivery tiers.
type PricingConfig struct {
	LowTier      string `envconfig:"STOREFRONT_DELIVERY_LOW_TIER" default:"70"`
	HighTier     string `envconfig:"STOREFRONT_DELIVERY_HIGH_TIER" default:"150"`
	LowTierToken string `envconfig:"STOREFRONT_DELIVERY_LOW_TIER_TOKEN" default:"dhaka"`
}

type CatalogConfig struct {
	RefreshInterval time.Duration `envconfig:"STOREFRONT_CATALOG_REFRESH_INTERVAL" default:"5m"`
	FeaturedCount   int           `envconfig:"STOREFRONT_CATALOG_FEATURED_COUNT" default:"8"`
}

// StorageConfig selects where cart snapshots live.
type StorageConfig struct {
	Driver  string        `envconfig:"STOREFRONT_STORAGE_DRIVER" default:"memory"`
	CartKey string        `envconfig:"STOREFRONT_STORAGE_CART_KEY" default:"cartItems"`
	CartTTL time.Duration `envconfig:"STOREFRONT_STORAGE_CART_TTL" default:"720h"`
	LockTTL time.Duration `envconfig:"STOREFRONT_STORAGE_SUBMISSION_LOCK_TTL" default:"30s"`
}

type DBConfig struct {
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"5"`
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

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case StorageDriverMemory:
	case StorageDriverRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("%s=%s requires %s or %s", EnvStorageDriver, StorageDriverRedis, EnvRedisURL, EnvRedisAddr)
		}
	case StorageDriverSQL:
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvStorageDriver, c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.CartKey) == "" {
		return fmt.Errorf("%s must not be empty", EnvStorageCartKey)
	}
	return nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, DBDriverSQLite) {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range postgresDBEnvVars {
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
