package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverMemory = "memory"
	StorageDriverRedis  = "redis"
	StorageDriverSQL    = "sql"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:storefront.db?_busy_timeout=5000"
)

const (
	EnvAppEnv            = "STOREFRONT_APP_ENV"
	EnvPort              = "STOREFRONT_APP_PORT"
	EnvLogLevel          = "STOREFRONT_LOG_LEVEL"
	EnvCommerceBaseURL   = "STOREFRONT_COMMERCE_BASE_URL"
	EnvCommerceAssetHost = "STOREFRONT_COMMERCE_ASSET_HOST"
	EnvDeliveryLowTier   = "STOREFRONT_DELIVERY_LOW_TIER"
	EnvDeliveryHighTier  = "STOREFRONT_DELIVERY_HIGH_TIER"
	EnvStorageDriver     = "STOREFRONT_STORAGE_DRIVER"
	EnvStorageCartKey    = "STOREFRONT_STORAGE_CART_KEY"
	EnvDBDriver          = "STOREFRONT_DB_DRIVER"
	EnvDBDSN             = "STOREFRONT_DB_DSN"
	EnvDBHost            = "STOREFRONT_DB_HOST"
	EnvDBUser            = "STOREFRONT_DB_USER"
	EnvDBName            = "STOREFRONT_DB_NAME"
	EnvRedisURL          = "STOREFRONT_REDIS_URL"
	EnvRedisAddr         = "STOREFRONT_REDIS_ADDR"
	EnvCORSOrigins       = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)

var postgresDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
