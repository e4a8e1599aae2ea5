package config

const EnvPrefix = "HIREPURCHASE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv       = "HIREPURCHASE_APP_ENV"
	EnvPort         = "HIREPURCHASE_APP_PORT"
	EnvLogLevel     = "HIREPURCHASE_LOG_LEVEL"
	EnvDBDSN        = "HIREPURCHASE_DB_DSN"
	EnvDBDriver     = "HIREPURCHASE_DB_DRIVER"
	EnvDBHost       = "HIREPURCHASE_DB_HOST"
	EnvDBPort       = "HIREPURCHASE_DB_PORT"
	EnvDBUser       = "HIREPURCHASE_DB_USER"
	EnvDBPassword   = "HIREPURCHASE_DB_PASSWORD"
	EnvDBName       = "HIREPURCHASE_DB_NAME"
	EnvRedisURL     = "HIREPURCHASE_REDIS_URL"
	EnvJWTSecret    = "HIREPURCHASE_JWT_SECRET"
	EnvJWTIssuer    = "HIREPURCHASE_JWT_ISSUER"
	EnvAuditTopic   = "HIREPURCHASE_PUBSUB_AUDIT_TOPIC"
	EnvGCPProjectID = "HIREPURCHASE_GCP_PROJECT_ID"
	EnvCronInterval = "HIREPURCHASE_CRON_INTERVAL"
	EnvCORSOrigins  = "HIREPURCHASE_HTTP_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
