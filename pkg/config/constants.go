package config

// EnvPrefix scopes every environment variable the service reads.
const EnvPrefix = "DVFASHION"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "DVFASHION_APP_ENV"
	EnvPort     = "DVFASHION_APP_PORT"
	EnvRedisURL = "DVFASHION_REDIS_URL"

	EnvDBDSN  = "DVFASHION_DB_DSN"
	EnvDBHost = "DVFASHION_DB_HOST"
	EnvDBUser = "DVFASHION_DB_USER"
	EnvDBName = "DVFASHION_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
