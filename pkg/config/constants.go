package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for automatically derived keys.
const EnvPrefix = "CRAFTKART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "CRAFTKART_APP_ENV"
	EnvDBDSN  = "CRAFTKART_DB_DSN"
	EnvDBHost = "CRAFTKART_DB_HOST"
	EnvDBUser = "CRAFTKART_DB_USER"
	EnvDBName = "CRAFTKART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
