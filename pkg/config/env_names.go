package config

const (
	EnvPrefix = "NOVASHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "NOVASHOP_DB_DSN"
	EnvDBHost = "NOVASHOP_DB_HOST"
	EnvDBUser = "NOVASHOP_DB_USER"
	EnvDBName = "NOVASHOP_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
