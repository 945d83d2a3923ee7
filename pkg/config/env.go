package config

// EnvPrefix is handed to envconfig. Fields carry their full key, which envconfig
// falls back to when the prefixed lookup misses.
const EnvPrefix = "EVENTPROS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "EVENTPROS_APP_ENV"
	EnvPort                   = "EVENTPROS_APP_PORT"
	EnvDBDSN                  = "EVENTPROS_DB_DSN"
	EnvDBHost                 = "EVENTPROS_DB_HOST"
	EnvDBUser                 = "EVENTPROS_DB_USER"
	EnvDBName                 = "EVENTPROS_DB_NAME"
	EnvDBPassword             = "EVENTPROS_DB_PASSWORD"
	EnvRedisURL               = "EVENTPROS_REDIS_URL"
	EnvJWTSecret              = "EVENTPROS_JWT_SECRET"
	EnvJWTIssuer              = "EVENTPROS_JWT_ISSUER"
	EnvJWTExpMins             = "EVENTPROS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "EVENTPROS_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "EVENTPROS_GCP_PROJECT_ID"
	EnvPubSubDomainTopic      = "EVENTPROS_PUBSUB_DOMAIN_TOPIC"
	EnvCacheDashboardTTL      = "EVENTPROS_CACHE_DASHBOARD_TTL"
	EnvVerificationHighAfter  = "EVENTPROS_VERIFICATION_HIGH_PRIORITY_AFTER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
