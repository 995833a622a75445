package consts

const (
	ENV_PRODUCTION  = "production"
	ENV_DEVELOPMENT = "development"
	ENV_TEST        = "test"

	// ENV_APP_ENV overrides app_info.env and the -env flag when set.
	ENV_APP_ENV = "APP_ENV"

	DEFAULT_CONFIG_PATH = "config/config.yaml"

	KEY_TraceID = "trace_id"
)
