package constants

const (
	APP_NAME = "go-tributary"
	// prefix used to read config parameters from environment variables
	ENV_PREFIX = "GO_TRIBUTARY"
	// config file name
	CONFIG_FILE_NAME = "config.toml"
	// config file type
	CONFIG_FILE_TYPE = "toml"
	// directory under the data dir holding the key-value store
	DB_DIR_NAME = "tributarydb"
	// directory under the data dir holding per-chain logs
	LOG_DIR_NAME = "nodelogs"
)
