package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dominant-strategies/go-tributary/common/constants"
	"github.com/dominant-strategies/go-tributary/core"
	"github.com/dominant-strategies/go-tributary/log"
)

var GlobalFlags = []Flag{
	ConfigDirFlag,
	DataDirFlag,
	LogLevelFlag,
	SaveConfigFlag,
	DBEngineFlag,
}

var NodeFlags = []Flag{
	GenesisFlag,
	ValidatorsFlag,
	BlockIntervalFlag,
}

var MempoolFlags = []Flag{
	AccountLimitFlag,
}

var MetricsFlags = []Flag{
	MetricsEnabledFlag,
	MetricsPortFlag,
}

// Flags groups every flag that is written to the default config file.
var Flags = [][]Flag{
	GlobalFlags,
	NodeFlags,
	MempoolFlags,
	MetricsFlags,
}

var (
	// ****************************************
	// **                                    **
	// **         GLOBAL FLAGS               **
	// **                                    **
	// ****************************************
	ConfigDirFlag = Flag{
		Name:         "config-dir",
		Abbreviation: "c",
		Value:        xdg.ConfigHome + "/" + constants.APP_NAME + "/",
		Usage:        "config directory" + generateEnvDoc("config-dir"),
	}

	DataDirFlag = Flag{
		Name:         "data-dir",
		Abbreviation: "d",
		Value:        xdg.DataHome + "/" + constants.APP_NAME + "/",
		Usage:        "data directory" + generateEnvDoc("data-dir"),
	}

	LogLevelFlag = Flag{
		Name:         "log-level",
		Abbreviation: "l",
		Value:        "info",
		Usage:        "log level (trace, debug, info, warn, error, fatal, panic)" + generateEnvDoc("log-level"),
	}

	SaveConfigFlag = Flag{
		Name:         "save-config",
		Abbreviation: "S",
		Value:        false,
		Usage:        "save/update config file with current config parameters" + generateEnvDoc("save-config"),
	}

	DBEngineFlag = Flag{
		Name:  "db-engine",
		Value: "leveldb",
		Usage: "database backend (leveldb, pebble, memory)" + generateEnvDoc("db-engine"),
	}

	// ****************************************
	// **                                    **
	// **         NODE FLAGS                 **
	// **                                    **
	// ****************************************
	GenesisFlag = Flag{
		Name:         "genesis",
		Abbreviation: "g",
		Value:        []string{},
		Usage:        "genesis hashes of the tributaries to run. Syntax: <hex1>,<hex2>,..." + generateEnvDoc("genesis"),
	}

	ValidatorsFlag = Flag{
		Name:  "validators",
		Value: []string{},
		Usage: "x-only schnorr keys of the validator set. Syntax: <hex1>,<hex2>,..." + generateEnvDoc("validators"),
	}

	BlockIntervalFlag = Flag{
		Name:  "block-interval",
		Value: 6 * time.Second,
		Usage: "interval between block proposals" + generateEnvDoc("block-interval"),
	}

	// ****************************************
	// **                                    **
	// **         MEMPOOL FLAGS              **
	// **                                    **
	// ****************************************
	AccountLimitFlag = Flag{
		Name:  "mempool.account-limit",
		Value: core.DefaultMempoolConfig.AccountLimit,
		Usage: "maximum number of untrusted pending transactions per signer" + generateEnvDoc("mempool.account-limit"),
	}

	// ****************************************
	// **                                    **
	// **         METRICS FLAGS              **
	// **                                    **
	// ****************************************
	MetricsEnabledFlag = Flag{
		Name:  "metrics",
		Value: false,
		Usage: "enable metrics collection and reporting" + generateEnvDoc("metrics"),
	}

	MetricsPortFlag = Flag{
		Name:  "metrics-port",
		Value: "2112",
		Usage: "port of the prometheus metrics endpoint" + generateEnvDoc("metrics-port"),
	}
)

func CreateAndBindFlag(flag Flag, cmd *cobra.Command) {
	switch val := flag.Value.(type) {
	case string:
		cmd.PersistentFlags().StringP(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case bool:
		cmd.PersistentFlags().BoolP(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case []string:
		cmd.PersistentFlags().StringSliceP(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case time.Duration:
		cmd.PersistentFlags().DurationP(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case int:
		cmd.PersistentFlags().IntP(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case int64:
		cmd.PersistentFlags().Int64P(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case uint64:
		cmd.PersistentFlags().Uint64P(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	default:
		log.Global.Error("Flag type not supported: " + flag.GetName() + ", " + fmt.Sprintf("%T", val))
	}
	viper.BindPFlag(flag.GetName(), cmd.PersistentFlags().Lookup(flag.GetName()))
}

// helper function that given a cobra flag name, returns the corresponding
// help legend for the equivalent environment variable
func generateEnvDoc(flag string) string {
	envVar := constants.ENV_PREFIX + "_" + strings.ReplaceAll(strings.ReplaceAll(strings.ToUpper(flag), "-", "_"), ".", "_")
	return fmt.Sprintf(" [%s]", envVar)
}
