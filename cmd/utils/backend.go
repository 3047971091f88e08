package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/common/constants"
	"github.com/dominant-strategies/go-tributary/core"
	"github.com/dominant-strategies/go-tributary/core/rawdb"
	"github.com/dominant-strategies/go-tributary/core/types"
	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/db/dsdb"
	"github.com/dominant-strategies/go-tributary/db/leveldb"
	"github.com/dominant-strategies/go-tributary/db/pebble"
	"github.com/dominant-strategies/go-tributary/log"
)

const (
	dbCache   = 16 // MB of cache for the on-disk engines
	dbHandles = 64 // open file handles for the on-disk engines
)

// OpenDatabase opens the store of the given engine under dataDir.
func OpenDatabase(engine string, dataDir string, readonly bool, logger *log.Logger) (db.Database, error) {
	path := filepath.Join(dataDir, constants.DB_DIR_NAME)
	switch engine {
	case "leveldb":
		d, err := leveldb.New(path, dbCache, dbHandles, readonly, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "pebble":
		d, err := pebble.New(path, dbCache, dbHandles, readonly, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "memory":
		return dsdb.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown database engine %q", engine)
	}
}

// CheckDatabaseVersion stamps a fresh store with the current schema version
// and refuses stores written by a newer release.
func CheckDatabaseVersion(d db.Database, logger *log.Logger) error {
	version := rawdb.ReadDatabaseVersion(d, logger)
	if version == nil {
		rawdb.WriteDatabaseVersion(d, rawdb.DatabaseVersion, logger)
		return nil
	}
	if *version > rawdb.DatabaseVersion {
		return fmt.Errorf("database version %d is newer than supported version %d", *version, rawdb.DatabaseVersion)
	}
	return nil
}

// ParseGenesises parses a list of hex encoded genesis hashes, dropping
// duplicates.
func ParseGenesises(values []string) ([]common.Hash, error) {
	seen := make(map[common.Hash]struct{}, len(values))
	genesises := make([]common.Hash, 0, len(values))
	for _, value := range values {
		var genesis common.Hash
		if err := genesis.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
			return nil, fmt.Errorf("invalid genesis %q: %w", value, err)
		}
		if _, ok := seen[genesis]; ok {
			continue
		}
		seen[genesis] = struct{}{}
		genesises = append(genesises, genesis)
	}
	return genesises, nil
}

// ParseValidators parses a list of hex encoded x-only schnorr keys.
func ParseValidators(values []string) ([]common.Signer, error) {
	validators := make([]common.Signer, 0, len(values))
	for _, value := range values {
		var signer common.Signer
		if err := signer.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
			return nil, fmt.Errorf("invalid validator %q: %w", value, err)
		}
		validators = append(validators, signer)
	}
	return validators, nil
}

// MempoolConfig reads the mempool flags.
func MempoolConfig() core.MempoolConfig {
	config := core.DefaultMempoolConfig
	if viper.IsSet(AccountLimitFlag.Name) {
		config.AccountLimit = viper.GetInt(AccountLimitFlag.Name)
	}
	return config
}

// BlockInterval reads the block interval flag and rejects non-positive
// intervals.
func BlockInterval() (time.Duration, error) {
	interval := BlockIntervalFlag.Value.(time.Duration)
	if viper.IsSet(BlockIntervalFlag.Name) {
		interval = viper.GetDuration(BlockIntervalFlag.Name)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("%w: --%s=%v", core.ErrInvalidBlockInterval, BlockIntervalFlag.Name, interval)
	}
	return interval, nil
}

// StartTributaries loads one tributary per genesis from d. Each tributary logs
// to its own file under the data directory.
func StartTributaries(d db.Database, genesises []common.Hash, validators []common.Signer, logLevel string) (*core.Tributaries[types.SignedTx], error) {
	config := MempoolConfig()
	dataDir := viper.GetString(DataDirFlag.Name)

	tributaries := core.NewTributaries[types.SignedTx]()
	for _, genesis := range genesises {
		logFile := filepath.Join(dataDir, constants.LOG_DIR_NAME, genesis.Hex()+".log")
		logger := log.NewLogger(logFile, logLevel)
		tributary := core.NewTributary(d, genesis, validators, config, types.DecodeSignedTx, logger)
		if err := tributaries.Add(tributary); err != nil {
			return nil, err
		}
	}
	return tributaries, nil
}
