package utils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/dominant-strategies/go-tributary/common/constants"
	"github.com/dominant-strategies/go-tributary/log"
)

// InitConfig initializes the viper config instance ensuring that environment variables
// take precedence over config file parameters.
// Environment variables should be prefixed with the application name (e.g. GO_TRIBUTARY_LOG_LEVEL).
// It panics if an error occurs while reading the config file.
func InitConfig() {
	// read in config file and merge with defaults
	log.Global.Infof("Loading config from file: %s", viper.ConfigFileUsed())
	err := viper.ReadInConfig()
	if err != nil {
		// if error is type ConfigFileNotFoundError or fs.PathError, ignore error
		if _, ok := err.(*fs.PathError); ok || errors.Is(err, viper.ConfigFileNotFoundError{}) {
			log.Global.Warnf("Config file not found: %s", viper.ConfigFileUsed())
		} else {
			log.Global.Errorf("Error reading config file: %s", err)
			// config file was found but another error was produced. Cannot continue
			panic(err)
		}
	}

	log.Global.Infof("Loading config from environment variables with prefix: '%s_'", constants.ENV_PREFIX)
	viper.SetEnvPrefix(constants.ENV_PREFIX)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// SaveConfig saves the config file with the current config parameters.
//
// If the config file exists, it creates a backup copy ending with .bak
// and overwrites the existing config file.
func SaveConfig() error {
	configFile := viper.ConfigFileUsed()
	log.Global.Debugf("saving/updating config file: %s", configFile)
	if _, err := os.Stat(configFile); err == nil {
		// config file exists, create backup copy
		if err := os.Rename(configFile, configFile+".bak"); err != nil {
			return err
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
			return err
		}
	} else {
		return err
	}
	return viper.WriteConfigAs(configFile)
}

// WriteDefaultConfigFile writes the default value of every flag, overridden by
// any value viper already holds, to configDir/fileName. Flag names containing
// a dot are written as tables.
func WriteDefaultConfigFile(configDir string, fileName string, fileType string) error {
	if fileType != constants.CONFIG_FILE_TYPE {
		return errors.New("unsupported config file type: " + fileType)
	}

	settings := make(map[string]interface{})
	for _, flagGroup := range Flags {
		for _, flag := range flagGroup {
			value := flag.Value
			if viper.IsSet(flag.Name) {
				value = viper.Get(flag.Name)
			}
			if d, ok := value.(time.Duration); ok {
				value = d.String()
			}
			setNested(settings, strings.Split(flag.Name, "."), value)
		}
	}

	enc, err := toml.Marshal(settings)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(configDir, fileName), enc, 0644)
}

func setNested(settings map[string]interface{}, path []string, value interface{}) {
	if len(path) == 1 {
		settings[path[0]] = value
		return
	}
	child, ok := settings[path[0]].(map[string]interface{})
	if !ok {
		child = make(map[string]interface{})
		settings[path[0]] = child
	}
	setNested(child, path[1:], value)
}
