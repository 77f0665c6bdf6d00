package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of
	// the dex node
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the
	// values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// OperatorListeningPortKey is the port where the operator http interface
	// (metrics) listens on
	OperatorListeningPortKey = "OPERATOR_LISTENING_PORT"
	// StatsIntervalKey defines the interval in seconds for printing basic
	// book statistics
	StatsIntervalKey = "STATS_INTERVAL"

	// DbLocation is the subdirectory of the datadir holding the badger store
	DbLocation = "db"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("chaindexd", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("CHAINDEX")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(OperatorListeningPortKey, 9000)
	vip.SetDefault(StatsIntervalKey, 600)

	if err := initDatadir(); err != nil {
		log.WithError(err).Panic("error while creating datadir")
	}
}

//GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

//GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

//GetDatadir returns the data directory of the daemon
func GetDatadir() string {
	return GetString(DatadirKey)
}

//GetDbDir returns the location of the badger store
func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

//Set ...
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return fmt.Errorf("creating db dir: %w", err)
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
