package config

import (
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
)

const (
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATADIR"
	// WalletsFileKey is the path of the JSON file holding the wallet list, relative paths resolve against the datadir
	WalletsFileKey = "WALLETS_FILE"
	// LocalUpdatePeriodKey is the delay between balance/sync polls against a node running on this machine
	LocalUpdatePeriodKey = "LOCAL_UPDATE_PERIOD"
	// RemoteUpdatePeriodKey is the delay between polls against a remote or public node. Kept coarser than
	// the local period on purpose to reduce the load put on shared infrastructure
	RemoteUpdatePeriodKey = "REMOTE_UPDATE_PERIOD"
	// ErrorUpdatePeriodKey is the retry delay after a failed poll
	ErrorUpdatePeriodKey = "ERROR_UPDATE_PERIOD"
	// RPCTimeoutKey is the per-request timeout for node calls
	RPCTimeoutKey = "RPC_TIMEOUT"
	// RPCRateLimitKey caps node requests per second, 0 disables the limiter
	RPCRateLimitKey = "RPC_RATE_LIMIT"
	// RPCTokenBurstKey is the limiter burst size
	RPCTokenBurstKey = "RPC_TOKEN_BURST"
	// NoNotesStoreKey disables the local transaction-note store
	NoNotesStoreKey = "NO_NOTES_STORE"

	NotesDbLocation = "notes"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("mwallet-daemon", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("MWALLET")
	vip.AutomaticEnv()

	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(WalletsFileKey, "wallets.json")
	vip.SetDefault(LocalUpdatePeriodKey, 10*time.Second)
	vip.SetDefault(RemoteUpdatePeriodKey, 90*time.Second)
	vip.SetDefault(ErrorUpdatePeriodKey, 5*time.Second)
	vip.SetDefault(RPCTimeoutKey, 15*time.Second)
	vip.SetDefault(RPCRateLimitKey, 10.0)
	vip.SetDefault(RPCTokenBurstKey, 1)
	vip.SetDefault(NoNotesStoreKey, false)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	for _, key := range []string{
		LocalUpdatePeriodKey, RemoteUpdatePeriodKey, ErrorUpdatePeriodKey,
	} {
		if GetDuration(key) <= 0 {
			return fmt.Errorf("%s must be a positive duration", key)
		}
	}

	if GetFloat(RPCRateLimitKey) < 0 {
		return fmt.Errorf("%s must not be negative", RPCRateLimitKey)
	}

	return nil
}

func initDatadir() error {
	return makeDirectoryIfNotExists(GetDatadir())
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
