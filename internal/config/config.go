package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. GNODESK_NODE.
const EnvPrefix = "GNODESK"

// Config holds the settings shared by every command.
type Config struct {
	NodeURL      string
	SignerURL    string
	SignMethod   string
	ChainID      string
	Caller       string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string

	ExchangePath   string
	GRC20Registry  string
	GRC721Registry string
	GRC721Package  string
	NativeDenom    string

	FeeAmount uint64
	FeeDenom  string
	GasWanted int64
	FeeBps    uint64

	Journal string
	PGDSN   string
}

// SyncConfig adds the snapshot loop settings.
type SyncConfig struct {
	Config
	Rounds            uint64
	Interval          time.Duration
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	MetricsAddr       string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v), nil
}

// LoadSync is Load plus the sync command's settings.
func LoadSync(cfgFile string, flags *pflag.FlagSet) (SyncConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SyncConfig{}, err
	}
	return SyncConfig{
		Config:            fromViper(v),
		Rounds:            v.GetUint64("rounds"),
		Interval:          v.GetDuration("interval"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MetricsAddr:       v.GetString("metrics-addr"),
	}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	if err := loadDotenv(flags); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("node", "http://127.0.0.1:26657")
	v.SetDefault("sign-method", "gnosign_signAndBroadcast")
	v.SetDefault("chain-id", "dev")
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	v.SetDefault("exchange", "gno.land/r/demo/exchange")
	v.SetDefault("grc20-registry", "gno.land/r/demo/grc20reg")
	v.SetDefault("grc721-registry", "gno.land/r/demo/grc721reg")
	v.SetDefault("grc721-package", "gno.land/p/demo/grc/grc721")
	v.SetDefault("native-denom", "ugnot")

	v.SetDefault("fee-amount", uint64(1000000))
	v.SetDefault("fee-denom", "ugnot")
	v.SetDefault("gas-wanted", int64(10000000))
	v.SetDefault("fee-bps", uint64(30))

	v.SetDefault("interval", 30*time.Second)
	v.SetDefault("out", "./data/snapshots.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
}

func fromViper(v *viper.Viper) Config {
	return Config{
		NodeURL:      v.GetString("node"),
		SignerURL:    v.GetString("signer"),
		SignMethod:   v.GetString("sign-method"),
		ChainID:      v.GetString("chain-id"),
		Caller:       v.GetString("caller"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),

		ExchangePath:   v.GetString("exchange"),
		GRC20Registry:  v.GetString("grc20-registry"),
		GRC721Registry: v.GetString("grc721-registry"),
		GRC721Package:  v.GetString("grc721-package"),
		NativeDenom:    v.GetString("native-denom"),

		FeeAmount: v.GetUint64("fee-amount"),
		FeeDenom:  v.GetString("fee-denom"),
		GasWanted: v.GetInt64("gas-wanted"),
		FeeBps:    v.GetUint64("fee-bps"),

		Journal: v.GetString("journal"),
		PGDSN:   v.GetString("pg-dsn"),
	}
}

// loadDotenv reads the --env-file flag, or ./.env when unset, into the
// process environment. Variables already set win. A missing default file
// is not an error.
func loadDotenv(flags *pflag.FlagSet) error {
	path := ""
	if flags != nil {
		if f := flags.Lookup("env-file"); f != nil {
			path = f.Value.String()
		}
	}
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// SplitList parses a comma-separated flag value into trimmed, non-empty items.
func SplitList(input string) []string {
	return splitAndClean(input)
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
