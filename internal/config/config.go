package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys understood in kb.yaml, KB_* environment variables and bound flags.
const (
	KeyDB             = "db"
	KeyServer         = "server"
	KeyAddr           = "addr"
	KeyDeleteDebounce = "delete_debounce"
	KeyLogLevel       = "log_level"
)

// DefaultDeleteDebounce is the quiet window before a delete trigger fires.
const DefaultDeleteDebounce = 200 * time.Millisecond

// Config holds resolved settings for the kb CLI
type Config struct {
	DBPath         string
	Server         string
	Addr           string
	DeleteDebounce time.Duration
	LogLevel       string
}

// NewViper returns a viper instance with kb defaults and search paths applied.
func NewViper() *viper.Viper {
	v := viper.New()

	home, _ := os.UserHomeDir()
	v.SetDefault(KeyDB, filepath.Join(home, ".kb", "kb.db"))
	v.SetDefault(KeyServer, "")
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyDeleteDebounce, DefaultDeleteDebounce)
	v.SetDefault(KeyLogLevel, "info")

	v.SetConfigName("kb")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(home, ".kb"))
	v.AddConfigPath(".")

	v.SetEnvPrefix("KB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file (explicit path or search paths) and resolves settings.
// A missing config file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		DBPath:         v.GetString(KeyDB),
		Server:         strings.TrimRight(v.GetString(KeyServer), "/"),
		Addr:           v.GetString(KeyAddr),
		DeleteDebounce: v.GetDuration(KeyDeleteDebounce),
		LogLevel:       v.GetString(KeyLogLevel),
	}

	if cfg.DeleteDebounce < 0 {
		return nil, fmt.Errorf("invalid %s: %s", KeyDeleteDebounce, cfg.DeleteDebounce)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyDB)
	}

	return cfg, nil
}
