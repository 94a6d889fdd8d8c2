package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Config keys, shared by the config file, ORGDASH_* environment variables and flags.
const (
	KeyBaseURL        = "base_url"
	KeyLocale         = "locale"
	KeySessionDB      = "session_db"
	KeySessionTTL     = "session.ttl"
	KeyRequestTimeout = "request_timeout"
	KeyLogoutTimeout  = "logout_timeout"
	KeyCacheDir       = "cache_dir"
	KeyLogLevel       = "log_level"
)

// Config is the resolved client configuration
type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	Locale         string        `mapstructure:"locale"`
	SessionDB      string        `mapstructure:"session_db"`
	SessionTTL     time.Duration `mapstructure:"-"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	LogoutTimeout  time.Duration `mapstructure:"logout_timeout"`
	CacheDir       string        `mapstructure:"cache_dir"`
	LogLevel       string        `mapstructure:"log_level"`
}

// ConfigDir returns the per-user directory holding config, session and cache files.
func ConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".orgdash"
	}
	return filepath.Join(homeDir, ".orgdash")
}

// NewViper returns a viper instance with defaults and environment binding applied.
func NewViper() *viper.Viper {
	v := viper.New()
	dir := ConfigDir()

	v.SetDefault(KeyBaseURL, "http://localhost:8000")
	v.SetDefault(KeyLocale, "en")
	v.SetDefault(KeySessionDB, filepath.Join(dir, "session.db"))
	v.SetDefault(KeySessionTTL, 24*time.Hour)
	v.SetDefault(KeyRequestTimeout, 15*time.Second)
	v.SetDefault(KeyLogoutTimeout, 3*time.Second)
	v.SetDefault(KeyCacheDir, filepath.Join(dir, "cache"))
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix("ORGDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig reads configFile (or config.yaml from ConfigDir when empty) into v and
// returns the validated configuration. A missing default config file is not an error.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, &ConfigError{Key: "config", Err: err}
		}
		LogDebug("No config file found, using defaults and environment")
	} else {
		LogDebug("Using config file %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Key: "config", Err: err}
	}
	cfg.SessionTTL = v.GetDuration(KeySessionTTL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that would otherwise fail much later.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return &ConfigError{Key: KeyBaseURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Key: KeyBaseURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return &ConfigError{Key: KeyLocale, Err: err}
	}
	if c.SessionTTL <= 0 {
		return &ConfigError{Key: KeySessionTTL, Err: fmt.Errorf("must be positive, got %s", c.SessionTTL)}
	}
	if c.RequestTimeout <= 0 {
		return &ConfigError{Key: KeyRequestTimeout, Err: fmt.Errorf("must be positive, got %s", c.RequestTimeout)}
	}
	if c.LogoutTimeout <= 0 {
		return &ConfigError{Key: KeyLogoutTimeout, Err: fmt.Errorf("must be positive, got %s", c.LogoutTimeout)}
	}
	return nil
}
