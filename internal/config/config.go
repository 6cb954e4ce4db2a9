package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultSourceURL is the shared IW58 base the dashboard was built around.
const DefaultSourceURL = "https://drive.google.com/uc?id=1JRI_yTUKrj94ocfMLa1Llh9jRU-z4FOd"

// Global configuration structure.
type Global struct {
	SourceURL string `mapstructure:"source_url" yaml:"source_url"`
	// Snapshot cache
	CacheTTLSec  int  `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	KeepLastGood bool `mapstructure:"keep_last_good" yaml:"keep_last_good"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Analysis
	DefaultState     string              `mapstructure:"default_state" yaml:"default_state"`
	MonthLocale      string              `mapstructure:"month_locale" yaml:"month_locale"`
	DropInvalidDates bool                `mapstructure:"drop_invalid_dates" yaml:"drop_invalid_dates"`
	Encodings        []string            `mapstructure:"encodings" yaml:"encodings"`
	RoleKeywords     map[string][]string `mapstructure:"role_keywords" yaml:"role_keywords,omitempty"`

	// Server
	ListenAddr   string `mapstructure:"listen_addr" yaml:"listen_addr"`
	AuthUser     string `mapstructure:"auth_user" yaml:"auth_user"`
	AuthPassword string `mapstructure:"auth_password" yaml:"auth_password"`

	ExportDir string `mapstructure:"export_dir" yaml:"export_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// CacheTTL returns the snapshot lifetime.
func (c *Global) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSec) * time.Second }

// HTTPTimeout returns the per-attempt fetch timeout.
func (c *Global) HTTPTimeout() time.Duration { return time.Duration(c.HTTPTimeoutSec) * time.Second }

// RetryBaseDelay returns the first backoff step.
func (c *Global) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

// RetryMaxDelay returns the backoff cap.
func (c *Global) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

// Dir returns ~/.iw58.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".iw58"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.iw58/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// may hold auth_password
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source_url", DefaultSourceURL)
	v.SetDefault("cache_ttl_sec", 600)
	v.SetDefault("keep_last_good", false)
	v.SetDefault("http_timeout_sec", 45)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("default_state", "TOTAL")
	v.SetDefault("month_locale", "pt")
	v.SetDefault("drop_invalid_dates", false)
	v.SetDefault("encodings", []string{"utf-8-sig", "utf-8", "windows-1252", "latin-1"})
	v.SetDefault("listen_addr", "127.0.0.1:8501")
	v.SetDefault("auth_user", "")
	v.SetDefault("auth_password", "")
	v.SetDefault("export_dir", ".")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("IW58")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
