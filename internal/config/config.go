// Package config provides configuration loading, defaults, and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultPublisherBaseURL is the Play publishing API endpoint.
	DefaultPublisherBaseURL = "https://androidpublisher.googleapis.com"
	// DefaultTokenURL is the Google OAuth2 token endpoint.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"
	// DefaultScope authorizes Play publishing calls.
	DefaultScope = "https://www.googleapis.com/auth/androidpublisher"
)

type Config struct {
	Auth      AuthConfig      `mapstructure:"auth"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Log       LogConfig       `mapstructure:"log"`
}

type AuthConfig struct {
	TokenURL string   `mapstructure:"token_url"`
	Scopes   []string `mapstructure:"scopes"`
	// Timeout bounds the token-exchange round trip.
	Timeout time.Duration `mapstructure:"timeout"`
}

type PublisherConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// UploadBaseURL defaults to BaseURL; the upload path prefix differs, not the host.
	UploadBaseURL string        `mapstructure:"upload_base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
	ProxyURL      string        `mapstructure:"proxy_url"`
}

type LogConfig struct {
	Level           string            `mapstructure:"level"`
	Format          string            `mapstructure:"format"`
	ServiceName     string            `mapstructure:"service_name"`
	Caller          bool              `mapstructure:"caller"`
	StacktraceLevel string            `mapstructure:"stacktrace_level"`
	Output          LogOutputConfig   `mapstructure:"output"`
	Rotation        LogRotationConfig `mapstructure:"rotation"`
}

type LogOutputConfig struct {
	ToStdout bool   `mapstructure:"to_stdout"`
	ToFile   bool   `mapstructure:"to_file"`
	FilePath string `mapstructure:"file_path"`
}

type LogRotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
	LocalTime  bool `mapstructure:"local_time"`
}

// Load reads and validates the configuration. A missing config file is fine;
// defaults plus environment variables are enough to run.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if dataDir := os.Getenv("PLAYSHIP_DATA_DIR"); dataDir != "" {
		viper.AddConfigPath(dataDir)
	}
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/playship")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PLAYSHIP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}

	cfg.Auth.TokenURL = strings.TrimSpace(cfg.Auth.TokenURL)
	cfg.Auth.Scopes = normalizeStringSlice(cfg.Auth.Scopes)
	cfg.Publisher.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Publisher.BaseURL), "/")
	cfg.Publisher.UploadBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Publisher.UploadBaseURL), "/")
	if cfg.Publisher.UploadBaseURL == "" {
		cfg.Publisher.UploadBaseURL = cfg.Publisher.BaseURL
	}
	cfg.Publisher.ProxyURL = strings.TrimSpace(cfg.Publisher.ProxyURL)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Log.ServiceName = strings.TrimSpace(cfg.Log.ServiceName)
	cfg.Log.StacktraceLevel = strings.ToLower(strings.TrimSpace(cfg.Log.StacktraceLevel))
	cfg.Log.Output.FilePath = strings.TrimSpace(cfg.Log.Output.FilePath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config error: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("auth.token_url", DefaultTokenURL)
	viper.SetDefault("auth.scopes", []string{DefaultScope})
	viper.SetDefault("auth.timeout", 30*time.Second)

	viper.SetDefault("publisher.base_url", DefaultPublisherBaseURL)
	viper.SetDefault("publisher.upload_base_url", "")
	viper.SetDefault("publisher.timeout", 60*time.Second)
	viper.SetDefault("publisher.upload_timeout", 30*time.Minute)
	viper.SetDefault("publisher.proxy_url", "")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.service_name", "playship")
	viper.SetDefault("log.caller", false)
	viper.SetDefault("log.stacktrace_level", "error")
	viper.SetDefault("log.output.to_stdout", true)
	viper.SetDefault("log.output.to_file", false)
	viper.SetDefault("log.output.file_path", "")
	viper.SetDefault("log.rotation.max_size_mb", 50)
	viper.SetDefault("log.rotation.max_backups", 5)
	viper.SetDefault("log.rotation.max_age_days", 7)
	viper.SetDefault("log.rotation.compress", true)
	viper.SetDefault("log.rotation.local_time", true)
}

func (c *Config) Validate() error {
	if err := validateURL("auth.token_url", c.Auth.TokenURL); err != nil {
		return err
	}
	if len(c.Auth.Scopes) == 0 {
		return fmt.Errorf("auth.scopes must not be empty")
	}
	if err := validateURL("publisher.base_url", c.Publisher.BaseURL); err != nil {
		return err
	}
	if err := validateURL("publisher.upload_base_url", c.Publisher.UploadBaseURL); err != nil {
		return err
	}
	if c.Publisher.Timeout <= 0 {
		return fmt.Errorf("publisher.timeout must be positive")
	}
	if c.Publisher.UploadTimeout <= 0 {
		return fmt.Errorf("publisher.upload_timeout must be positive")
	}
	return nil
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s is not a valid URL: %q", key, raw)
	}
	return nil
}

func normalizeStringSlice(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
