package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Auth.TokenURL != DefaultTokenURL {
		t.Errorf("Auth.TokenURL = %q, want %q", cfg.Auth.TokenURL, DefaultTokenURL)
	}
	if len(cfg.Auth.Scopes) != 1 || cfg.Auth.Scopes[0] != DefaultScope {
		t.Errorf("Auth.Scopes = %v, want [%s]", cfg.Auth.Scopes, DefaultScope)
	}
	if cfg.Publisher.BaseURL != DefaultPublisherBaseURL {
		t.Errorf("Publisher.BaseURL = %q, want %q", cfg.Publisher.BaseURL, DefaultPublisherBaseURL)
	}
	if cfg.Publisher.UploadBaseURL != DefaultPublisherBaseURL {
		t.Errorf("Publisher.UploadBaseURL = %q, want base URL fallback", cfg.Publisher.UploadBaseURL)
	}
	if cfg.Publisher.Timeout != 60*time.Second {
		t.Errorf("Publisher.Timeout = %v, want 60s", cfg.Publisher.Timeout)
	}
	if cfg.Publisher.UploadTimeout != 30*time.Minute {
		t.Errorf("Publisher.UploadTimeout = %v, want 30m", cfg.Publisher.UploadTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadFromEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("PLAYSHIP_PUBLISHER_PROXY_URL", "socks5://127.0.0.1:1080")
	t.Setenv("PLAYSHIP_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Publisher.ProxyURL != "socks5://127.0.0.1:1080" {
		t.Errorf("Publisher.ProxyURL = %q, want env override", cfg.Publisher.ProxyURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug (lowered)", cfg.Log.Level)
	}
}

func TestValidateRejectsBadURL(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	cfg.Publisher.BaseURL = "not-a-url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted an invalid publisher.base_url")
	}

	cfg.Publisher.BaseURL = DefaultPublisherBaseURL
	cfg.Publisher.Timeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted a zero publisher.timeout")
	}
}
