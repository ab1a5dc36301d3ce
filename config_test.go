package goSession

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantValid: true},
		{
			name:      "base url valid",
			mutate:    func(c *Config) { c.API.BaseURL = "https://api.example.com/v1" },
			wantValid: true,
		},
		{
			name:      "base url relative invalid",
			mutate:    func(c *Config) { c.API.BaseURL = "/api" },
			wantValid: false,
		},
		{
			name:      "timeout zero invalid",
			mutate:    func(c *Config) { c.API.Timeout = 0 },
			wantValid: false,
		},
		{
			name:      "rate limit without burst invalid",
			mutate:    func(c *Config) { c.API.RateLimit = 5; c.API.Burst = 0 },
			wantValid: false,
		},
		{
			name:      "rate limit disabled ignores burst",
			mutate:    func(c *Config) { c.API.RateLimit = 0; c.API.Burst = 0 },
			wantValid: true,
		},
		{
			name:      "marker ttl zero invalid",
			mutate:    func(c *Config) { c.Session.MarkerTTL = 0 },
			wantValid: false,
		},
		{
			name:      "blank cookie name invalid",
			mutate:    func(c *Config) { c.Session.AuthCookieNames = []string{"token", " "} },
			wantValid: false,
		},
		{
			name:      "login path relative invalid",
			mutate:    func(c *Config) { c.Session.LoginPath = "login" },
			wantValid: false,
		},
		{
			name:      "verification ttl zero invalid",
			mutate:    func(c *Config) { c.Verification.TTL = 0 },
			wantValid: false,
		},
		{
			name:      "refresh min above interval invalid",
			mutate:    func(c *Config) { c.Refresh.MinInterval = 13 * time.Hour },
			wantValid: false,
		},
		{
			name:      "refresh disabled ignores interval",
			mutate:    func(c *Config) { c.Refresh.Enabled = false; c.Refresh.Interval = 0 },
			wantValid: true,
		},
		{
			name:      "negative leeway invalid",
			mutate:    func(c *Config) { c.Refresh.ExpiryLeeway = -time.Second },
			wantValid: false,
		},
		{
			name:      "properties ttl zero invalid",
			mutate:    func(c *Config) { c.Properties.TTL = 0 },
			wantValid: false,
		},
		{
			name:      "audit buffer zero invalid",
			mutate:    func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestDefaultConfigTimings(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Verification.TTL != 5*time.Minute || cfg.Session.MarkerTTL != 5*time.Minute || cfg.Properties.TTL != 5*time.Minute {
		t.Fatal("cache windows must default to 5 minutes")
	}
	if cfg.Refresh.Interval != 12*time.Hour {
		t.Fatalf("refresh interval = %v, want 12h", cfg.Refresh.Interval)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Fatalf("api timeout = %v, want 5s", cfg.API.Timeout)
	}
}

func TestCloneConfigCopiesCookieNames(t *testing.T) {
	cfg := DefaultConfig()
	clone := cloneConfig(cfg)
	clone.Session.AuthCookieNames[0] = "changed"
	if cfg.Session.AuthCookieNames[0] == "changed" {
		t.Fatal("cloneConfig must not share AuthCookieNames")
	}
}
