package goSession

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines every tunable of the session manager.
//
// Config instances are intended to be configured during initialization and then
// treated as immutable.
type Config struct {
	API          APIConfig
	Session      SessionConfig
	Verification VerificationConfig
	Refresh      RefreshConfig
	Properties   PropertiesConfig
	Sync         SyncConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig describes the collaborator REST API.
type APIConfig struct {
	// BaseURL is the API root. Required unless a client is supplied with
	// Builder.WithAPIClient; also scopes cookie clearing on logout.
	BaseURL string
	// Timeout bounds every round trip (verify, login, refresh, logout, properties).
	Timeout time.Duration
	// RateLimit is the sustained outbound request rate per second; 0 disables.
	RateLimit float64
	Burst     int
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls startup and logout.
type SessionConfig struct {
	// MarkerTTL is how long a full startup verification lets later startups skip
	// verification.
	MarkerTTL time.Duration
	// AuthCookieNames are expired in the cookie jar on logout.
	AuthCookieNames []string
	// LoginPath is where unauthenticated consumers are sent.
	LoginPath string
}

// VerificationConfig controls the verification cache.
type VerificationConfig struct {
	TTL time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls the background refresher.
type RefreshConfig struct {
	Enabled bool
	// Interval is the period between background refreshes.
	Interval time.Duration
	// ExpiryLeeway moves a refresh ahead of a known token expiry.
	ExpiryLeeway time.Duration
	// MinInterval bounds how soon an expiry-driven refresh may run.
	MinInterval time.Duration
}

// PropertiesConfig controls the property cache.
type PropertiesConfig struct {
	TTL time.Duration
	// ShareAcrossInstances mirrors fetched lists to the durable store so other
	// instances adopt them without fetching.
	ShareAcrossInstances bool
}

// SyncConfig controls cross-instance synchronization.
type SyncConfig struct {
	// Disabled stops Build from watching the durable store.
	Disabled bool
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:   5 * time.Second,
			RateLimit: 20,
			Burst:     10,
		},
		Session: SessionConfig{
			MarkerTTL:       5 * time.Minute,
			AuthCookieNames: []string{"token", "refresh_token", "auth_session"},
			LoginPath:       "/login",
		},
		Verification: VerificationConfig{
			TTL: 5 * time.Minute,
		},
		Refresh: RefreshConfig{
			Enabled:      true,
			Interval:     12 * time.Hour,
			ExpiryLeeway: time.Minute,
			MinInterval:  30 * time.Second,
		},
		Properties: PropertiesConfig{
			TTL:                  5 * time.Minute,
			ShareAcrossInstances: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Session.AuthCookieNames != nil {
		out.Session.AuthCookieNames = append([]string(nil), cfg.Session.AuthCookieNames...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// API
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("API BaseURL must be an absolute http(s) URL")
		}
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}
	if c.API.RateLimit < 0 {
		return errors.New("API RateLimit must be >= 0")
	}
	if c.API.RateLimit > 0 && c.API.Burst < 1 {
		return errors.New("API Burst must be >= 1 when RateLimit is set")
	}

	// Session
	if c.Session.MarkerTTL <= 0 {
		return errors.New("Session MarkerTTL must be > 0")
	}
	for _, name := range c.Session.AuthCookieNames {
		if strings.TrimSpace(name) == "" {
			return errors.New("Session AuthCookieNames must not contain blank names")
		}
	}
	if !strings.HasPrefix(c.Session.LoginPath, "/") {
		return errors.New("Session LoginPath must start with /")
	}

	// Verification
	if c.Verification.TTL <= 0 {
		return errors.New("Verification TTL must be > 0")
	}

	// Refresh
	if c.Refresh.Enabled {
		if c.Refresh.Interval <= 0 {
			return errors.New("Refresh Interval must be > 0")
		}
		if c.Refresh.MinInterval <= 0 {
			return errors.New("Refresh MinInterval must be > 0")
		}
		if c.Refresh.MinInterval > c.Refresh.Interval {
			return errors.New("Refresh MinInterval must be <= Interval")
		}
		if c.Refresh.ExpiryLeeway < 0 {
			return errors.New("Refresh ExpiryLeeway must be >= 0")
		}
	}

	// Properties
	if c.Properties.TTL <= 0 {
		return errors.New("Properties TTL must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
