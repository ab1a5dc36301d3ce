// Package config loads goSession settings from the environment, an optional .env
// file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/logger"
)

// EnvPrefix prefixes every environment variable, e.g. GOSESSION_API_URL.
const EnvPrefix = "GOSESSION"

// StoreKind selects the durable store backend.
type StoreKind string

const (
	StoreFile      StoreKind = "file"
	StoreRedis     StoreKind = "redis"
	StoreMiniredis StoreKind = "miniredis"
)

// Settings is everything a host process needs to build a Manager.
type Settings struct {
	Session goSession.Config
	Store   StoreSettings
	Log     logger.Level
}

// StoreSettings describes the durable store backend.
type StoreSettings struct {
	Kind StoreKind
	// Dir is the state directory of the file store.
	Dir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Options points Load at optional files. Missing files are ignored unless named
// explicitly in ConfigFile.
type Options struct {
	EnvFile    string
	ConfigFile string
}

// Load reads settings. Precedence, highest first: environment, .env file, config
// file, defaults.
func Load(opts Options) (*Settings, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file %s: %w", opts.ConfigFile, err)
		}
	}

	cfg := goSession.DefaultConfig()
	cfg.API.BaseURL = v.GetString("api_url")
	cfg.API.Timeout = v.GetDuration("api_timeout")
	cfg.API.RateLimit = v.GetFloat64("api_rate_limit")
	cfg.API.Burst = v.GetInt("api_burst")
	cfg.Session.MarkerTTL = v.GetDuration("marker_ttl")
	cfg.Session.LoginPath = v.GetString("login_path")
	if names := v.GetStringSlice("auth_cookies"); len(names) > 0 {
		cfg.Session.AuthCookieNames = splitList(names)
	}
	cfg.Verification.TTL = v.GetDuration("verify_ttl")
	cfg.Refresh.Enabled = v.GetBool("refresh_enabled")
	cfg.Refresh.Interval = v.GetDuration("refresh_interval")
	cfg.Properties.TTL = v.GetDuration("properties_ttl")
	cfg.Properties.ShareAcrossInstances = v.GetBool("properties_share")
	cfg.Sync.Disabled = v.GetBool("sync_disabled")
	cfg.Audit.Enabled = v.GetBool("audit_enabled")
	cfg.Metrics.Enabled = v.GetBool("metrics_enabled")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Settings{
		Session: cfg,
		Store: StoreSettings{
			Kind:          StoreKind(strings.ToLower(v.GetString("store"))),
			Dir:           v.GetString("state_dir"),
			RedisAddr:     v.GetString("redis_addr"),
			RedisPassword: os.Getenv(EnvPrefix + "_REDIS_PASSWORD"),
			RedisDB:       v.GetInt("redis_db"),
			RedisPrefix:   v.GetString("redis_prefix"),
		},
		Log: logger.ParseLevel(v.GetString("log_level")),
	}
	if err := s.Store.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	d := goSession.DefaultConfig()

	v.SetDefault("api_url", "")
	v.SetDefault("api_timeout", d.API.Timeout)
	v.SetDefault("api_rate_limit", d.API.RateLimit)
	v.SetDefault("api_burst", d.API.Burst)
	v.SetDefault("marker_ttl", d.Session.MarkerTTL)
	v.SetDefault("login_path", d.Session.LoginPath)
	v.SetDefault("auth_cookies", d.Session.AuthCookieNames)
	v.SetDefault("verify_ttl", d.Verification.TTL)
	v.SetDefault("refresh_enabled", d.Refresh.Enabled)
	v.SetDefault("refresh_interval", d.Refresh.Interval)
	v.SetDefault("properties_ttl", d.Properties.TTL)
	v.SetDefault("properties_share", d.Properties.ShareAcrossInstances)
	v.SetDefault("sync_disabled", d.Sync.Disabled)
	v.SetDefault("audit_enabled", d.Audit.Enabled)
	v.SetDefault("metrics_enabled", d.Metrics.Enabled)

	v.SetDefault("store", string(StoreFile))
	v.SetDefault("state_dir", defaultStateDir())
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_prefix", "gosession")
	v.SetDefault("log_level", "info")
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "gosession")
	}
	return filepath.Join(os.TempDir(), "gosession")
}

// splitList accepts both a real list and a single comma-separated value.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s StoreSettings) validate() error {
	switch s.Kind {
	case StoreFile:
		if s.Dir == "" {
			return errors.New("state_dir required for the file store")
		}
	case StoreRedis:
		if s.RedisAddr == "" {
			return errors.New("redis_addr required for the redis store")
		}
	case StoreMiniredis:
	default:
		return fmt.Errorf("unknown store %q (want file, redis or miniredis)", s.Kind)
	}
	return nil
}
