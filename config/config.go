package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAPIURL         = "https://app.cobic.io/api"
	DefaultEnvironment    = "production"
	DefaultAppVersion     = "1.0.0"
	DefaultRequestTimeout = 15 * time.Second
	DefaultUploadTimeout  = 30 * time.Second
	DefaultSandboxAddr    = ":9000"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds client and sandbox settings
type Config struct {
	APIURL         string
	Environment    string
	Platform       string
	AppVersion     string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration

	Store     string
	StorePath string
	RedisURL  string
	Events    string

	LogLevel  string
	LogFormat string

	Sandbox *Sandbox
	Viper   *viper.Viper
}

// Sandbox holds settings of the development backend
type Sandbox struct {
	Addr            string
	JWTSecret       string
	TokenTTL        time.Duration
	MiningCooldown  time.Duration
	CheckInCooldown time.Duration
	MiningReward    string
	CheckInReward   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("environment", DefaultEnvironment)
	v.SetDefault("platform", runtime.GOOS)
	v.SetDefault("app_version", DefaultAppVersion)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("upload_timeout", DefaultUploadTimeout)
	v.SetDefault("store", StoreFile)
	v.SetDefault("store_path", "")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("events", "memory")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("sandbox.addr", DefaultSandboxAddr)
	v.SetDefault("sandbox.jwt_secret", "cobic-sandbox-secret")
	v.SetDefault("sandbox.token_ttl", 7*24*time.Hour)
	v.SetDefault("sandbox.mining_cooldown", 24*time.Hour)
	v.SetDefault("sandbox.checkin_cooldown", 24*time.Hour)
	v.SetDefault("sandbox.mining_reward", "1.5")
	v.SetDefault("sandbox.checkin_reward", "5")
}

// Load reads configuration from an optional YAML file and COBIC_* variables.
// An empty path looks for config.yaml in ~/.cobic and the working directory;
// a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".cobic"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("COBIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		APIURL:         strings.TrimRight(v.GetString("api_url"), "/"),
		Environment:    v.GetString("environment"),
		Platform:       v.GetString("platform"),
		AppVersion:     v.GetString("app_version"),
		RequestTimeout: v.GetDuration("request_timeout"),
		UploadTimeout:  v.GetDuration("upload_timeout"),
		Store:          v.GetString("store"),
		StorePath:      v.GetString("store_path"),
		RedisURL:       v.GetString("redis_url"),
		Events:         v.GetString("events"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
		Sandbox:        getSandboxConfig(v),
		Viper:          v,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getSandboxConfig(v *viper.Viper) *Sandbox {
	return &Sandbox{
		Addr:            v.GetString("sandbox.addr"),
		JWTSecret:       v.GetString("sandbox.jwt_secret"),
		TokenTTL:        v.GetDuration("sandbox.token_ttl"),
		MiningCooldown:  v.GetDuration("sandbox.mining_cooldown"),
		CheckInCooldown: v.GetDuration("sandbox.checkin_cooldown"),
		MiningReward:    v.GetString("sandbox.mining_reward"),
		CheckInReward:   v.GetString("sandbox.checkin_reward"),
	}
}

// Validate checks the settings that have a closed set of values
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url must not be empty")
	}
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}
	switch c.Events {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown events backend %q", c.Events)
	}
	if c.RequestTimeout <= 0 || c.UploadTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
