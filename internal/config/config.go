package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "cargadero/libs/config"
)

// Config defines the full service configuration. One immutable value is built
// at process start and handed to each component explicitly.
type Config struct {
	HTTP struct {
		Port            string  `yaml:"port" env:"HTTP_PORT"`
		RateLimitPerSec float64 `yaml:"rateLimitPerSec" env:"HTTP_RATE_LIMIT"`
		RateLimitBurst  int     `yaml:"rateLimitBurst" env:"HTTP_RATE_BURST"`
		CacheTTLSeconds int     `yaml:"cacheTtlSeconds" env:"HTTP_CACHE_TTL"`
	} `yaml:"http"`

	Auth struct {
		APIToken string `yaml:"apiToken" env:"API_TOKEN"`
	} `yaml:"auth"`

	Database struct {
		DSN string `yaml:"dsn" env:"DATABASE_URL"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		TTL      int    `yaml:"ttlSeconds" env:"REDIS_TTL"`
	} `yaml:"redis"`

	Access struct {
		DefaultStationID string  `yaml:"defaultStationId" env:"STATION_ID"`
		DefaultMaxLiters float64 `yaml:"defaultMaxLiters" env:"ACCESS_MAX_LITERS"`
		MaxAttempts      int     `yaml:"maxAttempts" env:"ACCESS_MAX_ATTEMPTS"`
		LockoutMinutes   int     `yaml:"lockoutMinutes" env:"ACCESS_LOCKOUT_MINUTES"`
	} `yaml:"access"`

	PLC struct {
		BaseURL        string `yaml:"baseUrl" env:"PLC_BASE_URL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds" env:"PLC_TIMEOUT"`
	} `yaml:"plc"`

	Automation struct {
		DispatchWebhook string `yaml:"dispatchWebhook" env:"NODE_RED_DISPATCH_WEBHOOK"`
		TimeoutSeconds  int    `yaml:"timeoutSeconds" env:"AUTOMATION_TIMEOUT"`
	} `yaml:"automation"`

	Storage struct {
		BaseURL     string `yaml:"baseUrl" env:"SUPABASE_URL"`
		ServiceRole string `yaml:"serviceRole" env:"SUPABASE_SERVICE_ROLE"`
		Bucket      string `yaml:"bucket" env:"STORAGE_BUCKET"`
		Prefix      string `yaml:"prefix" env:"STORAGE_PREFIX"`
	} `yaml:"storage"`

	Camera struct {
		SnapshotURL string `yaml:"snapshotUrl" env:"CAMERA_SNAPSHOT_URL"`
		User        string `yaml:"user" env:"CAMERA_USER"`
		Password    string `yaml:"password" env:"CAMERA_PASS"`
	} `yaml:"camera"`

	Sync struct {
		Mode        string `yaml:"mode" env:"SYNC_MODE"`
		DeviceURL   string `yaml:"deviceUrl" env:"SYNC_DEVICE_URL"`
		DeviceUser  string `yaml:"deviceUser" env:"SYNC_DEVICE_USER"`
		DevicePass  string `yaml:"devicePass" env:"SYNC_DEVICE_PASS"`
		GatewayURL  string `yaml:"gatewayUrl" env:"SYNC_GATEWAY_URL"`
		TemplateURL string `yaml:"templateUrl" env:"SYNC_TEMPLATE_URL"`
		DoorNo      int    `yaml:"doorNo" env:"SYNC_DOOR_NO"`
	} `yaml:"sync"`
}

// Sync modes.
const (
	SyncModeDevice   = "device"
	SyncModeGateway  = "gateway"
	SyncModeTemplate = "template"
)

// Load reads configuration via the shared helper and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.HTTP.RateLimitPerSec = 10
	cfg.HTTP.RateLimitBurst = 5
	cfg.HTTP.CacheTTLSeconds = 60
	cfg.Redis.TTL = 86400
	cfg.Access.DefaultStationID = "PALACIO"
	cfg.Access.DefaultMaxLiters = 10000
	cfg.Access.MaxAttempts = 5
	cfg.Access.LockoutMinutes = 15
	cfg.PLC.TimeoutSeconds = 3
	cfg.Automation.TimeoutSeconds = 5
	cfg.Storage.Bucket = "cargadero"
	cfg.Storage.Prefix = "photos"
	cfg.Sync.Mode = SyncModeGateway
	cfg.Sync.DoorNo = 1

	if err := libconfig.Load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	switch cfg.Sync.Mode {
	case SyncModeDevice, SyncModeGateway, SyncModeTemplate:
	default:
		return nil, fmt.Errorf("config: unknown sync mode %q", cfg.Sync.Mode)
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// ActiveDispatchTTL returns the redis cache ttl as duration.
func (c *Config) ActiveDispatchTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}

// PLCTimeout returns the per-command timeout for digital output calls.
func (c *Config) PLCTimeout() time.Duration {
	if c.PLC.TimeoutSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.PLC.TimeoutSeconds) * time.Second
}

// AutomationTimeout bounds the fire-and-forget dispatch notification.
func (c *Config) AutomationTimeout() time.Duration {
	if c.Automation.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Automation.TimeoutSeconds) * time.Second
}

// LockoutDuration returns how long a credential stays locked after too many failures.
func (c *Config) LockoutDuration() time.Duration {
	if c.Access.LockoutMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Access.LockoutMinutes) * time.Minute
}
