package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"prismabox-scraper/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	APIKey    string        `yaml:"api_key"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type JobsConfig struct {
	// AutoCreateMissing keeps mutations addressed to unknown job ids from
	// being lost: the store creates a placeholder record and logs it. Off,
	// such mutations fail with a not-found error. Defaults to on.
	AutoCreateMissing *bool         `yaml:"auto_create_missing"`
	Retention         time.Duration `yaml:"retention"`
	PurgeInterval     time.Duration `yaml:"purge_interval"`
	WorkerTimeout     time.Duration `yaml:"worker_timeout"`
	StorePath         string        `yaml:"store_path"`
}

type CallbackConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ProgressUpdates bool          `yaml:"progress_updates"`
	// Restricted rejects loopback callback hosts so the service cannot be
	// pointed back at itself. Unset, it follows the runtime mode: on outside
	// dev, off in dev.
	Restricted *bool `yaml:"restricted"`
}

type ScraperConfig struct {
	Units        []model.Unit  `yaml:"units"`
	AttemptLimit int           `yaml:"attempt_limit"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// SubmitLimit requests per SubmitWindow per client on the submit route.
	SubmitLimit  int           `yaml:"submit_limit"`
	SubmitWindow time.Duration `yaml:"submit_window"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Callback CallbackConfig `yaml:"callback"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if len(cfg.Scraper.ActiveUnits()) == 0 {
		return nil, errors.New("scraper.units must list at least one active unit")
	}
	if !dev && (cfg.Scraper.Username == "" || cfg.Scraper.Password == "") {
		return nil, errors.New("scraper.username and scraper.password are required")
	}

	if cfg.Callback.Restricted == nil {
		restricted := !dev
		cfg.Callback.Restricted = &restricted
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Admin.TokenTTL <= 0 {
		c.Admin.TokenTTL = 30 * time.Minute
	}
	if c.Jobs.AutoCreateMissing == nil {
		on := true
		c.Jobs.AutoCreateMissing = &on
	}
	if c.Jobs.Retention <= 0 {
		c.Jobs.Retention = 7 * 24 * time.Hour
	}
	if c.Jobs.PurgeInterval <= 0 {
		c.Jobs.PurgeInterval = time.Hour
	}
	if c.Jobs.WorkerTimeout <= 0 {
		c.Jobs.WorkerTimeout = 15 * time.Minute
	}
	if c.Jobs.StorePath == "" {
		c.Jobs.StorePath = "data/jobs.json"
	}
	if c.Callback.MaxRetries <= 0 {
		c.Callback.MaxRetries = 3
	}
	if c.Callback.RetryDelay <= 0 {
		c.Callback.RetryDelay = 5 * time.Second
	}
	if c.Callback.RequestTimeout <= 0 {
		c.Callback.RequestTimeout = 30 * time.Second
	}
	if c.Scraper.AttemptLimit <= 0 {
		c.Scraper.AttemptLimit = 2
	}
	if c.Scraper.RetryBackoff <= 0 {
		c.Scraper.RetryBackoff = 3 * time.Second
	}
	if c.Redis.SubmitLimit <= 0 {
		c.Redis.SubmitLimit = 10
	}
	if c.Redis.SubmitWindow <= 0 {
		c.Redis.SubmitWindow = time.Minute
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// RestrictedMode resolves the loopback-callback policy.
func (c *CallbackConfig) RestrictedMode() bool {
	return c.Restricted != nil && *c.Restricted
}

// AutoCreate resolves the auto-create-on-missing-id policy.
func (j *JobsConfig) AutoCreate() bool {
	return j.AutoCreateMissing == nil || *j.AutoCreateMissing
}

// ActiveUnits returns the configured units that are switched on, in
// configured order.
func (s *ScraperConfig) ActiveUnits() []model.Unit {
	var active []model.Unit
	for _, u := range s.Units {
		if u.Active {
			active = append(active, u)
		}
	}
	return active
}
