package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Store       StoreConfig       `mapstructure:"store"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Features    FeatureConfig     `mapstructure:"features"`
	Operator    OperatorConfig    `mapstructure:"operator"`
	Game        GameConfig        `mapstructure:"game"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	External    ExternalConfig    `mapstructure:"external"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, mysql, sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // redis, db
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type FeatureConfig struct {
	SkipAuth bool `mapstructure:"skipAuth"`
}

type OperatorConfig struct {
	DefaultUsername string `mapstructure:"defaultUsername"`
	DefaultPassword string `mapstructure:"defaultPassword"`
}

type GameConfig struct {
	GridSize         int           `mapstructure:"gridSize"`
	CollapseEvery    int           `mapstructure:"collapseEvery"`
	CollapseFraction float64       `mapstructure:"collapseFraction"`
	SessionLock      bool          `mapstructure:"sessionLock"`
	LockTTL          time.Duration `mapstructure:"lockTTL"`
	LockWait         time.Duration `mapstructure:"lockWait"`
}

type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type ExternalConfig struct {
	Mode         string        `mapstructure:"mode"` // none, http, mirror
	BaseURL      string        `mapstructure:"baseURL"`
	ServiceToken string        `mapstructure:"serviceToken"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type ArchiveConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Retention       time.Duration `mapstructure:"retention"`
	Interval        time.Duration `mapstructure:"interval"`
	BatchSize       int           `mapstructure:"batchSize"`
	Bucket          string        `mapstructure:"bucket"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"accessKeyID"`
	SecretAccessKey string        `mapstructure:"secretAccessKey"`
}

type WebhookConfig struct {
	ServiceToken string `mapstructure:"serviceToken"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var GlobalConfig *Config

// Defaults returns a configuration with every documented default filled in.
func Defaults() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080", Mode: "debug"},
		Database: DatabaseConfig{Driver: "postgres"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Store:    StoreConfig{Driver: "redis"},
		JWT:      JWTConfig{Expire: 72},
		Game: GameConfig{
			GridSize:         8,
			CollapseEvery:    3,
			CollapseFraction: 0.2,
			SessionLock:      true,
			LockTTL:          5 * time.Second,
			LockWait:         2 * time.Second,
		},
		Idempotency: IdempotencyConfig{TTL: 24 * time.Hour},
		External:    ExternalConfig{Mode: "none", Timeout: 5 * time.Second},
		Archive: ArchiveConfig{
			Retention: 24 * time.Hour,
			Interval:  10 * time.Minute,
			BatchSize: 100,
			Region:    "auto",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "redis", "db":
	default:
		return fmt.Errorf("store.driver must be redis or db, got %q", c.Store.Driver)
	}
	switch c.External.Mode {
	case "none", "mirror":
	case "http":
		if c.External.BaseURL == "" {
			return errors.New("external.baseURL is required when external.mode is http")
		}
	default:
		return fmt.Errorf("external.mode must be none, http or mirror, got %q", c.External.Mode)
	}
	if c.Game.CollapseEvery <= 0 {
		return errors.New("game.collapseEvery must be positive")
	}
	if c.Game.CollapseFraction <= 0 || c.Game.CollapseFraction > 1 {
		return errors.New("game.collapseFraction must be in (0,1]")
	}
	if c.Idempotency.TTL <= 0 {
		return errors.New("idempotency.ttl must be positive")
	}
	if c.Archive.Enabled && c.Archive.Retention <= 0 {
		return errors.New("archive.retention must be positive")
	}
	if (c.Archive.Enabled || c.Store.Driver == "db") && c.Archive.Interval <= 0 {
		return errors.New("archive.interval must be positive")
	}
	return nil
}

// Load reads an optional .env file, the YAML config at path and IGNITE_* environment overrides.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("IGNITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadConfig(path string) {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Error loading config file, %s", err)
	}
	GlobalConfig = cfg
}
