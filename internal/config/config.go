// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/oracle"
	"github.com/rovshanmuradov/launchpad/internal/utils/logger"
)

// EnvPrefix prefixes every environment override, e.g. LAUNCHPAD_HTTP_ADDR or
// LAUNCHPAD_PLATFORM_MIN_CONTRIBUTION.
const EnvPrefix = "LAUNCHPAD"

type Config struct {
	PlatformOwner string              `mapstructure:"platform_owner"`
	Platform      domain.Params       `mapstructure:"platform"`
	Ledger        ledger.Config       `mapstructure:"ledger"`
	Client        ledger.ClientConfig `mapstructure:"client"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Oracle        OracleConfig        `mapstructure:"oracle"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Keeper        KeeperConfig        `mapstructure:"keeper"`
	Log           logger.Config       `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type OracleConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
	// StaticRate is used when no HTTP sources are configured.
	StaticRate string              `mapstructure:"static_rate"`
	Sources    []oracle.HTTPConfig `mapstructure:"sources"`
}

// PostgresConfig enables the durable event store. An empty URL keeps events in memory.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// KeeperConfig holds cron specs for periodic jobs. An empty spec disables the job.
type KeeperConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Finalize string `mapstructure:"finalize"`
	Graduate string `mapstructure:"graduate"`
	Vesting  string `mapstructure:"vesting"`
	Harvest  string `mapstructure:"harvest"`
}

const (
	DefaultHTTPAddr     = ":8080"
	DefaultQueueSize    = 1024
	DefaultBlockTime    = 400 * time.Millisecond
	DefaultOracleTTL    = time.Minute
	DefaultMaxConns     = 8
	DefaultFinalizeSpec = "@every 1m"
	DefaultGraduateSpec = "@every 30s"
	DefaultVestingSpec  = "@every 1h"
	DefaultHarvestSpec  = "@every 6h"
)

func defaults() map[string]interface{} {
	client := ledger.DefaultClientConfig()
	log := logger.DefaultConfig()
	return map[string]interface{}{
		"platform_owner": "",
		"platform":       platformDefaults(),

		"ledger.queue_size": DefaultQueueSize,
		"ledger.block_time": DefaultBlockTime,

		"client.max_tries":        client.MaxTries,
		"client.initial_interval": client.InitialInterval,
		"client.max_interval":     client.MaxInterval,
		"client.max_elapsed":      client.MaxElapsed,
		"client.confirm_timeout":  client.ConfirmTimeout,

		"http.addr":             DefaultHTTPAddr,
		"http.read_timeout":     10 * time.Second,
		"http.write_timeout":    10 * time.Second,
		"http.shutdown_timeout": 5 * time.Second,

		"oracle.ttl":         DefaultOracleTTL,
		"oracle.static_rate": "",

		"postgres.url":       "",
		"postgres.max_conns": DefaultMaxConns,

		"keeper.enabled":  true,
		"keeper.finalize": DefaultFinalizeSpec,
		"keeper.graduate": DefaultGraduateSpec,
		"keeper.vesting":  DefaultVestingSpec,
		"keeper.harvest":  DefaultHarvestSpec,

		"log.level":       log.Level,
		"log.file":        log.LogFile,
		"log.max_size":    log.MaxSize,
		"log.max_age":     log.MaxAge,
		"log.max_backups": log.MaxBackups,
		"log.compress":    log.Compress,
		"log.development": log.Development,
	}
}

// platformDefaults exposes domain.DefaultParams as a nested map so each field
// has its own key and environment override.
func platformDefaults() map[string]interface{} {
	raw, err := json.Marshal(domain.DefaultParams())
	if err != nil {
		panic(fmt.Sprintf("encode default params: %v", err))
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(fmt.Sprintf("decode default params: %v", err))
	}
	return m
}

// LoadConfig reads path (optional) over the defaults and applies environment
// overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.PlatformOwner == "" {
		return errors.New("missing platform_owner in configuration")
	}
	if _, err := domain.ParseAddress(cfg.PlatformOwner); err != nil {
		return fmt.Errorf("platform_owner: %w", err)
	}
	if err := cfg.Platform.Validate(); err != nil {
		return fmt.Errorf("platform: %w", err)
	}
	if cfg.HTTP.Addr == "" {
		return errors.New("http.addr is empty")
	}
	if cfg.Ledger.QueueSize <= 0 {
		return errors.New("invalid ledger.queue_size")
	}
	if cfg.Ledger.BlockTime <= 0 {
		return errors.New("invalid ledger.block_time")
	}
	if cfg.Oracle.StaticRate == "" && len(cfg.Oracle.Sources) == 0 {
		return errors.New("oracle needs static_rate or at least one source")
	}
	if cfg.Oracle.StaticRate != "" {
		if r, err := decimal.NewFromString(cfg.Oracle.StaticRate); err != nil || !r.IsPositive() {
			return fmt.Errorf("oracle.static_rate %q must be a positive decimal", cfg.Oracle.StaticRate)
		}
	}
	for _, src := range cfg.Oracle.Sources {
		if err := validateURLWithCache(src.URL, "http"); err != nil {
			return fmt.Errorf("oracle source %q: %w", src.Name, err)
		}
		if src.JSONPath == "" {
			return fmt.Errorf("oracle source %q: json_path is empty", src.Name)
		}
	}
	if cfg.Postgres.URL != "" {
		if err := validateURLWithCache(cfg.Postgres.URL, "postgres"); err != nil {
			return errors.New("postgres.url must use the postgres scheme")
		}
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// Owner returns the parsed platform owner address.
func (c *Config) Owner() domain.Address {
	addr, _ := domain.ParseAddress(c.PlatformOwner)
	return addr
}
