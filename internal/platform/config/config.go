// Package config loads the custody server configuration.
//
// Sources are layered: compiled defaults, then an optional YAML file, then
// environment variables prefixed CUSTODY_ where "__" separates levels
// (CUSTODY_STORAGE__POSTGRES_URL sets storage.postgres_url).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const EnvPrefix = "CUSTODY_"

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// DevSigningKey is only accepted when Server.Env is "dev".
const DevSigningKey = "dev-secret-key-change-in-production"

type Config struct {
	Server  Server  `koanf:"server"`
	Log     Log     `koanf:"log"`
	Storage Storage `koanf:"storage"`
	Redis   Redis   `koanf:"redis"`
	Kafka   Kafka   `koanf:"kafka"`
	Vault   Vault   `koanf:"vault"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `koanf:"addr"`
	Env             string        `koanf:"env"`
	JWTSigningKey   string        `koanf:"jwt_signing_key"`
	JWTIssuer       string        `koanf:"jwt_issuer"`
	JWTAudience     string        `koanf:"jwt_audience"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// DevEndpoints exposes wallet funding routes backed by the in-process
	// token bank, guarded by AdminToken (plaintext or bcrypt hash).
	DevEndpoints bool   `koanf:"dev_endpoints"`
	AdminToken   string `koanf:"admin_token"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Storage struct {
	Backend        string `koanf:"backend"`
	PostgresURL    string `koanf:"postgres_url"`
	MigrateOnStart bool   `koanf:"migrate_on_start"`
	MaxOpenConns   int    `koanf:"max_open_conns"`
	MaxIdleConns   int    `koanf:"max_idle_conns"`
}

// Redis enables the shared partition lock when URL is set.
type Redis struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// Kafka enables the outbox relay when Brokers is non-empty.
type Kafka struct {
	Brokers           []string      `koanf:"brokers"`
	Topic             string        `koanf:"topic"`
	Partitions        int32         `koanf:"partitions"`
	ReplicationFactor int16         `koanf:"replication_factor"`
	RelayInterval     time.Duration `koanf:"relay_interval"`
	RelayBatch        int           `koanf:"relay_batch"`
}

type Vault struct {
	WithdrawalInitiateDelay time.Duration `koanf:"withdrawal_initiate_delay"`
	WithdrawalCooldown      time.Duration `koanf:"withdrawal_cooldown"`
	LockShards              int           `koanf:"lock_shards"`
	LockTimeout             time.Duration `koanf:"lock_timeout"`
	LockTTL                 time.Duration `koanf:"lock_ttl"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.addr":                     ":8080",
		"server.env":                      "dev",
		"server.jwt_signing_key":          DevSigningKey,
		"server.jwt_issuer":               "custody",
		"server.jwt_audience":             "custody-api",
		"server.shutdown_timeout":         "15s",
		"server.dev_endpoints":            true,
		"server.admin_token":              "dev-admin-token",
		"log.level":                       "info",
		"log.format":                      "json",
		"storage.backend":                 BackendMemory,
		"storage.migrate_on_start":        true,
		"storage.max_open_conns":          20,
		"storage.max_idle_conns":          5,
		"redis.pool_size":                 10,
		"redis.min_idle_conns":            2,
		"redis.dial_timeout":              "5s",
		"redis.read_timeout":              "3s",
		"redis.write_timeout":             "3s",
		"kafka.topic":                     "custody.events",
		"kafka.partitions":                3,
		"kafka.replication_factor":        1,
		"kafka.relay_interval":            "1s",
		"kafka.relay_batch":               100,
		"vault.withdrawal_initiate_delay": "0s",
		"vault.withdrawal_cooldown":       "24h",
		"vault.lock_shards":               128,
		"vault.lock_timeout":              "5s",
		"vault.lock_ttl":                  "10s",
	}
}

// Load reads defaults, the YAML file at path (skipped when empty) and the
// environment, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	return unmarshal(k)
}

// envKey maps CUSTODY_STORAGE__POSTGRES_URL to storage.postgres_url.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// a comma separated env value arrives as a single string
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate performs config validation.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("server.jwt_signing_key is required"))
	}
	if c.Server.JWTSigningKey == DevSigningKey && !c.IsDev() {
		errs = append(errs, errors.New("server.jwt_signing_key must be overridden outside dev"))
	}
	if c.Server.DevEndpoints && c.Server.AdminToken == "" {
		errs = append(errs, errors.New("server.admin_token is required when dev endpoints are enabled"))
	}
	if c.Server.DevEndpoints && !c.IsDev() {
		errs = append(errs, errors.New("server.dev_endpoints is only allowed in dev"))
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresURL == "" {
			errs = append(errs, errors.New("storage.postgres_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	durations := map[string]time.Duration{
		"vault.withdrawal_initiate_delay": c.Vault.WithdrawalInitiateDelay,
		"vault.withdrawal_cooldown":       c.Vault.WithdrawalCooldown,
		"vault.lock_timeout":              c.Vault.LockTimeout,
		"vault.lock_ttl":                  c.Vault.LockTTL,
		"kafka.relay_interval":            c.Kafka.RelayInterval,
		"server.shutdown_timeout":         c.Server.ShutdownTimeout,
	}
	for name, d := range durations {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.Vault.WithdrawalInitiateDelay > c.Vault.WithdrawalCooldown {
		errs = append(errs, errors.New("vault.withdrawal_initiate_delay must not exceed vault.withdrawal_cooldown"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDev() bool {
	return c.Server.Env == "dev"
}

func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

func (r Redis) Enabled() bool {
	return r.URL != ""
}
