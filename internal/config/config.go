package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration loaded from YAML.
type Config struct {
	Addr     string         `yaml:"addr"`
	LogLevel string         `yaml:"log_level"`
	LogJSON  bool           `yaml:"log_json"`
	Store    StoreConfig    `yaml:"store"`
	Security SecurityConfig `yaml:"security"`
}

// StoreConfig selects and configures the session persistence backend. The
// Options map carries backend-specific keys and is decoded per driver with
// mapstructure, so adding a backend does not ripple through the YAML shape.
type StoreConfig struct {
	// Driver is one of "memory", "redis", "sqlite".
	Driver  string         `yaml:"driver"`
	Options map[string]any `yaml:"options"`
}

// RedisOptions are the store options for the redis driver.
type RedisOptions struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// SQLiteOptions are the store options for the sqlite driver.
type SQLiteOptions struct {
	Path string `mapstructure:"path"`
}

// SecurityConfig enables the optional persistence middleware.
type SecurityConfig struct {
	// EncryptionKey is a base64-encoded 32-byte key. When set, session
	// state is encrypted before it reaches the store.
	EncryptionKey string `yaml:"encryption_key"`
	// FallbackKeys are previous base64-encoded keys kept readable
	// during rotation.
	FallbackKeys []string `yaml:"fallback_keys"`
	// MaskPreferences are regexp patterns. Learner preference keys that
	// match any of them are masked before persisting.
	MaskPreferences []string `yaml:"mask_preferences"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Store:    StoreConfig{Driver: "memory"},
	}
}

// Load reads and validates a YAML config file, overlaying the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the store driver selection and the security section.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "", "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if _, _, err := c.Security.Keys(); err != nil {
		return err
	}
	for _, p := range c.Security.MaskPreferences {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
	}
	return nil
}

// Keys decodes the configured encryption keys. The active key is nil
// when encryption is not configured.
func (c SecurityConfig) Keys() (active []byte, fallbacks [][]byte, err error) {
	if c.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = decodeKey(c.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	for i, k := range c.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid fallback key %d: %w", i, err)
		}
		fallbacks = append(fallbacks, key)
	}
	return active, fallbacks, nil
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// RedisOptions decodes the redis section of the store options.
func (c StoreConfig) RedisOptions() (RedisOptions, error) {
	out := RedisOptions{Address: "localhost:6379"}
	if err := decodeOptions(c.Options, &out); err != nil {
		return out, fmt.Errorf("invalid redis store options: %w", err)
	}
	return out, nil
}

// SQLiteOptions decodes the sqlite section of the store options.
func (c StoreConfig) SQLiteOptions() (SQLiteOptions, error) {
	out := SQLiteOptions{Path: "scormseq.db"}
	if err := decodeOptions(c.Options, &out); err != nil {
		return out, fmt.Errorf("invalid sqlite store options: %w", err)
	}
	return out, nil
}

func decodeOptions(options map[string]any, target any) error {
	if options == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}
