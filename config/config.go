// Package config loads partstore configuration from a YAML file with an
// environment-variable overlay. Loading is pure: the embedding process
// maps the resulting Config onto partstore.Options and the chosen engine
// itself.
//
// Environment variables use the format PARTSTORE_SECTION_KEY (uppercase,
// underscores). Example: PARTSTORE_BACKEND_ENGINE=redis overrides
// backend.engine. Env wins over file, file wins over defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "PARTSTORE_"

// Config is the full loadable configuration.
type Config struct {
	Cache   Cache   `koanf:"cache"`
	Backend Backend `koanf:"backend"`
	Block   Block   `koanf:"block"`
}

// Cache holds the idle durations for the two record caches.
type Cache struct {
	TokenIdle time.Duration `koanf:"tokenidle"`
	DataIdle  time.Duration `koanf:"dataidle"`
}

// Backend selects and tunes the durable engine.
type Backend struct {
	// Engine is "badger" or "redis".
	Engine string `koanf:"engine"`
	Badger Badger `koanf:"badger"`
	Redis  Redis  `koanf:"redis"`
}

type Badger struct {
	Dir        string        `koanf:"dir"`
	SyncWrites bool          `koanf:"syncwrites"`
	GCInterval time.Duration `koanf:"gcinterval"`
}

type Redis struct {
	Addr   string `koanf:"addr"`
	Prefix string `koanf:"prefix"`
}

// Block configures the optional byte-level read cache.
type Block struct {
	// Strategy is "", "lru", "ristretto", or "bigcache". Empty disables.
	Strategy string `koanf:"strategy"`
	// Capacity is entries for lru, bytes for ristretto/bigcache.
	Capacity int `koanf:"capacity"`
}

// Default returns the configuration used when no file or env overrides
// anything.
func Default() Config {
	return Config{
		Cache: Cache{
			TokenIdle: 30 * time.Second,
			DataIdle:  30 * time.Second,
		},
		Backend: Backend{
			Engine: "badger",
			Badger: Badger{
				Dir:        "data",
				SyncWrites: true,
				GCInterval: 10 * time.Minute,
			},
			Redis: Redis{
				Prefix: "partstore",
			},
		},
	}
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	envPrefix string
	filePath  string
}

// WithFile sets the YAML configuration file path. Optional; loading
// proceeds from defaults and env alone when unset.
func WithFile(path string) Option {
	return func(l *loader) { l.filePath = path }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *loader) { l.envPrefix = prefix }
}

// Load resolves the configuration: defaults, then file, then env.
func Load(opts ...Option) (Config, error) {
	l := &loader{envPrefix: DefaultEnvPrefix}
	for _, o := range opts {
		o(l)
	}

	k := koanf.New(".")

	if l.filePath != "" {
		if err := k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", l.filePath, err)
		}
	}

	// PARTSTORE_BACKEND_ENGINE -> backend.engine
	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Backend.Engine {
	case "badger":
		if c.Backend.Badger.Dir == "" {
			return fmt.Errorf("config: backend.badger.dir is required")
		}
	case "redis":
		if c.Backend.Redis.Addr == "" {
			return fmt.Errorf("config: backend.redis.addr is required")
		}
	default:
		return fmt.Errorf("config: unknown backend engine %q", c.Backend.Engine)
	}

	switch c.Block.Strategy {
	case "", "lru", "ristretto", "bigcache":
	default:
		return fmt.Errorf("config: unknown block strategy %q", c.Block.Strategy)
	}
	if c.Block.Strategy != "" && c.Block.Capacity <= 0 {
		return fmt.Errorf("config: block.capacity must be positive when a strategy is set")
	}
	return nil
}
