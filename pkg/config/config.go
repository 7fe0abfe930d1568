// Package config loads the spikeraster configuration file.
//
// Settings are resolved in three layers, each overriding the previous one:
// built-in defaults ([Default]), the TOML file at [DefaultPath], and
// environment variables. Command-line flags override all of them.
//
//	[render]
//	formats = ["svg", "png"]
//	width = 1024
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/spikeraster/pkg/dataset"
	"github.com/matzehuels/spikeraster/pkg/errors"
	"github.com/matzehuels/spikeraster/pkg/pipeline"
)

// AppName names the configuration and cache directories.
const AppName = "spikeraster"

// Environment variables read by Load.
const (
	EnvConfig       = "SPIKERASTER_CONFIG"
	EnvCacheBackend = "SPIKERASTER_CACHE_BACKEND"
	EnvCacheDir     = "SPIKERASTER_CACHE_DIR"
	EnvRedisAddr    = "SPIKERASTER_REDIS_ADDR"
	EnvMongoURI     = "SPIKERASTER_MONGO_URI"
	EnvServeAddr    = "SPIKERASTER_ADDR"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the full configuration.
type Config struct {
	Render RenderConfig `toml:"render"`
	Cache  CacheConfig  `toml:"cache"`
	Mongo  MongoConfig  `toml:"mongo"`
	Serve  ServeConfig  `toml:"serve"`
	Watch  WatchConfig  `toml:"watch"`
}

// RenderConfig holds default render settings.
type RenderConfig struct {
	Formats []string `toml:"formats"`
	Width   float64  `toml:"width"`
	Height  float64  `toml:"height"`
	Title   string   `toml:"title"`
	XLabel  string   `toml:"xlabel"`
	YLabel  string   `toml:"ylabel"`
	Grid    bool     `toml:"grid"`

	// Unit is the time unit of CSV files and --reference values.
	Unit string `toml:"unit"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	RedisDB   int      `toml:"redis_db"`
	Prefix    string   `toml:"prefix"` // namespaces cache keys
	TTL       Duration `toml:"ttl"`
}

// MongoConfig locates stored datasets.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr         string   `toml:"addr"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
	Timeout      Duration `toml:"timeout"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce Duration `toml:"debounce"`
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Formats: []string{pipeline.FormatSVG},
			Width:   pipeline.DefaultWidth,
			Height:  pipeline.DefaultHeight,
			Unit:    string(dataset.DefaultUnit),
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Dir:     DefaultCacheDir(),
			TTL:     Duration{7 * 24 * time.Hour},
		},
		Mongo: MongoConfig{
			Database:   AppName,
			Collection: "datasets",
		},
		Serve: ServeConfig{
			Addr:         "127.0.0.1:8080",
			MaxBodyBytes: 32 << 20,
			Timeout:      Duration{30 * time.Second},
		},
		Watch: WatchConfig{
			Debounce: Duration{250 * time.Millisecond},
		},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", AppName, "config.toml")
}

// DefaultCacheDir returns the cache directory using the XDG convention
// (~/.cache/spikeraster/).
func DefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", AppName)
}

// Load reads the configuration at path, or DefaultPath when path is empty.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	// 1. Initialize with defaults
	cfg := Default()

	// 2. Read and unmarshal TOML over defaults
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// 3. Apply environment overrides (env > TOML > default)
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvCacheBackend); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv(EnvMongoURI); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv(EnvServeAddr); v != "" {
		cfg.Serve.Addr = v
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := pipeline.ValidateFormats(c.Render.Formats); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "render.formats")
	}
	if err := pipeline.ValidateDimension("render.width", c.Render.Width); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "render.width")
	}
	if err := pipeline.ValidateDimension("render.height", c.Render.Height); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "render.height")
	}
	if _, err := dataset.ParseUnit(c.Render.Unit); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "render.unit")
	}

	switch c.Cache.Backend {
	case CacheFile:
		if c.Cache.Dir == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.dir is required for the file backend")
		}
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	case CacheNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend %q must be one of: file, redis, none", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}

	if c.Mongo.URI != "" {
		if err := errors.ValidateMongoURI(c.Mongo.URI); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "mongo.uri")
		}
	}
	if err := errors.ValidateCollectionName(c.Mongo.Collection); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "mongo.collection")
	}

	if c.Serve.MaxBodyBytes <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "serve.max_body_bytes must be positive")
	}
	if c.Watch.Debounce.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "watch.debounce must not be negative")
	}
	return nil
}

// PipelineOptions returns pipeline options seeded from the render section.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Formats: append([]string(nil), c.Render.Formats...),
		Width:   c.Render.Width,
		Height:  c.Render.Height,
		Title:   c.Render.Title,
		XLabel:  c.Render.XLabel,
		YLabel:  c.Render.YLabel,
		Grid:    c.Render.Grid,
	}
}

// CreateDefault writes the default configuration to path, or DefaultPath
// when path is empty. It refuses to overwrite an existing file.
func CreateDefault(path string) (string, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	if err := Print(Default(), f); err != nil {
		return "", err
	}
	return path, nil
}

// Print writes cfg as a commented TOML file.
func Print(cfg *Config, w io.Writer) error {
	var b strings.Builder
	b.WriteString("# spikeraster configuration\n\n")

	b.WriteString("[render]\n")
	b.WriteString("# Output formats: svg, png, pdf, json\n")
	fmt.Fprintf(&b, "formats = %s\n", quoteList(cfg.Render.Formats))
	fmt.Fprintf(&b, "width = %s\n", formatFloat(cfg.Render.Width))
	fmt.Fprintf(&b, "height = %s\n", formatFloat(cfg.Render.Height))
	fmt.Fprintf(&b, "title = %q\n", cfg.Render.Title)
	fmt.Fprintf(&b, "xlabel = %q\n", cfg.Render.XLabel)
	fmt.Fprintf(&b, "ylabel = %q\n", cfg.Render.YLabel)
	fmt.Fprintf(&b, "grid = %t\n", cfg.Render.Grid)
	b.WriteString("# Time unit of CSV files and --reference: ns, us, ms, s, min\n")
	fmt.Fprintf(&b, "unit = %q\n\n", cfg.Render.Unit)

	b.WriteString("[cache]\n")
	b.WriteString("# Backend: file, redis, none\n")
	fmt.Fprintf(&b, "backend = %q\n", cfg.Cache.Backend)
	fmt.Fprintf(&b, "dir = %q\n", cfg.Cache.Dir)
	fmt.Fprintf(&b, "redis_addr = %q\n", cfg.Cache.RedisAddr)
	fmt.Fprintf(&b, "redis_db = %d\n", cfg.Cache.RedisDB)
	fmt.Fprintf(&b, "prefix = %q\n", cfg.Cache.Prefix)
	fmt.Fprintf(&b, "ttl = %q\n\n", cfg.Cache.TTL.Duration.String())

	b.WriteString("[mongo]\n")
	fmt.Fprintf(&b, "uri = %q\n", cfg.Mongo.URI)
	fmt.Fprintf(&b, "database = %q\n", cfg.Mongo.Database)
	fmt.Fprintf(&b, "collection = %q\n\n", cfg.Mongo.Collection)

	b.WriteString("[serve]\n")
	fmt.Fprintf(&b, "addr = %q\n", cfg.Serve.Addr)
	fmt.Fprintf(&b, "max_body_bytes = %d\n", cfg.Serve.MaxBodyBytes)
	fmt.Fprintf(&b, "timeout = %q\n\n", cfg.Serve.Timeout.Duration.String())

	b.WriteString("[watch]\n")
	fmt.Fprintf(&b, "debounce = %q\n", cfg.Watch.Debounce.Duration.String())

	_, err := io.WriteString(w, b.String())
	return err
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
