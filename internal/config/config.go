// Package config loads datamap settings from datamap.yaml, .env and
// DATAMAP_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig    `yaml:"log" mapstructure:"log"`
	Server   ServerConfig `yaml:"server" mapstructure:"server"`
	Fetch    FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Map      MapConfig    `yaml:"map" mapstructure:"map"`
	Layers   LayersConfig `yaml:"layers" mapstructure:"layers"`
	Topology string       `yaml:"topology" mapstructure:"topology"`
	Data     string       `yaml:"data" mapstructure:"data"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	// File receives log output instead of stderr.
	File string `yaml:"file" mapstructure:"file"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int           `yaml:"port" mapstructure:"port"`
	CORSOrigins []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	CacheSize   int           `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTL    time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	Redis       RedisConfig   `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig enables the shared render cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

// FetchConfig configures remote topology and data downloads.
type FetchConfig struct {
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	Backoff    time.Duration `yaml:"backoff" mapstructure:"backoff"`
	RateLimit  float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LayersConfig lists plugin layers drawn after the map is built.
type LayersConfig struct {
	// Bubbles is a CSV or KML file of bubble records.
	Bubbles string `yaml:"bubbles" mapstructure:"bubbles"`
	// Arcs is a JSON file holding a list of arc records.
	Arcs      string        `yaml:"arcs" mapstructure:"arcs"`
	Graticule bool          `yaml:"graticule" mapstructure:"graticule"`
	Labels    *LabelsConfig `yaml:"labels" mapstructure:"labels"`
	Legend    *LegendConfig `yaml:"legend" mapstructure:"legend"`
}

// LabelsConfig draws region labels when present.
type LabelsConfig struct {
	Color      string  `yaml:"color" mapstructure:"color"`
	FontFamily string  `yaml:"font_family" mapstructure:"font_family"`
	FontSize   float64 `yaml:"font_size" mapstructure:"font_size"`
	LineWidth  float64 `yaml:"line_width" mapstructure:"line_width"`
}

// LegendConfig draws a legend when present. Keys of Labels are fill keys.
type LegendConfig struct {
	Title           string            `yaml:"title" mapstructure:"title"`
	DefaultFillName string            `yaml:"default_fill_name" mapstructure:"default_fill_name"`
	Labels          map[string]string `yaml:"labels" mapstructure:"labels"`
}

// Load reads configuration from .env, the config file and the environment.
// An empty path searches the working directory for datamap.yaml.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("datamap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("DATAMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:*", "http://127.0.0.1:*"})
	v.SetDefault("server.cache_size", 256)
	v.SetDefault("server.cache_ttl", 10*time.Minute)
	v.SetDefault("server.redis.db", 0)
	v.SetDefault("server.redis.prefix", "datamap:")
	v.SetDefault("fetch.user_agent", "datamap/1.0")
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff", 500*time.Millisecond)
	v.SetDefault("map.scope", "world")
	v.SetDefault("map.projection", "equirectangular")
	v.SetDefault("map.data_type", "json")
	v.SetDefault("map.width", 960)
	v.SetDefault("map.aspect_ratio", 0.5625)
	v.SetDefault("map.zoom_scale", []float64{1, 8})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := restoreKeyCase(v.ConfigFileUsed(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// keyedSections are the config maps whose keys are user identifiers (fill
// keys, filter keys) and must keep their case.
type keyedSections struct {
	Map struct {
		Fills   map[string]any `yaml:"fills"`
		Filters map[string]any `yaml:"filters"`
	} `yaml:"map"`
	Layers struct {
		Legend struct {
			Labels map[string]any `yaml:"labels"`
		} `yaml:"legend"`
	} `yaml:"layers"`
}

// restoreKeyCase re-reads the keyed sections of the config file and renames
// viper's lowercased keys back to their spelling in the file. Values stay as
// viper resolved them.
func restoreKeyCase(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "config: read %s", path)
	}
	var raw keyedSections
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "config: read keyed sections")
	}
	recase(cfg.Map.Fills, raw.Map.Fills)
	recase(cfg.Map.Filters, raw.Map.Filters)
	if cfg.Layers.Legend != nil {
		recase(cfg.Layers.Legend.Labels, raw.Layers.Legend.Labels)
	}
	return nil
}

func recase(m map[string]string, spelled map[string]any) {
	for k := range spelled {
		lk := strings.ToLower(k)
		if lk == k {
			continue
		}
		if v, ok := m[lk]; ok {
			delete(m, lk)
			m[k] = v
		}
	}
}
