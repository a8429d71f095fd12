package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Storage struct {
		UploadDir     string `yaml:"upload_dir"`
		CacheDir      string `yaml:"cache_dir"`
		FallbackImage string `yaml:"fallback_image"`
	} `yaml:"storage"`

	Images struct {
		PartitionSize int `yaml:"partition_size"` // max images per partition directory
		JPEGQuality   int `yaml:"jpeg_quality"`   // 1-100
		CacheMaxAge   int `yaml:"cache_max_age"`  // Cache-Control max-age, seconds
		RandomTTL     int `yaml:"random_ttl"`     // sticky random selection window, seconds
	} `yaml:"images"`
}

// Load reads the YAML config file and fills in defaults for anything omitted.
// The returned Config is handed to every component at construction time;
// nothing else in the codebase reads configuration from ambient state.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file at %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file at %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a Config with every field at its default value. Used by
// tests and as the base for partially filled config files.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 4000
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/picserve.db"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "uploads"
	}
	if c.Storage.CacheDir == "" {
		c.Storage.CacheDir = "cache"
	}
	if c.Storage.FallbackImage == "" {
		c.Storage.FallbackImage = "storage/noimage.jpg"
	}
	if c.Images.PartitionSize == 0 {
		c.Images.PartitionSize = 512
	}
	if c.Images.JPEGQuality == 0 {
		c.Images.JPEGQuality = 90
	}
	if c.Images.CacheMaxAge == 0 {
		c.Images.CacheMaxAge = 86400
	}
	if c.Images.RandomTTL == 0 {
		c.Images.RandomTTL = 3600
	}
}
