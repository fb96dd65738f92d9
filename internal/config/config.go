package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can use Go duration syntax
// ("30s", "1m30s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	out, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(out)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Source configures where the raw catalog comes from.
type Source struct {
	// Endpoint is the product-listing URL for live runs.
	Endpoint string `yaml:"endpoint"`
	// Timeout bounds the live HTTP call.
	Timeout Duration `yaml:"timeout"`
	// FallbackPath is the committed seed payload used in fallback-only mode
	// and after a live failure.
	FallbackPath string `yaml:"fallback_path"`
	// RateLimitRPS spaces successive live calls when the pipeline is embedded
	// in a multi-run orchestrator. <=0 disables the limiter.
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// Data configures the on-disk layout for pipeline outputs.
type Data struct {
	RawDir     string `yaml:"raw_dir"`
	CuratedDir string `yaml:"curated_dir"`
}

// Config is the full pipeline configuration.
type Config struct {
	Source Source `yaml:"source"`
	Data   Data   `yaml:"data"`
}

// Default returns the configuration used when no file or overrides are given.
func Default() Config {
	return Config{
		Source: Source{
			Endpoint:     "https://fakestoreapi.com/products",
			Timeout:      Duration(30 * time.Second),
			FallbackPath: "sample_data/products_seed.json",
			RateLimitRPS: 0,
		},
		Data: Data{
			RawDir:     "data/raw",
			CuratedDir: "data/curated",
		},
	}
}

// Load reads a YAML config file layered over Default. An empty path returns
// Default unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	if strings.TrimSpace(cfg.Source.Endpoint) == "" {
		return Config{}, fmt.Errorf("config: source.endpoint is required")
	}
	if strings.TrimSpace(cfg.Source.FallbackPath) == "" {
		return Config{}, fmt.Errorf("config: source.fallback_path is required")
	}
	return cfg, nil
}
