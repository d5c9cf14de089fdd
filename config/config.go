// Package config loads ecocat configuration: defaults, overridden by a YAML
// file, overridden by ECOCAT_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/veldtlabs/ecocat/fetcher"
	"github.com/veldtlabs/ecocat/jitter"
	"github.com/veldtlabs/ecocat/listing"
)

// Config is the full application configuration.
type Config struct {
	// StoreRoot is the record store directory.
	StoreRoot string `yaml:"store_root" env:"ECOCAT_STORE_ROOT"`
	// CatalogPath is the SQLite run-catalog location.
	CatalogPath string `yaml:"catalog_path" env:"ECOCAT_CATALOG_PATH"`
	// Timezone interprets the portal's naive timestamps.
	Timezone string `yaml:"timezone" env:"ECOCAT_TIMEZONE"`

	Listing ListingConfig `yaml:"listing"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Pacing  PacingConfig  `yaml:"pacing"`
	Output  OutputConfig  `yaml:"output"`
}

// ListingConfig configures the search client.
type ListingConfig struct {
	URL          string `yaml:"url" env:"ECOCAT_LISTING_URL"`
	Method       string `yaml:"method"`
	ItemsPath    string `yaml:"items_path"`
	IDField      string `yaml:"id_field"`
	UpdatedField string `yaml:"updated_field"`
	PageSize     int    `yaml:"page_size" env:"ECOCAT_LISTING_PAGE_SIZE"`
	MaxPages     int    `yaml:"max_pages" env:"ECOCAT_LISTING_MAX_PAGES"`
}

// FetchConfig configures the detail fetcher and concurrency budget.
type FetchConfig struct {
	// DetailURL is the detail endpoint template; {id} is expanded.
	DetailURL      string  `yaml:"detail_url" env:"ECOCAT_DETAIL_URL"`
	Method         string  `yaml:"method"`
	TimeoutSeconds float64 `yaml:"timeout_seconds" env:"ECOCAT_TIMEOUT_SECONDS"`
	MaxBytes       int64   `yaml:"max_bytes"`
	UserAgent      string  `yaml:"user_agent" env:"ECOCAT_USER_AGENT"`
	Retries        int     `yaml:"retries"`
	MaxConcurrent  int     `yaml:"max_concurrent" env:"ECOCAT_MAX_CONCURRENT"`
}

// PacingConfig bounds the randomized batching. Delays are seconds, floating
// point, matching the knobs the pipeline has always exposed.
type PacingConfig struct {
	MinBatchSize    int     `yaml:"min_batch_size" env:"ECOCAT_MIN_BATCH_SIZE"`
	MaxBatchSize    int     `yaml:"max_batch_size" env:"ECOCAT_MAX_BATCH_SIZE"`
	MinDelaySeconds float64 `yaml:"min_delay_seconds" env:"ECOCAT_MIN_DELAY_SECONDS"`
	MaxDelaySeconds float64 `yaml:"max_delay_seconds" env:"ECOCAT_MAX_DELAY_SECONDS"`
}

// OutputConfig names the pipeline's file outputs.
type OutputConfig struct {
	DescriptorPath    string `yaml:"descriptor_path" env:"ECOCAT_DESCRIPTOR_PATH"`
	KMLDescriptorPath string `yaml:"kml_descriptor_path"`
	CSVDir            string `yaml:"csv_dir"`
	GeoJSONDir        string `yaml:"geojson_dir"`
	CombinedPath      string `yaml:"combined_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		StoreRoot:   "raw",
		CatalogPath: "db/catalog.db",
		Timezone:    "Asia/Kolkata",
		Listing: ListingConfig{
			URL:      "https://parivesh.nic.in/parivesh_api/trackYourProposal/advanceSearchData?majorClearanceType={category}&page={page}&size={size}",
			PageSize: 100,
		},
		Fetch: FetchConfig{
			DetailURL:      "https://parivesh.nic.in/parivesh_api/proponentApplicant/getCafDataByProposalNo?proposalId={id}",
			TimeoutSeconds: 30,
			MaxConcurrent:  10,
			Retries:        2,
		},
		Pacing: PacingConfig{
			MinBatchSize:    5,
			MaxBatchSize:    20,
			MinDelaySeconds: 1.0,
			MaxDelaySeconds: 5.0,
		},
		Output: OutputConfig{
			DescriptorPath:    "descriptors.json",
			KMLDescriptorPath: "kml_descriptors.json",
			CSVDir:            "csv",
			GeoJSONDir:        "geojson",
			CombinedPath:      "india-environmental-approvals.geojson",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StoreRoot == "" {
		return fmt.Errorf("config: store_root is required")
	}
	p := c.Pacing
	if p.MinBatchSize <= 0 || p.MaxBatchSize < p.MinBatchSize {
		return fmt.Errorf("config: batch size range [%d, %d] is invalid", p.MinBatchSize, p.MaxBatchSize)
	}
	if p.MinDelaySeconds < 0 || p.MaxDelaySeconds < p.MinDelaySeconds {
		return fmt.Errorf("config: delay range [%g, %g] is invalid", p.MinDelaySeconds, p.MaxDelaySeconds)
	}
	if c.Fetch.MaxConcurrent <= 0 {
		return fmt.Errorf("config: max_concurrent must be positive")
	}
	return nil
}

// JitterConfig converts the pacing knobs for the jitter policy.
func (c *Config) JitterConfig() jitter.Config {
	return jitter.Config{
		MinBatch: c.Pacing.MinBatchSize,
		MaxBatch: c.Pacing.MaxBatchSize,
		MinDelay: secondsToDuration(c.Pacing.MinDelaySeconds),
		MaxDelay: secondsToDuration(c.Pacing.MaxDelaySeconds),
	}
}

// FetcherConfig converts the fetch knobs for a fetcher. The URL builder is
// supplied by the caller (detail template vs per-descriptor KML URLs).
func (c *Config) FetcherConfig() fetcher.Config {
	return fetcher.Config{
		Method:    c.Fetch.Method,
		Timeout:   secondsToDuration(c.Fetch.TimeoutSeconds),
		MaxBytes:  c.Fetch.MaxBytes,
		UserAgent: c.Fetch.UserAgent,
		Retries:   c.Fetch.Retries,
	}
}

// ListingClientConfig converts the listing knobs for the search client.
func (c *Config) ListingClientConfig() listing.Config {
	return listing.Config{
		URL:          c.Listing.URL,
		Method:       c.Listing.Method,
		ItemsPath:    c.Listing.ItemsPath,
		IDField:      c.Listing.IDField,
		UpdatedField: c.Listing.UpdatedField,
		PageSize:     c.Listing.PageSize,
		MaxPages:     c.Listing.MaxPages,
		Timeout:      secondsToDuration(c.Fetch.TimeoutSeconds),
		UserAgent:    c.Fetch.UserAgent,
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
