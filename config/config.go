package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatDual = "dual"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL string
	// CataloguePrefix is the root product links are resolved against.
	// Empty means BaseURL + "catalogue/".
	CataloguePrefix  string
	MaxPages         int // listing pages walked per category before giving up
	Timeout          time.Duration
	UserAgent        string
	RespectRobotsTxt bool
	OutputDir        string
	OutputFormat     string // csv, json, or dual
	DownloadImages   bool
	ImageDir         string
	DedupeMaxSize    int
	Categories       []string
	Verbose          bool
	MetricsAddr      string
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://books.toscrape.com/",
		MaxPages:         100,
		Timeout:          10 * time.Second,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt: false,
		OutputDir:        "scraped_data/csv",
		OutputFormat:     FormatCSV,
		DownloadImages:   false,
		ImageDir:         "scraped_data/images",
		DedupeMaxSize:    100000,
		Verbose:          false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.CataloguePrefix != "" {
		prefix, err := url.Parse(c.CataloguePrefix)
		if err != nil {
			return fmt.Errorf("invalid catalogue prefix: %w", err)
		}
		if !prefix.IsAbs() {
			return fmt.Errorf("catalogue prefix must be absolute")
		}
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.OutputFormat != FormatCSV && c.OutputFormat != FormatJSON && c.OutputFormat != FormatDual {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.DownloadImages && c.ImageDir == "" {
		return fmt.Errorf("image directory cannot be empty when downloading images")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// CatalogueURL returns the effective catalogue prefix.
func (c *Config) CatalogueURL() string {
	if c.CataloguePrefix != "" {
		return c.CataloguePrefix
	}
	return strings.TrimSuffix(c.BaseURL, "/") + "/catalogue/"
}

// WantsCategory reports whether name passes the Categories filter.
func (c *Config) WantsCategory(name string) bool {
	if len(c.Categories) == 0 {
		return true
	}
	for _, want := range c.Categories {
		if strings.EqualFold(strings.TrimSpace(want), name) {
			return true
		}
	}
	return false
}

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer when it is set.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key with strconv.ParseBool when it is set.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}
