package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"finagg/lib/configutil"
	"finagg/lib/scraper"
	"finagg/lib/scrapers/myinvestor"
)

var defaultConfigNames = []string{"finagg.yaml", "finagg.yml", "finagg.json5"}

type Config struct {
	// categories fetched when --categories isn't given, empty means all
	Categories             []string `json:"categories" yaml:"categories"`
	CategoryTimeoutSeconds float64  `json:"category_timeout_seconds" yaml:"category_timeout_seconds"`
	// dotenv files loaded before credentials are resolved
	EnvFiles []string `json:"env_files" yaml:"env_files"`

	MyInvestor *myinvestor.Config `json:"myinvestor" yaml:"myinvestor"`
}

func readConfig(path string) (Config, error) {
	if path != "" {
		cfg, err := configutil.ReadConfig[Config](path)
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config file %s not found", path)
		}
		return cfg, err
	}
	for _, name := range defaultConfigNames {
		cfg, err := configutil.ReadRecursively[Config](name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Config{}, fmt.Errorf("no config file found, looked for %v", defaultConfigNames)
}

func (c Config) categories(override []string) ([]scraper.Category, error) {
	names := c.Categories
	if len(override) > 0 {
		names = override
	}
	if len(names) == 0 {
		return scraper.AllCategories(), nil
	}
	return scraper.ParseCategories(names)
}

func (c Config) orchestrator() scraper.Orchestrator {
	return scraper.Orchestrator{
		CategoryTimeout: time.Duration(c.CategoryTimeoutSeconds * float64(time.Second)),
	}
}

// scrapers creates one scraper per configured platform.
func (c Config) scrapers() ([]scraper.Scraper, error) {
	err := configutil.LoadEnv(c.EnvFiles...)
	if err != nil {
		return nil, err
	}

	var out []scraper.Scraper
	if c.MyInvestor != nil {
		s, err := myinvestor.New(*c.MyInvestor)
		if err != nil {
			return nil, fmt.Errorf("myinvestor: %w", err)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no platform configured")
	}
	return out, nil
}
