package download

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"receipt-e2e/configs"
)

// Config holds the fixture values the download scenario checks against
type Config struct {
	// URL is the page to visit, defaults to BASE_URL
	URL string `yaml:"url"`

	// Selector identifies the download trigger
	Selector string `yaml:"selector"`

	// DownloadFile is the file name the trigger saves into the downloads folder
	DownloadFile string `yaml:"download_file"`

	// Expect lists substrings the receipt text must contain
	Expect []string `yaml:"expect"`
}

// scenarioFile is the layout of SCENARIO_FILE: one section per scenario name
type scenarioFile struct {
	Download *Config `yaml:"download"`
}

// DefaultConfig returns the receipt fixture values
func DefaultConfig(base *configs.Config) *Config {
	return &Config{
		URL:          base.BaseURL,
		Selector:     `[data-cy="download"]`,
		DownloadFile: "recibo.pdf",
		Expect:       []string{"Papito Shop", "Total24.000"},
	}
}

// LoadConfig starts from the defaults and applies the "download" section of
// base.ScenarioFile when one is configured. Fields left out keep their defaults.
func LoadConfig(base *configs.Config) (*Config, error) {
	cfg := DefaultConfig(base)
	if base.ScenarioFile == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(base.ScenarioFile)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	file := scenarioFile{Download: cfg}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing scenario file %s: %w", base.ScenarioFile, err)
	}
	return file.Download, nil
}

// Validate checks that all required fixture values are present
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.Selector == "" {
		return fmt.Errorf("selector is required")
	}
	if c.DownloadFile == "" {
		return fmt.Errorf("download_file is required")
	}
	if len(c.Expect) == 0 {
		return fmt.Errorf("expect needs at least one substring")
	}
	return nil
}
