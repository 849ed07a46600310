package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Browser drivers understood by the runner
const (
	BrowserChrome = "chrome"
	BrowserStatic = "static"
)

// Config holds the settings shared by the task server, the runner and the scenarios.
// It is built once by Load and passed explicitly to whatever needs it.
type Config struct {
	// Application under test
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:5173/"`

	// Filesystem layout
	ProjectRoot           string `env:"PROJECT_ROOT" envDefault:"."`
	DownloadsFolder       string `env:"DOWNLOADS_FOLDER" envDefault:"downloads"`
	TrashAssetsBeforeRuns bool   `env:"TRASH_ASSETS_BEFORE_RUNS" envDefault:"true"`

	// Timeouts
	DefaultCommandTimeout time.Duration `env:"DEFAULT_COMMAND_TIMEOUT" envDefault:"4s"`
	PageLoadTimeout       time.Duration `env:"PAGE_LOAD_TIMEOUT" envDefault:"60s"`
	TaskTimeout           time.Duration `env:"TASK_TIMEOUT" envDefault:"60s"`

	// Browser
	Browser    string `env:"BROWSER" envDefault:"chrome"`
	Headless   bool   `env:"HEADLESS" envDefault:"true"`
	ChromePath string `env:"CHROME_PATH"`

	// Task bridge
	TaskServerAddr string `env:"TASK_SERVER_ADDR" envDefault:"127.0.0.1:0"`
	Port           string `env:"PORT" envDefault:"8080"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	ScenarioFile string `env:"SCENARIO_FILE"`

	// Run history (Cloud Logging)
	GCPProjectID string `env:"GCP_PROJECT_ID"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"receipt-e2e"`
}

// Load reads the configuration from the environment, after applying an optional .env file
func Load() (*Config, error) {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express
func (c *Config) Validate() error {
	switch c.Browser {
	case BrowserChrome, BrowserStatic:
	default:
		return fmt.Errorf("BROWSER must be %q or %q, got %q", BrowserChrome, BrowserStatic, c.Browser)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}
	if c.DefaultCommandTimeout <= 0 {
		return fmt.Errorf("DEFAULT_COMMAND_TIMEOUT must be positive")
	}
	if c.PageLoadTimeout <= 0 {
		return fmt.Errorf("PAGE_LOAD_TIMEOUT must be positive")
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("TASK_TIMEOUT must be positive")
	}
	return nil
}

// Resolve makes p absolute, treating relative paths as relative to ProjectRoot
func (c *Config) Resolve(p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.ProjectRoot, p)
	}
	return filepath.Abs(p)
}

// DownloadsPath returns the absolute downloads folder
func (c *Config) DownloadsPath() (string, error) {
	return c.Resolve(c.DownloadsFolder)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
