// Package config resolves the CLI configuration. Later sources win:
// built-in defaults, the YAML file, .env files and the environment, then
// command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIBaseURL is the hosted HR dashboard backend.
	DefaultAPIBaseURL = "https://hr-dashboard-backend-99kv.onrender.com/api"
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	envPrefix = "HRMS"
	stateDir  = ".hrms"
)

// Config holds the resolved settings.
type Config struct {
	APIBaseURL string        `yaml:"apiBaseUrl" envconfig:"API_URL"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	// StateDir holds the session snapshot and cookie jar.
	StateDir string `yaml:"stateDir" envconfig:"STATE_DIR"`
	// CacheDir enables the on-disk HTTP cache when set.
	CacheDir string `yaml:"cacheDir" envconfig:"CACHE_DIR"`
}

// Sources lists where configuration is read from.
type Sources struct {
	// File is the YAML config file. Empty means <home>/.hrms/config.yaml.
	// A missing file is not an error.
	File string
	// EnvFiles are loaded into the environment without overriding variables
	// that are already set. Empty means ".env". Missing files are skipped.
	EnvFiles []string
	// Flags holds command line values; non-zero fields win over everything.
	Flags Config
}

// Default returns the built-in defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return &Config{
		APIBaseURL: DefaultAPIBaseURL,
		Timeout:    DefaultTimeout,
		StateDir:   filepath.Join(home, stateDir),
	}, nil
}

// DefaultFile returns the default YAML config path.
func DefaultFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, stateDir, "config.yaml"), nil
}

// Load resolves the configuration from all sources and validates it.
func Load(src Sources) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	file := src.File
	if file == "" {
		if file, err = DefaultFile(); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeFile(file); err != nil {
		return nil, err
	}

	envFiles := src.EnvFiles
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	// fields without a default tag are left alone when the variable is unset
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.merge(src.Flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("apiBaseUrl", cfg.APIBaseURL).
		Dur("timeout", cfg.Timeout).
		Str("stateDir", cfg.StateDir).
		Str("cacheDir", cfg.CacheDir).
		Msg("configuration loaded")

	return cfg, nil
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid api base url %q: must be an absolute http(s) URL", c.APIBaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	if c.StateDir == "" {
		return errors.New("state dir must be set")
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.merge(fromFile)

	log.Debug().Str("path", path).Msg("merged config file")

	return nil
}

func (c *Config) merge(other Config) {
	if other.APIBaseURL != "" {
		c.APIBaseURL = other.APIBaseURL
	}
	if other.Timeout != 0 {
		c.Timeout = other.Timeout
	}
	if other.StateDir != "" {
		c.StateDir = other.StateDir
	}
	if other.CacheDir != "" {
		c.CacheDir = other.CacheDir
	}
}

func loadEnvFiles(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			var pathErr *fs.PathError
			if errors.As(err, &pathErr) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}
