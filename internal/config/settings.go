package config

import (
	"errors"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultBaseURL         = "https://chat.example.com/api"
	defaultTickInterval    = time.Second
	defaultScanConcurrency = 1
)

type Config struct {
	Service Service `toml:"service"`
	Sync    Sync    `toml:"sync"`
	Store   Store   `toml:"store"`
	Logging Logging `toml:"logging"`
}

type Service struct {
	BaseURL string `toml:"base_url"`
}

type Sync struct {
	TickInterval    string `toml:"tick_interval"`
	ScanConcurrency int    `toml:"scan_concurrency"`
}

type Store struct {
	// DSN selects the backend: postgres://, file://, or a bbolt path.
	DSN string `toml:"dsn"`
}

type Logging struct {
	Level string `toml:"level"`
}

func Default() Config {
	return Config{
		Service: Service{BaseURL: defaultBaseURL},
		Sync: Sync{
			TickInterval:    defaultTickInterval.String(),
			ScanConcurrency: defaultScanConcurrency,
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads the config file, layering it over the defaults. A missing or
// empty file yields the defaults.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func (c Config) ServiceBaseURL() string {
	url := strings.TrimSpace(c.Service.BaseURL)
	if url == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(url, "/")
}

func (c Config) TickInterval() time.Duration {
	raw := strings.TrimSpace(c.Sync.TickInterval)
	if raw == "" {
		return defaultTickInterval
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultTickInterval
	}
	return d
}

func (c Config) ScanConcurrency() int {
	if c.Sync.ScanConcurrency <= 0 {
		return defaultScanConcurrency
	}
	return c.Sync.ScanConcurrency
}

// StoreDSN resolves the account store DSN, defaulting to a bbolt database
// under the data directory.
func (c Config) StoreDSN() (string, error) {
	dsn := strings.TrimSpace(c.Store.DSN)
	if dsn != "" {
		return dsn, nil
	}
	return DefaultStorePath()
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}
