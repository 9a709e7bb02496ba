// Package config loads formflow settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/logging"
)

// Environment variables that override file values.
const (
	EnvToken        = "FORMFLOW_TOKEN"
	EnvUsersURL     = "FORMFLOW_USERS_URL"
	EnvChartsURL    = "FORMFLOW_CHARTS_URL"
	EnvCountriesURL = "FORMFLOW_COUNTRIES_URL"
	EnvGeoURL       = "FORMFLOW_GEO_URL"
	EnvLogLevel     = "FORMFLOW_LOG_LEVEL"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full runtime configuration.
type Config struct {
	API      API            `yaml:"api"`
	Location Location       `yaml:"location"`
	Server   Server         `yaml:"server"`
	Log      logging.Config `yaml:"log"`
}

// API points at the remote services.
type API struct {
	UsersURL     string        `yaml:"users_url"`
	ChartsURL    string        `yaml:"charts_url"`
	CountriesURL string        `yaml:"countries_url"`
	Token        string        `yaml:"token"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Location configures the IP based locator.
type Location struct {
	GeoURL  string        `yaml:"geo_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Server configures the countries/metrics HTTP server.
type Server struct {
	Addr        string `yaml:"addr"`
	BasePath    string `yaml:"base_path"`
	MetricsPath string `yaml:"metrics_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: API{
			UsersURL:     "http://localhost:8080/api",
			ChartsURL:    "http://localhost:8080/api",
			CountriesURL: "http://localhost:8090/api/countries",
			Timeout:      15 * time.Second,
		},
		Location: Location{
			GeoURL:  "http://ip-api.com/json/",
			Timeout: 10 * time.Second,
		},
		Server: Server{
			Addr:        ":8090",
			BasePath:    "/",
			MetricsPath: "/metrics",
		},
		Log: logging.Config{Level: "info"},
	}
}

// Load reads path from the operating system. An empty path yields the
// defaults with environment overrides.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := Default()
		cfg.ApplyEnv(os.LookupEnv)
		return cfg, cfg.Validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parse(raw, path)
}

// LoadFS reads path from fsys.
func LoadFS(fsys fs.FS, path string) (Config, error) {
	if fsys == nil {
		return Config{}, errors.New("config: nil filesystem")
	}
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parse(raw, path)
}

func parse(raw []byte, source string) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", source, err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides values from lookup, usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if c == nil || lookup == nil {
		return
	}
	set := func(key string, dest *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dest = strings.TrimSpace(v)
		}
	}
	set(EnvToken, &c.API.Token)
	set(EnvUsersURL, &c.API.UsersURL)
	set(EnvChartsURL, &c.API.ChartsURL)
	set(EnvCountriesURL, &c.API.CountriesURL)
	set(EnvGeoURL, &c.Location.GeoURL)
	set(EnvLogLevel, &c.Log.Level)
}

// Validate checks URLs, timeouts and the log level.
func (c Config) Validate() error {
	var problems []string
	for name, raw := range map[string]string{
		"api.users_url":     c.API.UsersURL,
		"api.charts_url":    c.API.ChartsURL,
		"api.countries_url": c.API.CountriesURL,
		"location.geo_url":  c.Location.GeoURL,
	} {
		if err := checkURL(raw); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if c.API.Timeout < 0 {
		problems = append(problems, "api.timeout: must not be negative")
	}
	if c.Location.Timeout < 0 {
		problems = append(problems, "location.timeout: must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level: "+err.Error())
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

func checkURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
