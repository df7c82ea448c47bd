package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"showroom-kpi/models"
)

const defaultKPIURL = "https://www.showroom-live.com/organizer/live_kpi"

// Config holds all application configuration. Values come from an optional
// YAML file and are overridden by environment variables (and .env).
type Config struct {
	Showroom ShowroomConfig `yaml:"showroom"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
	FTP      FTPConfig      `yaml:"ftp"`
	Output   OutputConfig   `yaml:"output"`
	Postgres PostgresConfig `yaml:"postgres"`

	Schedule string `yaml:"schedule"`
	LogLevel string `yaml:"log_level"`
}

type ShowroomConfig struct {
	AuthCookieString string `yaml:"auth_cookie_string"`
	KPIURL           string `yaml:"kpi_url"`
}

type ScrapeConfig struct {
	Mode              string `yaml:"mode"`
	MaxPages          int    `yaml:"max_pages"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	MaxRetries        int    `yaml:"max_retries"`
	RateLimitMs       int    `yaml:"rate_limit_ms"`
	Fetcher           string `yaml:"fetcher"`
	ChromeBin         string `yaml:"chrome_bin"`
	FirstMonth        string `yaml:"first_month"`
}

type FTPConfig struct {
	Host           string `yaml:"host"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	TargetBasePath string `yaml:"target_base_path"`
	TimeoutSec     int    `yaml:"timeout_sec"`
}

type OutputConfig struct {
	Delivery  string `yaml:"delivery"`
	Dir       string `yaml:"dir"`
	WriteXLSX bool   `yaml:"write_xlsx"`
}

type PostgresConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
	SSLMode  string `yaml:"sslmode"`
}

// Load reads .env, the optional YAML file named by CONFIG_FILE (default
// config.yaml), then applies environment overrides and defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{}
	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Showroom.AuthCookieString = getEnv("SHOWROOM_COOKIE", c.Showroom.AuthCookieString)
	c.Showroom.KPIURL = getEnv("KPI_URL", or(c.Showroom.KPIURL, defaultKPIURL))

	c.Scrape.Mode = getEnv("SCRAPE_MODE", or(c.Scrape.Mode, "strict"))
	c.Scrape.MaxPages = getEnvInt("MAX_PAGES", orInt(c.Scrape.MaxPages, 5))
	c.Scrape.RequestTimeoutSec = getEnvInt("REQUEST_TIMEOUT_SEC", orInt(c.Scrape.RequestTimeoutSec, 30))
	c.Scrape.MaxRetries = getEnvInt("MAX_RETRIES", orInt(c.Scrape.MaxRetries, 1))
	c.Scrape.RateLimitMs = getEnvInt("RATE_LIMIT_MS", c.Scrape.RateLimitMs)
	c.Scrape.Fetcher = getEnv("FETCHER", or(c.Scrape.Fetcher, "http"))
	c.Scrape.ChromeBin = getEnv("CHROME_BIN", c.Scrape.ChromeBin)
	c.Scrape.FirstMonth = getEnv("FIRST_MONTH", or(c.Scrape.FirstMonth, models.FirstAvailableMonth.Key()))

	c.FTP.Host = getEnv("FTP_HOST", c.FTP.Host)
	c.FTP.User = getEnv("FTP_USER", c.FTP.User)
	c.FTP.Password = getEnv("FTP_PASSWORD", c.FTP.Password)
	c.FTP.TargetBasePath = getEnv("FTP_BASE_PATH", c.FTP.TargetBasePath)
	c.FTP.TimeoutSec = getEnvInt("FTP_TIMEOUT_SEC", orInt(c.FTP.TimeoutSec, 30))

	c.Output.Delivery = getEnv("DELIVERY", or(c.Output.Delivery, "ftp"))
	c.Output.Dir = getEnv("OUTPUT_DIR", or(c.Output.Dir, "./output"))
	c.Output.WriteXLSX = getEnvBool("WRITE_XLSX", c.Output.WriteXLSX)

	c.Postgres.Enabled = getEnvBool("POSTGRES_ENABLED", c.Postgres.Enabled)
	c.Postgres.Host = getEnv("POSTGRES_HOST", or(c.Postgres.Host, "localhost"))
	c.Postgres.Port = getEnv("POSTGRES_PORT", or(c.Postgres.Port, "5432"))
	c.Postgres.User = getEnv("POSTGRES_USER", or(c.Postgres.User, "kpi"))
	c.Postgres.Password = getEnv("POSTGRES_PASSWORD", c.Postgres.Password)
	c.Postgres.DB = getEnv("POSTGRES_DB", or(c.Postgres.DB, "kpi"))
	c.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", or(c.Postgres.SSLMode, "disable"))

	c.Schedule = getEnv("SCHEDULE", c.Schedule)
	c.LogLevel = getEnv("LOG_LEVEL", or(c.LogLevel, "info"))
}

// Validate reports configuration problems that must stop a run before any
// page is fetched.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Showroom.AuthCookieString) == "" {
		errs = append(errs, errors.New("SHOWROOM_COOKIE (showroom.auth_cookie_string) is required"))
	}
	switch strings.ToLower(c.Scrape.Mode) {
	case "strict", "preserve":
	default:
		errs = append(errs, fmt.Errorf("SCRAPE_MODE %q must be strict or preserve", c.Scrape.Mode))
	}
	switch c.Scrape.Fetcher {
	case "http", "browser":
	default:
		errs = append(errs, fmt.Errorf("FETCHER %q must be http or browser", c.Scrape.Fetcher))
	}
	if c.Scrape.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("MAX_PAGES must be at least 1, got %d", c.Scrape.MaxPages))
	}
	switch c.Output.Delivery {
	case "ftp":
		if c.FTP.Host == "" || c.FTP.User == "" || c.FTP.Password == "" {
			errs = append(errs, errors.New("FTP_HOST, FTP_USER and FTP_PASSWORD are required for ftp delivery"))
		}
	case "local":
	default:
		errs = append(errs, fmt.Errorf("DELIVERY %q must be ftp or local", c.Output.Delivery))
	}
	return errors.Join(errs...)
}

// RequestTimeout is the per-page request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Scrape.RequestTimeoutSec) * time.Second
}

// RateLimit is the minimum delay between page requests.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.Scrape.RateLimitMs) * time.Millisecond
}

// FTPTimeout bounds dialing and each FTP command.
func (c *Config) FTPTimeout() time.Duration {
	return time.Duration(c.FTP.TimeoutSec) * time.Second
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	p := c.Postgres
	return "host=" + p.Host +
		" port=" + p.Port +
		" user=" + p.User +
		" password=" + p.Password +
		" dbname=" + p.DB +
		" sslmode=" + p.SSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
		log.Printf("[config] Invalid value for %s=%q, using default %d", key, val, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
		log.Printf("[config] Invalid value for %s=%q, using default %t", key, val, fallback)
	}
	return fallback
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func orInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}
