package utils

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer"`
	JWTDuration time.Duration `yaml:"jwt_ttl"`
}

type DBConfig struct {
	Driver   string `yaml:"driver"` // "sqlite3" or "postgres"
	Path     string `yaml:"path"`
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns"`
}

type ScraperConfig struct {
	// Sources lists enabled sources in priority order; earlier sources win
	// duplicate product URLs.
	Sources []string `yaml:"sources"`
	Pages   int      `yaml:"pages"`
	// PagesBySource overrides Pages for individual sources.
	PagesBySource  map[string]int `yaml:"pages_by_source"`
	Attempts       int            `yaml:"attempts"`
	RetryDelay     time.Duration  `yaml:"retry_delay"`
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	SourceTimeout  time.Duration  `yaml:"source_timeout"`
	RatePerSecond  float64        `yaml:"rate_per_second"`
	UserAgents     []string       `yaml:"user_agents"`
	MirrorURL      string         `yaml:"mirror_url"`
	// Render lists sources that should be fetched through a headless browser.
	Render []string `yaml:"render"`
}

type RatesConfig struct {
	Currency string             `yaml:"currency"`
	Default  float64            `yaml:"default"`
	BySymbol map[string]float64 `yaml:"by_symbol"`
}

type MonitorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type NotifyConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
	From     string `yaml:"from"`
	UDPAddr  string `yaml:"udp_addr"`
}

type Config struct {
	HTTPAddr string        `yaml:"http_addr"`
	LiveAddr string        `yaml:"live_addr"`
	Auth     AuthConfig    `yaml:"auth"`
	DB       DBConfig      `yaml:"db"`
	Scraper  ScraperConfig `yaml:"scraper"`
	Rates    RatesConfig   `yaml:"rates"`
	Monitor  MonitorConfig `yaml:"monitor"`
	Notify   NotifyConfig  `yaml:"notify"`
}

func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		HTTPAddr: ":8080",
		LiveAddr: ":7070",
		Auth: AuthConfig{
			// dev default (change for demo / production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "pricewatch",
			JWTDuration: 24 * time.Hour,
		},
		DB: DBConfig{
			Driver:   "sqlite3",
			Path:     filepath.Join(home, ".pricewatch", "data.db"),
			MaxConns: 4,
		},
		Scraper: ScraperConfig{
			Sources:        []string{"amazon", "walmart", "glotelho"},
			Pages:          5,
			PagesBySource:  map[string]int{"glotelho": 3},
			Attempts:       3,
			RetryDelay:     time.Second,
			RequestTimeout: 10 * time.Second,
			SourceTimeout:  45 * time.Second,
			RatePerSecond:  5,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
			},
			MirrorURL: "http://localhost:9000",
		},
		Rates: RatesConfig{
			Currency: "FCFA",
			Default:  600,
			BySymbol: map[string]float64{"$": 600, "€": 655.957, "£": 800},
		},
		Monitor: MonitorConfig{
			Enabled:  true,
			Interval: 2 * time.Hour,
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
			From:     "pricewatch@localhost",
			UDPAddr:  ":9091",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and finally PRICEWATCH_* environment variables.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = getEnv("PRICEWATCH_CONFIG", "config/pricewatch.yaml")
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] ignoring .env: %v", err)
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getEnv("PRICEWATCH_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LiveAddr = getEnv("PRICEWATCH_LIVE_ADDR", cfg.LiveAddr)

	cfg.Auth.JWTSecret = getEnv("PRICEWATCH_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTIssuer = getEnv("PRICEWATCH_JWT_ISSUER", cfg.Auth.JWTIssuer)
	if h := getEnvInt("PRICEWATCH_JWT_TTL_HOURS", 0); h > 0 {
		cfg.Auth.JWTDuration = time.Duration(h) * time.Hour
	}

	cfg.DB.Driver = getEnv("PRICEWATCH_DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Path = getEnv("PRICEWATCH_DB_PATH", cfg.DB.Path)
	cfg.DB.DSN = getEnv("PRICEWATCH_DB_DSN", cfg.DB.DSN)
	cfg.DB.MaxConns = getEnvInt("PRICEWATCH_DB_MAX_CONNS", cfg.DB.MaxConns)

	if s := os.Getenv("PRICEWATCH_SOURCES"); s != "" {
		cfg.Scraper.Sources = splitList(s)
	}
	if s := os.Getenv("PRICEWATCH_RENDER"); s != "" {
		cfg.Scraper.Render = splitList(s)
	}
	cfg.Scraper.Pages = getEnvInt("PRICEWATCH_PAGES", cfg.Scraper.Pages)
	cfg.Scraper.Attempts = getEnvInt("PRICEWATCH_ATTEMPTS", cfg.Scraper.Attempts)
	cfg.Scraper.RetryDelay = getEnvDuration("PRICEWATCH_RETRY_DELAY", cfg.Scraper.RetryDelay)
	cfg.Scraper.RequestTimeout = getEnvDuration("PRICEWATCH_REQUEST_TIMEOUT", cfg.Scraper.RequestTimeout)
	cfg.Scraper.SourceTimeout = getEnvDuration("PRICEWATCH_SOURCE_TIMEOUT", cfg.Scraper.SourceTimeout)
	cfg.Scraper.MirrorURL = getEnv("PRICEWATCH_MIRROR_URL", cfg.Scraper.MirrorURL)

	cfg.Monitor.Interval = getEnvDuration("PRICEWATCH_MONITOR_INTERVAL", cfg.Monitor.Interval)
	if v := os.Getenv("PRICEWATCH_MONITOR_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Monitor.Enabled = b
		}
	}

	cfg.Notify.SMTPHost = getEnv("PRICEWATCH_SMTP_HOST", cfg.Notify.SMTPHost)
	cfg.Notify.SMTPPort = getEnvInt("PRICEWATCH_SMTP_PORT", cfg.Notify.SMTPPort)
	cfg.Notify.SMTPUser = getEnv("PRICEWATCH_SMTP_USER", cfg.Notify.SMTPUser)
	cfg.Notify.SMTPPass = getEnv("PRICEWATCH_SMTP_PASS", cfg.Notify.SMTPPass)
	cfg.Notify.From = getEnv("PRICEWATCH_MAIL_FROM", cfg.Notify.From)
	cfg.Notify.UDPAddr = getEnv("PRICEWATCH_UDP_ADDR", cfg.Notify.UDPAddr)
}

func (c Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite3":
		if c.DB.Path == "" {
			return errors.New("config: db.path required for sqlite3")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return errors.New("config: db.dsn required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown db driver %q", c.DB.Driver)
	}
	if len(c.Scraper.Sources) == 0 {
		return errors.New("config: at least one scraper source required")
	}
	if c.Scraper.Pages <= 0 || c.Scraper.Attempts <= 0 {
		return errors.New("config: scraper pages and attempts must be > 0")
	}
	for name, n := range c.Scraper.PagesBySource {
		if n <= 0 {
			return fmt.Errorf("config: scraper pages for %s must be > 0", name)
		}
	}
	if c.Rates.Default <= 0 {
		return errors.New("config: rates.default must be > 0")
	}
	if c.Monitor.Interval <= 0 {
		return errors.New("config: monitor.interval must be > 0")
	}
	return nil
}

// PagesFor returns the page window for the named source.
func (s ScraperConfig) PagesFor(name string) int {
	if n, ok := s.PagesBySource[name]; ok {
		return n
	}
	return s.Pages
}

// Renders reports whether the named source is configured for browser rendering.
func (s ScraperConfig) Renders(name string) bool {
	for _, r := range s.Render {
		if r == name {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
