package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Login     LoginConfig     `yaml:"login"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 3000
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Chrome instance and the tabs opened on it.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox"` // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"browser_bin"`

	// Proxy is the proxy URL for all browser traffic.
	Proxy string `yaml:"proxy"`

	// Stealth injects the stealth script into every new tab.
	Stealth bool `yaml:"stealth"` // default: true

	UserAgent      string `yaml:"user_agent"`
	AcceptLanguage string `yaml:"accept_language"` // default: "en-US,en;q=0.9"

	ViewportWidth  int `yaml:"viewport_width"`  // default: 1366
	ViewportHeight int `yaml:"viewport_height"` // default: 768

	// BlockedResources lists resource types every tab refuses to load:
	// "Image", "Stylesheet", "Font", "Media". Empty loads everything.
	//
	// Blocking runs a Fetch-domain hijack router next to the Network-domain
	// listeners used for traffic and idle tracking. Some Chromium builds
	// (145+) fail requests with ERR_BLOCKED_BY_CLIENT when both are active;
	// leave blocking off on those.
	BlockedResources []string `yaml:"blocked_resources"`

	// BlockAds refuses requests to known ad and tracking domains. Same
	// Chromium caveat as BlockedResources.
	BlockAds bool `yaml:"block_ads"` // default: false

	// ExtraHeaders are sent with every request a tab makes. File only.
	ExtraHeaders map[string]string `yaml:"extra_headers"`
}

// ScraperConfig controls the per-fetch timing.
type ScraperConfig struct {
	// NavigationTimeout bounds navigation up to the load event.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"` // default: 30s

	// SettleDelay absorbs client-side redirects after load.
	SettleDelay time.Duration `yaml:"settle_delay"` // default: 1s

	// IdleTimeout bounds the network idle wait.
	IdleTimeout time.Duration `yaml:"idle_timeout"` // default: 10s

	// IdleWindow is how long the network must stay quiet to count as idle.
	IdleWindow time.Duration `yaml:"idle_window"` // default: 500ms

	// ProbeTimeout bounds each classification probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout"` // default: 1.5s
}

// LoginConfig holds the fallback credentials and timing for gated sites.
type LoginConfig struct {
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	StepTimeout time.Duration `yaml:"step_timeout"` // default: 15s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool `yaml:"enabled"` // default: false

	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"` // default: false

	// RequestsPerSecond is the sustained rate per identity.
	RequestsPerSecond float64 `yaml:"requests_per_second"` // default: 5

	// Burst is the maximum burst size per identity.
	Burst int `yaml:"burst"` // default: 10
}

// CacheConfig sizes the session and response caches.
type CacheConfig struct {
	SessionCapacity  int           `yaml:"session_capacity"`  // default: 100
	SessionTTL       time.Duration `yaml:"session_ttl"`       // default: 24h
	ResponseCapacity int           `yaml:"response_capacity"` // default: 1000
	ResponseTTL      time.Duration `yaml:"response_ttl"`      // default: 1h
}

// JobsConfig controls the job registry.
type JobsConfig struct {
	Capacity int           `yaml:"capacity"` // default: 1000
	TTL      time.Duration `yaml:"ttl"`      // default: 1h
	Schedule string        `yaml:"schedule"` // default: "@every 5s"

	// MaxConcurrentJobs and MaxJobsQueue are reported at startup; nothing
	// enforces them yet.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"` // default: 2
	MaxJobsQueue      int `yaml:"max_jobs_queue"`      // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// DefaultUserAgent is a current desktop Chrome on Windows.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Mode: "release",
		},
		Browser: BrowserConfig{
			Headless:       true,
			NoSandbox:      true,
			Stealth:        true,
			UserAgent:      DefaultUserAgent,
			AcceptLanguage: "en-US,en;q=0.9",
			ViewportWidth:  1366,
			ViewportHeight: 768,
		},
		Scraper: ScraperConfig{
			NavigationTimeout: 30 * time.Second,
			SettleDelay:       time.Second,
			IdleTimeout:       10 * time.Second,
			IdleWindow:        500 * time.Millisecond,
			ProbeTimeout:      1500 * time.Millisecond,
		},
		Login: LoginConfig{
			StepTimeout: 15 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Cache: CacheConfig{
			SessionCapacity:  100,
			SessionTTL:       24 * time.Hour,
			ResponseCapacity: 1000,
			ResponseTTL:      time.Hour,
		},
		Jobs: JobsConfig{
			Capacity:          1000,
			TTL:               time.Hour,
			Schedule:          "@every 5s",
			MaxConcurrentJobs: 2,
			MaxJobsQueue:      10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// PAGECRAWL_CONFIG if set, then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("PAGECRAWL_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = envOr("PAGECRAWL_HOST", c.Server.Host)
	c.Server.Port = envIntOr("PAGECRAWL_PORT", envIntOr("PORT", c.Server.Port))
	c.Server.Mode = envOr("PAGECRAWL_MODE", c.Server.Mode)

	c.Browser.Headless = envBoolOr("PAGECRAWL_HEADLESS", c.Browser.Headless)
	c.Browser.NoSandbox = envBoolOr("PAGECRAWL_NO_SANDBOX", c.Browser.NoSandbox)
	c.Browser.BrowserBin = envOr("PAGECRAWL_BROWSER_BIN", c.Browser.BrowserBin)
	c.Browser.Proxy = envOr("PAGECRAWL_PROXY", c.Browser.Proxy)
	c.Browser.Stealth = envBoolOr("PAGECRAWL_STEALTH", c.Browser.Stealth)
	c.Browser.UserAgent = envOr("PAGECRAWL_USER_AGENT", c.Browser.UserAgent)
	c.Browser.AcceptLanguage = envOr("PAGECRAWL_ACCEPT_LANGUAGE", c.Browser.AcceptLanguage)
	c.Browser.BlockedResources = envSliceOr("PAGECRAWL_BLOCKED_RESOURCES", c.Browser.BlockedResources)
	c.Browser.BlockAds = envBoolOr("PAGECRAWL_BLOCK_ADS", c.Browser.BlockAds)

	c.Scraper.NavigationTimeout = envDurationOr("PAGECRAWL_NAV_TIMEOUT", c.Scraper.NavigationTimeout)
	c.Scraper.SettleDelay = envDurationOr("PAGECRAWL_SETTLE_DELAY", c.Scraper.SettleDelay)
	c.Scraper.IdleTimeout = envDurationOr("PAGECRAWL_IDLE_TIMEOUT", c.Scraper.IdleTimeout)
	c.Scraper.IdleWindow = envDurationOr("PAGECRAWL_IDLE_WINDOW", c.Scraper.IdleWindow)
	c.Scraper.ProbeTimeout = envDurationOr("PAGECRAWL_PROBE_TIMEOUT", c.Scraper.ProbeTimeout)

	c.Login.Username = envOr("PAGECRAWL_LOGIN_USERNAME", c.Login.Username)
	c.Login.Password = envOr("PAGECRAWL_LOGIN_PASSWORD", c.Login.Password)
	c.Login.StepTimeout = envDurationOr("PAGECRAWL_LOGIN_STEP_TIMEOUT", c.Login.StepTimeout)

	c.Auth.Enabled = envBoolOr("PAGECRAWL_AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.APIKeys = envSliceOr("PAGECRAWL_API_KEYS", c.Auth.APIKeys)

	c.RateLimit.Enabled = envBoolOr("PAGECRAWL_RATE_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerSecond = envFloatOr("PAGECRAWL_RATE_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = envIntOr("PAGECRAWL_RATE_BURST", c.RateLimit.Burst)

	c.Cache.SessionCapacity = envIntOr("PAGECRAWL_SESSION_CAPACITY", c.Cache.SessionCapacity)
	c.Cache.SessionTTL = envDurationOr("PAGECRAWL_SESSION_TTL", c.Cache.SessionTTL)
	c.Cache.ResponseCapacity = envIntOr("PAGECRAWL_RESPONSE_CAPACITY", c.Cache.ResponseCapacity)
	c.Cache.ResponseTTL = envDurationOr("PAGECRAWL_RESPONSE_TTL", c.Cache.ResponseTTL)

	c.Jobs.Capacity = envIntOr("PAGECRAWL_JOB_CAPACITY", c.Jobs.Capacity)
	c.Jobs.TTL = envDurationOr("PAGECRAWL_JOB_TTL", c.Jobs.TTL)
	c.Jobs.Schedule = envOr("PAGECRAWL_JOB_SCHEDULE", c.Jobs.Schedule)
	c.Jobs.MaxConcurrentJobs = envIntOr("MAX_CONCURRENT_JOBS", c.Jobs.MaxConcurrentJobs)
	c.Jobs.MaxJobsQueue = envIntOr("MAX_JOBS_QUEUE", c.Jobs.MaxJobsQueue)

	c.Log.Level = envOr("PAGECRAWL_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("PAGECRAWL_LOG_FORMAT", c.Log.Format)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
