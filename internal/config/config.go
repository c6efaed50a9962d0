package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Env variable names (documented for reference)
const (
	envVersion       = "APP_VERSION"
	envLogLevel      = "LOG_LEVEL"
	envListenAddr    = "LISTEN_ADDR"
	envMetricsAddr   = "METRICS_ADDR"
	envWBToken       = "WB_TOKEN"
	envWBBaseURL     = "WB_BASE_URL"
	envOpenAIKey     = "OPENAI_API_KEY"
	envOpenAIBaseURL = "OPENAI_BASE_URL"
	envOpenAIModel   = "OPENAI_MODEL"
	envOrdersToken   = "ORDERS_TOKEN"
	envOrdersBaseURL = "ORDERS_BASE_URL"
	envFetchTake     = "FETCH_TAKE"
	envWBRateRPS     = "WB_RATE_LIMIT"
	envWBRateBurst   = "WB_RATE_BURST"
	envSessionTTL    = "SESSION_TTL" // Go duration string, e.g. "30m"
	envCORSOrigins   = "CORS_ORIGINS"
)

// Config aggregates all runtime settings required by the application.
// All fields are immutable after MustLoad().
//
// The WB and OpenAI tokens are optional here: credentials are normally
// supplied per session through the connect endpoint, and the env values only
// seed an auto-connected bootstrap session (mirroring local development where
// both tokens live in .env).
type Config struct {
	Version     string // app semantic version or git SHA
	LogLevel    string // debug, info, warn, error, fatal (zap levels)
	ListenAddr  string // dashboard API listen address
	MetricsAddr string // Prometheus endpoint listen address

	WBToken   string // optional preloaded Feedbacks API token
	WBBaseURL string // https://feedbacks-api.wildberries.ru or sandbox URL

	OpenAIKey     string // optional preloaded completion API key
	OpenAIBaseURL string
	OpenAIModel   string

	OrdersToken   string // optional auxiliary order-statistics credential
	OrdersBaseURL string

	FetchTake   int           // page size for upstream fetches, <=5000
	WBRateRPS   int           // WB API requests per second, 0 disables limiting
	WBRateBurst int           // WB API burst size
	SessionTTL  time.Duration // idle session lifetime
	CORSOrigins []string      // allowed browser origins
}

var (
	defaultVersion       = "dev"
	defaultLogLevel      = "info"
	defaultListenAddr    = ":8080"
	defaultMetricsAddr   = ":9090"
	defaultWBBaseURL     = "https://feedbacks-api.wildberries.ru"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultFetchTake     = 100
	defaultWBRateRPS     = 3
	defaultWBRateBurst   = 6
	defaultSessionTTL    = 30 * time.Minute
)

// MustLoad is a convenience wrapper around Load() that panics on error.
// Preferable in main() early startup where configuration problems are fatal.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads a .env file when present, then environment variables, applies
// defaults, validates the result and returns a ready-to-use Config.
func Load() (Config, error) {
	_ = godotenv.Load() // absent .env is fine

	var cfg Config

	cfg.Version = getEnv(envVersion, defaultVersion)
	cfg.LogLevel = getEnv(envLogLevel, defaultLogLevel)
	cfg.ListenAddr = getEnv(envListenAddr, defaultListenAddr)
	cfg.MetricsAddr = getEnv(envMetricsAddr, defaultMetricsAddr)

	cfg.WBToken = os.Getenv(envWBToken)
	cfg.WBBaseURL = getEnv(envWBBaseURL, defaultWBBaseURL)

	cfg.OpenAIKey = os.Getenv(envOpenAIKey)
	cfg.OpenAIBaseURL = getEnv(envOpenAIBaseURL, defaultOpenAIBaseURL)
	cfg.OpenAIModel = getEnv(envOpenAIModel, defaultOpenAIModel)

	cfg.OrdersToken = os.Getenv(envOrdersToken)
	cfg.OrdersBaseURL = os.Getenv(envOrdersBaseURL)

	if s := os.Getenv(envFetchTake); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envFetchTake, err)
		}
		cfg.FetchTake = n
	} else {
		cfg.FetchTake = defaultFetchTake
	}

	if s := os.Getenv(envWBRateRPS); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envWBRateRPS, err)
		}
		cfg.WBRateRPS = n
	} else {
		cfg.WBRateRPS = defaultWBRateRPS
	}

	if s := os.Getenv(envWBRateBurst); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envWBRateBurst, err)
		}
		cfg.WBRateBurst = n
	} else {
		cfg.WBRateBurst = defaultWBRateBurst
	}

	if s := os.Getenv(envSessionTTL); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envSessionTTL, err)
		}
		cfg.SessionTTL = d
	} else {
		cfg.SessionTTL = defaultSessionTTL
	}

	if s := os.Getenv(envCORSOrigins); s != "" {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	// Validation
	if cfg.FetchTake <= 0 || cfg.FetchTake > 5000 {
		return Config{}, fmt.Errorf("%s must be in 1..5000", envFetchTake)
	}
	if cfg.SessionTTL < time.Minute {
		return Config{}, fmt.Errorf("session TTL too small (>=1m)")
	}
	if cfg.WBRateRPS < 0 {
		return Config{}, fmt.Errorf("%s must be >=0", envWBRateRPS)
	}
	if cfg.WBRateRPS > 0 && cfg.WBRateBurst < 1 {
		return Config{}, fmt.Errorf("%s must be >=1 when %s is set", envWBRateBurst, envWBRateRPS)
	}
	return cfg, nil
}

// getEnv returns the value of the environment variable if set, otherwise def.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
