package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieDomain    string
	CookieSecure    bool
	CookieSameSite  http.SameSite

	// PricingVariantFallback selects how variant products without an explicit
	// selection resolve their price context: "none" or "first-variant".
	PricingVariantFallback string
	PricingTaxRateBPS      int
	CurrencyCode           string

	CatalogCacheTTL     time.Duration
	CatalogDefaultPage  int
	CatalogDefaultLimit int
	CatalogMaxLimit     int

	IdempotencyTTL   time.Duration
	PaymentProvider  string
	PaymentSandbox   bool
	PaymentIntentTTL time.Duration
	WebhookReplayTTL time.Duration

	MidtransServerKey string
	MidtransClientKey string
	MidtransBaseURL   string

	XenditSecretKey string
	XenditBaseURL   string

	CallbackBaseURL string

	ShippingFlatAmount int64

	LoginRateLimit string

	LockTTL          time.Duration
	LockRetryBackoff time.Duration

	WorkerConcurrency   int
	PendingOrderTTL     time.Duration
	OrderExpireInterval time.Duration
	OutboxRelayInterval time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		AccessTokenTTL:  parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		RefreshTokenTTL: parseDuration(k.String("REFRESH_TOKEN_TTL"), "720h"),
		CookieDomain:    strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:    parseBool(k.String("COOKIE_SECURE")),
		CookieSameSite:  parseSameSite(k.String("COOKIE_SAMESITE")),

		PricingVariantFallback: valueOrDefault(k.String("PRICING_VARIANT_FALLBACK"), "none"),
		PricingTaxRateBPS:      intOrDefault(k.String("PRICING_TAX_RATE_BPS"), 1100),
		CurrencyCode:           valueOrDefault(k.String("CURRENCY_CODE"), "IDR"),

		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		CatalogDefaultPage:  intOrDefault(k.String("CATALOG_DEFAULT_PAGE"), 1),
		CatalogDefaultLimit: intOrDefault(k.String("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:     intOrDefault(k.String("CATALOG_MAX_LIMIT"), 100),

		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		PaymentProvider:  valueOrDefault(k.String("PAYMENT_PROVIDER"), "midtrans"),
		PaymentSandbox:   parseBool(valueOrDefault(k.String("PAYMENT_SANDBOX"), "true")),
		PaymentIntentTTL: parseDuration(k.String("PAYMENT_INTENT_TTL"), "24h"),
		WebhookReplayTTL: parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "72h"),

		MidtransServerKey: k.String("MIDTRANS_SERVER_KEY"),
		MidtransClientKey: k.String("MIDTRANS_CLIENT_KEY"),
		MidtransBaseURL:   k.String("MIDTRANS_BASE_URL"),

		XenditSecretKey: k.String("XENDIT_SECRET_KEY"),
		XenditBaseURL:   k.String("XENDIT_BASE_URL"),

		CallbackBaseURL: strings.TrimSpace(k.String("CALLBACK_BASE_URL")),

		ShippingFlatAmount: int64(intOrDefault(k.String("SHIPPING_FLAT_AMOUNT"), 0)),

		LoginRateLimit: valueOrDefault(k.String("LOGIN_RATE_LIMIT"), "10-M"),

		LockTTL:          parseDuration(k.String("LOCK_TTL"), "15s"),
		LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),

		WorkerConcurrency:   intOrDefault(k.String("WORKER_CONCURRENCY"), 10),
		PendingOrderTTL:     parseDuration(k.String("PENDING_ORDER_TTL"), "24h"),
		OrderExpireInterval: parseDuration(k.String("ORDER_EXPIRE_INTERVAL"), "5m"),
		OutboxRelayInterval: parseDuration(k.String("OUTBOX_RELAY_INTERVAL"), "30s"),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func intOrDefault(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
