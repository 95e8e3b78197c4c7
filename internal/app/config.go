package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/weeraset/conduit-store/internal/domain/coupon"
)

// Config holds the complete application configuration, loadable from
// environment variables (CONDUIT_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL; empty selects the in-memory backend" flag:"database-url"`

	// CouponUsagePolicy selects when coupon use counts are consumed:
	// "apply" counts at checkout, "confirm" counts at payment confirmation.
	CouponUsagePolicy string `default:"apply" usage:"Coupon usage counting policy: apply or confirm" flag:"coupon-usage-policy"`

	InvoiceBaseURL string `default:"https://invoices.conduit-store.example" usage:"Public base URL for generated invoice documents" flag:"invoice-base-url"`
	APIKeyPepper   string `usage:"HMAC pepper for admin API key hashing (CONDUIT_API_KEY_PEPPER)" flag:"api-key-pepper"`

	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// RateLimitConfig controls the per-client fixed-window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window, 0 disables"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CONDUIT",
		Files:     []string{"config.yaml", "/etc/conduit-store/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if _, err := cfg.UsagePolicy(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// UsagePolicy maps the configured policy string onto the coupon domain type.
func (c *Config) UsagePolicy() (coupon.UsagePolicy, error) {
	switch c.CouponUsagePolicy {
	case "", "apply":
		return coupon.CountOnApply, nil
	case "confirm":
		return coupon.CountOnConfirm, nil
	default:
		return "", errors.Errorf("unknown coupon usage policy %q", c.CouponUsagePolicy)
	}
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's CONDUIT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
