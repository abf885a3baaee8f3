package config

import (
	"fmt"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	HTTPAddr string

	DBUsername string
	DBPassword string
	DBHost     string
	DBPort     string
	DBDatabase string
	DBSchema   string

	StripeAPIKey       string
	CheckoutSuccessURL string
	CheckoutCancelURL  string

	ReconcileInterval time.Duration
	SessionStaleAfter time.Duration
}

// Load reads configuration from the environment, applying defaults for
// everything that is safe to default. The Stripe key may be empty, in
// which case the server falls back to the mock gateway.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		DBUsername:         os.Getenv("BACKOFFICE_DB_USERNAME"),
		DBPassword:         os.Getenv("BACKOFFICE_DB_PASSWORD"),
		DBHost:             getenv("BACKOFFICE_DB_HOST", "localhost"),
		DBPort:             getenv("BACKOFFICE_DB_PORT", "5432"),
		DBDatabase:         os.Getenv("BACKOFFICE_DB_DATABASE"),
		DBSchema:           getenv("BACKOFFICE_DB_SCHEMA", "public"),
		StripeAPIKey:       os.Getenv("STRIPE_API_KEY"),
		CheckoutSuccessURL: getenv("CHECKOUT_SUCCESS_URL", "http://localhost:8080/checkout/success"),
		CheckoutCancelURL:  getenv("CHECKOUT_CANCEL_URL", "http://localhost:8080/checkout/cancel"),
	}

	var err error
	if cfg.ReconcileInterval, err = getduration("RECONCILE_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionStaleAfter, err = getduration("SESSION_STALE_AFTER", 15*time.Minute); err != nil {
		return nil, err
	}

	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("config: BACKOFFICE_DB_DATABASE is required")
	}
	return cfg, nil
}

// DSN builds the postgres connection string for the pgx stdlib driver.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.DBUsername, c.DBPassword, c.DBHost, c.DBPort, c.DBDatabase, c.DBSchema,
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
