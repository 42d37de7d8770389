package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	StripeKey      string
	StripeRPS      int
	Currency       string
	NotifyBase     string
	NotifyKey      string
	NotifyWorkers  int
	PaymentBaseURL string
	CacheTTL       time.Duration
}

func Load() Config {
	// .env is a local-dev convenience; absence is not an error.
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/hotel?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		StripeKey:      env("STRIPE_SECRET_KEY", ""),
		StripeRPS:      atoi("STRIPE_RPS", 5),
		Currency:       env("PAYMENT_CURRENCY", "usd"),
		NotifyBase:     env("NOTIFY_BASE_URL", "http://localhost:8090"),
		NotifyKey:      env("NOTIFY_API_KEY", ""),
		NotifyWorkers:  atoi("NOTIFY_WORKERS", 8),
		PaymentBaseURL: env("PAYMENT_LINK_BASE_URL", "http://localhost:3000"),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.StripeKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
