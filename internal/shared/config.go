package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StoreDriver string // memory|mysql|mongo
	MySQLDSN    string
	MongoURI    string
	MongoDB     string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	JWTSecret       string
	TrustProxy      bool
	PublicRateRPS   float64
	PublicRateBurst int
	CASMaxAttempts  int

	IngestFile     string
	IngestWorkers  int
	IngestReviewer string
}

func Load() Config {
	// .env is optional
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		LogLevel:        env("LOG_LEVEL", "info"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ":9100"),
		StoreDriver:     env("STORE_DRIVER", "memory"),
		MySQLDSN:        env("MYSQL_DSN", "root:root@tcp(localhost:3306)/listings?parseTime=true&charset=utf8mb4&loc=UTC"),
		MongoURI:        env("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         env("MONGO_DB", "listings"),
		RedisAddr:       env("REDIS_ADDR", ""),
		RedisPass:       env("REDIS_PASSWORD", ""),
		RedisDB:         atoi("REDIS_DB", 0),
		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		JWTSecret:       env("JWT_SECRET", ""),
		TrustProxy:      env("TRUST_PROXY", "false") == "true",
		PublicRateRPS:   atof("PUBLIC_RATE_LIMIT_RPS", 20),
		PublicRateBurst: atoi("PUBLIC_RATE_LIMIT_BURST", 40),
		CASMaxAttempts:  atoi("CAS_MAX_ATTEMPTS", 3),
		IngestFile:      env("INGEST_FILE", "fixtures/listings.json"),
		IngestWorkers:   atoi("INGEST_WORKERS", 4),
		IngestReviewer:  env("INGEST_REVIEWER_ID", "ingestor"),
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty; authenticated routes will reject every token")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
