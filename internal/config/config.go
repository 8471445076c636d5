package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	DBDriver        string
	DBDSN           string
	LogFile         string
	RedisAddr       string
	TranslateURL    string
	TranslateKey    string
	TranslateHost   string
	PricingURL      string
	PricingKey      string
	UpstreamTimeout time.Duration
	OTLPEndpoint    string
	ServiceName     string
	SeedDemo        bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() Config {
	timeout, err := time.ParseDuration(getenv("UPSTREAM_TIMEOUT", "5s"))
	if err != nil || timeout <= 0 {
		log.Printf("[config] bad UPSTREAM_TIMEOUT, using 5s")
		timeout = 5 * time.Second
	}
	seed, _ := strconv.ParseBool(getenv("SEED_DEMO", "true"))

	cfg := Config{
		Port:            getenv("PORT", "8080"),
		DBDriver:        getenv("DB_DRIVER", "sqlite"),
		DBDSN:           getenv("DB_DSN", "agrimarket.db"), // sqlite file in working dir
		LogFile:         getenv("LOG_FILE", "./agrimarket.log"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		TranslateURL:    os.Getenv("TRANSLATE_URL"),
		TranslateKey:    os.Getenv("TRANSLATE_API_KEY"),
		TranslateHost:   getenv("TRANSLATE_HOST", "text-translator2.p.rapidapi.com"),
		PricingURL:      getenv("PRICING_URL", "https://api.data.gov.in/resource/35985678-0d79-46b4-9ed6-6f13308a1d24"),
		PricingKey:      os.Getenv("PRICING_API_KEY"),
		UpstreamTimeout: timeout,
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:     getenv("SERVICE_NAME", "agrimarket"),
		SeedDemo:        seed,
	}
	log.Printf("[config] PORT=%s DB_DRIVER=%s LOG_FILE=%s REDIS_ADDR=%q TRANSLATE_URL=%q UPSTREAM_TIMEOUT=%s OTLP=%q SEED_DEMO=%t",
		cfg.Port, cfg.DBDriver, cfg.LogFile, cfg.RedisAddr, cfg.TranslateURL, cfg.UpstreamTimeout, cfg.OTLPEndpoint, cfg.SeedDemo)
	return cfg
}
