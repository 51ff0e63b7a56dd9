package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken    string
	WebhookPublicURL string
	BackendBaseURL   string
	OpenAIKey        string
	Port             string
	DBPath           string
	BackendTimeoutS  int
	SeriesLimit      int
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing env %s", k)
	}
	return v
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envIntOr(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: bad %s=%q, using %d", k, v, def)
		return def
	}
	return n
}

func Load() Config {
	// .env is optional; deployments normally set the environment directly.
	_ = godotenv.Load()

	return Config{
		TelegramToken:    mustEnv("TELEGRAM_BOT_TOKEN"),
		WebhookPublicURL: mustEnv("WEBHOOK_PUBLIC_URL"),
		BackendBaseURL:   envOr("BACKEND_BASE_URL", "http://127.0.0.1:8010"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		Port:             envOr("PORT", "9095"),
		DBPath:           envOr("DB_PATH", "/app/data/mandi.db"),
		BackendTimeoutS:  envIntOr("BACKEND_TIMEOUT_SECONDS", 15),
		SeriesLimit:      envIntOr("SERIES_LIMIT", 30),
	}
}
