package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret   string
	AdminSecret string

	GroqAPIKey   string
	GeminiAPIKey string

	SolanaNetwork   string
	TreasuryWallet  string
	AttemptPriceSOL float64
	VerifyPayments  bool

	InitialJackpot         float64
	MinAttemptsBeforeYield int64
	ChatCooldown           time.Duration
	PrizeSeedPhrase        string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASSWORD", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		AdminSecret: getEnv("ADMIN_SECRET", ""),

		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),

		SolanaNetwork:   getEnv("SOLANA_NETWORK", "devnet"),
		TreasuryWallet:  getEnv("TREASURY_WALLET", ""),
		AttemptPriceSOL: getEnvFloat("ATTEMPT_PRICE_SOL", 0.01),
		VerifyPayments:  getEnvBool("VERIFY_PAYMENTS", false),

		InitialJackpot:         getEnvFloat("INITIAL_JACKPOT", 100),
		MinAttemptsBeforeYield: int64(getEnvInt("MIN_ATTEMPTS", 50)),
		ChatCooldown:           time.Duration(getEnvInt("CHAT_COOLDOWN_SECONDS", 10)) * time.Second,
		PrizeSeedPhrase:        getEnv("PRIZE_SEED_PHRASE", ""),
	}

	if cfg.Env == "production" {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		if cfg.AdminSecret == "" {
			return nil, fmt.Errorf("ADMIN_SECRET is required in production")
		}
		if cfg.VerifyPayments && cfg.TreasuryWallet == "" {
			return nil, fmt.Errorf("TREASURY_WALLET is required when payment verification is enabled")
		}
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
