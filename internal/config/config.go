package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                      string
	DatabaseURL               string
	DBPath                    string
	RulesPath                 string
	GeminiAPIKey              string
	GeminiModel               string
	GeneratorTimeoutSeconds   int
	HistoryMaxTurns           int
	AMQPURL                   string
	AMQPExchange              string
	WhatsAppToken             string
	WhatsAppBusinessAccountID string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:                      getEnv("PORT", "8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		DBPath:                    getEnv("DB_PATH", "./composer.db"),
		RulesPath:                 getEnv("RULES_PATH", "./config/rules.yaml"),
		GeminiAPIKey:              getEnv("GEMINI_API_KEY", ""),
		GeminiModel:               getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeneratorTimeoutSeconds:   getEnvInt("GENERATOR_TIMEOUT_SECONDS", 40),
		HistoryMaxTurns:           getEnvInt("HISTORY_MAX_TURNS", 200),
		AMQPURL:                   getEnv("AMQP_URL", ""),
		AMQPExchange:              getEnv("AMQP_EXCHANGE", "composer.events"),
		WhatsAppToken:             getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppBusinessAccountID: getEnv("WABA_ID", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: invalid integer for %s, using %d", key, fallback)
	}
	return fallback
}
