package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	MongoURI       string
	DBName         string
	Environment    string
	AppId          string
	WebhookSecret  string // HMAC key for signing outbound webhook payloads
	ExportPath     string // Physical directory for generated export files
	EscalationCron string // Schedule for the approval escalation sweep
	RulesCron      string // Schedule for the scheduled business-rule tick
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:         getEnv("DB_NAME", "go-forms"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AppId:          getEnv("APP_ID", "go-forms"),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
		ExportPath:     getEnv("EXPORT_PATH", "./exports"),
		EscalationCron: getEnv("ESCALATION_CRON", "*/5 * * * *"),
		RulesCron:      getEnv("RULES_CRON", "*/15 * * * *"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
