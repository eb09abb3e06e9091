package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	HTTPAddr       string
	Environment    string
	MigrationsPath string
	TelegramToken  string
	TelegramChatID int64
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win in deployments
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		HTTPAddr:       os.Getenv("HTTP_ADDR"),
		Environment:    os.Getenv("ENV"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "migrations"
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer: %w", err)
		}
		cfg.TelegramChatID = chatID
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	return cfg, nil
}
