package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config хранит настройки приложения из переменных окружения.
type Config struct {
	BotToken     string
	DatabaseURL  string
	HTTPAddr     string
	ReminderCron string
	QueueSize    int
	QueueWorkers int
}

// LoadConfig загружает переменные из .env в корне проекта и возвращает конфигурацию.
func LoadConfig() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf(".env not loaded: %v", err)
	}

	return Config{
		BotToken:     os.Getenv("BOT_TOKEN"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		HTTPAddr:     envOrDefault("HTTP_ADDR", ":8080"),
		ReminderCron: envOrDefault("REMINDER_CRON", "0 7 * * *"),
		QueueSize:    envIntOrDefault("QUEUE_SIZE", 64),
		QueueWorkers: envIntOrDefault("QUEUE_WORKERS", 2),
	}
}

// envOrDefault возвращает значение переменной окружения или значение по умолчанию.
func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envIntOrDefault возвращает числовое значение переменной окружения или значение по умолчанию.
func envIntOrDefault(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
