package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config структура конфигурации клиента
type Config struct {
	APIBaseURL       string
	AppEnv           string // production или development
	TelegramBotToken string
	JWTSecret        string
	TestUserID       string
	SessionFile      string
	CloudinaryConfig CloudinaryConfig
}

// CloudinaryConfig содержит конфигурацию для Cloudinary
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
}

// LoadConfig загружает переменные из .env
func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	cloudinaryConfig := CloudinaryConfig{
		CloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		APIKey:       getEnv("CLOUDINARY_API_KEY", ""),
		APISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
		UploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", "flippy_mvp"),
	}

	return &Config{
		APIBaseURL:       getEnv("FLIPPY_API_URL", "http://localhost:8080"),
		AppEnv:           getEnv("APP_ENV", "production"), // По умолчанию production
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		TestUserID:       getEnv("TEST_USER_ID", ""),
		SessionFile:      getEnv("SESSION_FILE", ".flippy_session.json"),
		CloudinaryConfig: cloudinaryConfig,
	}
}

// IsDevelopment сообщает, запущено ли приложение в режиме разработки
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// getEnv получает переменную окружения или использует дефолтное значение
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
