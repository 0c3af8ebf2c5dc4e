package main

import (
	"log"

	"github.com/rajivgeraev/flippy-client/internal/config"
	"github.com/rajivgeraev/flippy-client/internal/devserver"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "flippy-dev-secret"
		log.Println("⚠️ JWT_SECRET не задан, используется секрет по умолчанию")
	}

	store := devserver.NewStore()
	server := devserver.New(cfg, store)

	log.Println("✅ Flippy Dev API запущен на порту 8080")
	log.Fatal(server.Listen(":8080"))
}
