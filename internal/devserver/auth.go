package devserver

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// setupAuthRoutes регистрирует маршруты аутентификации
func (s *Server) setupAuthRoutes(app *fiber.App) {
	app.Post("/api/auth/telegram", s.telegramAuth)
	app.Post("/api/auth/test-login", s.testLogin)
	app.Get("/api/categories", s.getCategories)
}

// telegramAuth проверяет initData, создает JWT и возвращает его
func (s *Server) telegramAuth(c fiber.Ctx) error {
	var payload struct {
		InitData string `json:"init_data"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	expiration := 24 * time.Hour
	if err := initdata.Validate(payload.InitData, s.cfg.TelegramBotToken, expiration); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Telegram data"})
	}

	data, err := initdata.Parse(payload.InitData)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to parse initData"})
	}

	user := s.store.UpsertTelegramUser(
		data.User.ID,
		data.User.FirstName,
		data.User.LastName,
		data.User.Username,
		data.User.PhotoURL,
	)

	jwtToken, err := s.jwtService.GenerateToken(user.ID.String())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate JWT"})
	}

	return c.JSON(fiber.Map{
		"token": jwtToken,
		"user":  user,
	})
}

// testLogin выдает токен для указанного (или нового) тестового пользователя
func (s *Server) testLogin(c fiber.Ctx) error {
	var payload struct {
		UserID string `json:"user_id"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	userID := uuid.New()
	if payload.UserID != "" {
		parsed, err := uuid.Parse(payload.UserID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
		}
		userID = parsed
	}

	user := s.store.EnsureUser(userID)

	jwtToken, err := s.jwtService.GenerateToken(user.ID.String())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate JWT"})
	}

	return c.JSON(fiber.Map{
		"jwt_token": jwtToken,
		"user_id":   user.ID.String(),
	})
}

// getCategories возвращает справочник категорий
func (s *Server) getCategories(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"categories": s.store.Categories(),
	})
}
