package devserver

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// setupFavoriteRoutes регистрирует маршруты избранного
func (s *Server) setupFavoriteRoutes(app *fiber.App, authMW fiber.Handler) {
	api := app.Group("/api/favorites")
	api.Use(authMW)
	api.Get("/", s.getFavorites)
	api.Post("/", s.addToFavorites)
	api.Delete("/:id", s.removeFromFavorites)
	api.Get("/:id/check", s.checkFavorite)
}

// getFavorites возвращает страницу избранных объявлений пользователя
func (s *Server) getFavorites(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	favorites, total := s.store.UserFavorites(userUUID, offset, pageLimit)

	return c.JSON(fiber.Map{
		"favorites": favorites,
		"total":     total,
		"limit":     pageLimit,
		"offset":    offset,
	})
}

// addToFavorites добавляет объявление в избранное
func (s *Server) addToFavorites(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	var requestData struct {
		ListingID string `json:"listing_id"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.ListingID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID объявления не указан"})
	}

	listingUUID, err := uuid.Parse(requestData.ListingID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	listing, ok := s.store.GetListing(listingUUID)
	if !ok || listing.Status != "active" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено или не активно"})
	}

	fav, created := s.store.AddFavorite(userUUID, listingUUID)
	if !created {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Объявление уже добавлено в избранное"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      fav.ID,
		"message": "Объявление успешно добавлено в избранное",
	})
}

// removeFromFavorites удаляет объявление из избранного
func (s *Server) removeFromFavorites(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	listingUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	if !s.store.RemoveFavorite(userUUID, listingUUID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено в избранном"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Объявление успешно удалено из избранного",
	})
}

// checkFavorite проверяет, добавлено ли объявление в избранное.
// Отсутствие записи — нормальный ответ, а не ошибка.
func (s *Server) checkFavorite(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	listingUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	fav, ok := s.store.FindFavorite(userUUID, listingUUID)
	if !ok {
		return c.JSON(fiber.Map{
			"is_favorite": false,
		})
	}

	return c.JSON(fiber.Map{
		"is_favorite": true,
		"favorite_id": fav.ID,
	})
}
