package devserver

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-client/internal/models"
)

// pageLimit — размер страницы списков объявлений и избранного
const pageLimit = 20

// listingRequest представляет тело запроса создания/обновления объявления
type listingRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Categories  []string       `json:"categories"`
	Condition   string         `json:"condition"`
	AllowTrade  bool           `json:"allow_trade"`
	Status      string         `json:"status"`
	Images      []requestImage `json:"images"`
}

// requestImage представляет изображение в запросе объявления
type requestImage struct {
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
	PublicID   string `json:"public_id"`
	FileName   string `json:"file_name"`
	IsMain     bool   `json:"is_main"`
}

// setupListingRoutes регистрирует маршруты объявлений
func (s *Server) setupListingRoutes(app *fiber.App, authMW fiber.Handler) {
	app.Get("/api/listings", s.getPublicListings)

	api := app.Group("/api/listings")
	api.Use(authMW)
	api.Post("/create", s.createListing)
	api.Get("/my", s.getMyListings)
	api.Get("/:id", s.getListing)
	api.Put("/:id", s.updateListing)
	api.Delete("/:id", s.deleteListing)
}

// getPublicListings возвращает страницу активных объявлений
func (s *Server) getPublicListings(c fiber.Ctx) error {
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	listings, total := s.store.PublicListings(offset, pageLimit)

	return c.JSON(fiber.Map{
		"listings": listings,
		"total":    total,
		"limit":    pageLimit,
		"offset":   offset,
	})
}

// createListing обрабатывает создание нового объявления
func (s *Server) createListing(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	var requestData listingRequest
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название обязательно"})
	}

	// Активное объявление обязано иметь категорию и изображение
	if requestData.Status == "active" && len(requestData.Categories) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Выберите хотя бы одну категорию"})
	}
	if requestData.Status == "active" && len(requestData.Images) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Добавьте хотя бы одно изображение"})
	}

	if requestData.Status != "active" && requestData.Status != "draft" {
		requestData.Status = "draft"
	}
	if !models.ValidConditions[requestData.Condition] {
		requestData.Condition = "new"
	}

	listing := &models.Listing{
		ID:          uuid.New(),
		UserID:      userUUID,
		Title:       requestData.Title,
		Description: requestData.Description,
		Categories:  requestData.Categories,
		Condition:   requestData.Condition,
		AllowTrade:  requestData.AllowTrade,
		Status:      requestData.Status,
		Images:      buildImages(requestData.Images, s.store),
	}
	for i := range listing.Images {
		listing.Images[i].ListingID = listing.ID
	}

	s.store.CreateListing(listing)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"listing_id": listing.ID,
		"message":    "Объявление успешно создано",
	})
}

// getMyListings возвращает список объявлений текущего пользователя
func (s *Server) getMyListings(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	status := c.Query("status", "all")
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	listings, total := s.store.UserListings(userUUID, status, offset, pageLimit)

	return c.JSON(fiber.Map{
		"listings": listings,
		"total":    total,
		"limit":    pageLimit,
		"offset":   offset,
	})
}

// getListing возвращает детальную информацию об объявлении.
// Черновики видны только владельцу.
func (s *Server) getListing(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	listingUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	listing, ok := s.store.GetListing(listingUUID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
	}

	if listing.Status != "active" && listing.UserID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому объявлению"})
	}

	return c.JSON(fiber.Map{
		"listing": listing,
	})
}

// updateListing обновляет объявление текущего пользователя
func (s *Server) updateListing(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	listingUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	existing, ok := s.store.GetListing(listingUUID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
	}
	if existing.UserID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы не можете редактировать чужое объявление"})
	}

	var requestData listingRequest
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название обязательно"})
	}
	if requestData.Status == "active" && len(requestData.Categories) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Выберите хотя бы одну категорию"})
	}
	if requestData.Status == "active" && len(requestData.Images) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Добавьте хотя бы одно изображение"})
	}
	if requestData.Status != "active" && requestData.Status != "draft" {
		requestData.Status = "draft"
	}
	if !models.ValidConditions[requestData.Condition] {
		requestData.Condition = "new"
	}

	listing := &models.Listing{
		ID:          listingUUID,
		UserID:      userUUID,
		Title:       requestData.Title,
		Description: requestData.Description,
		Categories:  requestData.Categories,
		Condition:   requestData.Condition,
		AllowTrade:  requestData.AllowTrade,
		Status:      requestData.Status,
		Images:      buildImages(requestData.Images, s.store),
	}
	for i := range listing.Images {
		listing.Images[i].ListingID = listing.ID
	}

	s.store.UpdateListing(listing)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Объявление успешно обновлено",
	})
}

// deleteListing удаляет объявление текущего пользователя
func (s *Server) deleteListing(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	listingUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	existing, ok := s.store.GetListing(listingUUID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
	}
	if existing.UserID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы не можете удалить чужое объявление"})
	}

	s.store.DeleteListing(listingUUID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Объявление успешно удалено",
	})
}

// buildImages преобразует изображения запроса в модель хранения.
// Первое изображение становится основным, если основное не отмечено.
func buildImages(in []requestImage, store *Store) []models.ListingImage {
	if len(in) == 0 {
		return nil
	}

	hasMain := false
	for _, img := range in {
		if img.IsMain {
			hasMain = true
			break
		}
	}

	out := make([]models.ListingImage, 0, len(in))
	for i, img := range in {
		out = append(out, models.ListingImage{
			ID:         uuid.New(),
			URL:        img.URL,
			PreviewURL: img.PreviewURL,
			PublicID:   img.PublicID,
			FileName:   img.FileName,
			IsMain:     img.IsMain || (!hasMain && i == 0),
			Position:   i,
			CreatedAt:  store.Now(),
		})
	}
	return out
}

// currentUser извлекает UUID пользователя, положенный auth-middleware.
// Ошибки сериализуются центральным errorHandler в {"error": ...}.
func currentUser(c fiber.Ctx) (uuid.UUID, error) {
	userID, _ := c.Locals("userID").(string)
	if userID == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Пользователь не авторизован")
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Неверный формат ID пользователя")
	}
	return userUUID, nil
}
