package devserver

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-client/internal/models"
)

// acceptedChatMessage — системное сообщение, открывающее чат принятого обмена
const acceptedChatMessage = "Обмен был принят. Вы можете обсудить детали здесь."

// setupTradeRoutes регистрирует маршруты обменов
func (s *Server) setupTradeRoutes(app *fiber.App, authMW fiber.Handler) {
	api := app.Group("/api/trades")
	api.Use(authMW)
	api.Post("/", s.createTrade)
	api.Get("/", s.getMyTrades)
	api.Put("/:id/status", s.updateTradeStatus)
}

// createTrade создает новое предложение обмена.
// При is_sale предметное объявление отправителя не передается: предложение
// несет ровно один листинг получателя.
func (s *Server) createTrade(c fiber.Ctx) error {
	senderID, err := currentUser(c)
	if err != nil {
		return err
	}

	var requestData struct {
		ReceiverListingID string `json:"receiver_listing_id"`
		SenderListingID   string `json:"sender_listing_id"`
		IsSale            bool   `json:"is_sale"`
		Message           string `json:"message"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.ReceiverListingID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Необходимо указать ID объявления для обмена"})
	}
	if !requestData.IsSale && requestData.SenderListingID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Необходимо указать ID объявлений для обмена"})
	}
	if requestData.IsSale && requestData.SenderListingID != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Запрос продажи не может содержать объявление отправителя"})
	}

	receiverListingID, err := uuid.Parse(requestData.ReceiverListingID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления получателя"})
	}

	senderListingID := uuid.Nil
	if requestData.SenderListingID != "" {
		senderListingID, err = uuid.Parse(requestData.SenderListingID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления отправителя"})
		}

		senderListing, ok := s.store.GetListing(senderListingID)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление отправителя не найдено"})
		}
		if senderListing.UserID != senderID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы не можете предложить чужое объявление для обмена"})
		}
	}

	receiverListing, ok := s.store.GetListing(receiverListingID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление получателя не найдено"})
	}

	if receiverListing.UserID == senderID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Вы не можете предложить обмен самому себе"})
	}

	if s.store.HasPendingTrade(senderListingID, receiverListingID) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Такое предложение обмена уже существует"})
	}

	trade := &models.Trade{
		ID:                uuid.New(),
		SenderID:          senderID,
		ReceiverID:        receiverListing.UserID,
		SenderListingID:   senderListingID,
		ReceiverListingID: receiverListingID,
		Status:            models.TradeStatusPending,
		IsSale:            requestData.IsSale,
		Message:           requestData.Message,
	}
	s.store.CreateTrade(trade)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"trade_id": trade.ID,
		"message":  "Предложение обмена успешно создано",
	})
}

// getMyTrades возвращает список входящих и исходящих предложений обмена
func (s *Server) getMyTrades(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	tradeType := c.Query("type", "all")
	status := c.Query("status", "all")

	trades := s.store.TradesFor(userUUID, tradeType, status)

	return c.JSON(fiber.Map{
		"trades": trades,
		"count":  len(trades),
	})
}

// updateTradeStatus обновляет статус предложения обмена.
// Принять или отклонить может только получатель, отменить — только
// отправитель, и только пока предложение в ожидании.
func (s *Server) updateTradeStatus(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	tradeUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID предложения обмена"})
	}

	var requestData struct {
		Status string `json:"status"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	newStatus := models.TradeStatus(requestData.Status)
	if !newStatus.IsTerminal() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимый статус предложения обмена"})
	}

	trade, ok := s.store.GetTrade(tradeUUID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Предложение обмена не найдено"})
	}

	if newStatus == models.TradeStatusAccepted || newStatus == models.TradeStatusRejected {
		if trade.ReceiverID != userUUID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Только получатель предложения может его принять или отклонить"})
		}
	} else if trade.SenderID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Только отправитель предложения может его отменить"})
	}

	if !trade.Status.CanTransitionTo(newStatus) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Нельзя изменить статус предложения, которое уже не находится в ожидании",
		})
	}

	s.store.SetTradeStatus(tradeUUID, newStatus)

	// Принятый обмен получает чат с системным сообщением
	var chatID uuid.UUID
	if newStatus == models.TradeStatusAccepted {
		tradeID := trade.ID
		now := s.store.Now()
		chat := &models.Chat{
			ID:              uuid.New(),
			TradeID:         &tradeID,
			SenderID:        trade.SenderID,
			ReceiverID:      trade.ReceiverID,
			LastMessageText: acceptedChatMessage,
			LastMessageTime: &now,
			IsActive:        true,
		}
		s.store.CreateChat(chat)
		chatID = chat.ID

		s.store.AppendMessage(models.Message{
			ID:        uuid.New(),
			ChatID:    chat.ID,
			SenderID:  trade.SenderID,
			Text:      acceptedChatMessage,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	var message string
	switch newStatus {
	case models.TradeStatusAccepted:
		message = "Предложение обмена принято"
	case models.TradeStatusRejected:
		message = "Предложение обмена отклонено"
	case models.TradeStatusCanceled:
		message = "Предложение обмена отменено"
	}

	response := fiber.Map{
		"success":  true,
		"message":  message,
		"trade_id": tradeUUID.String(),
		"status":   newStatus,
	}
	if newStatus == models.TradeStatusAccepted {
		response["chat_id"] = chatID
	}

	return c.JSON(response)
}
