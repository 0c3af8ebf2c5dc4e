package devserver

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-client/internal/models"
)

// messagesPageLimit — размер страницы истории сообщений
const messagesPageLimit = 50

// setupChatRoutes регистрирует маршруты чатов
func (s *Server) setupChatRoutes(app *fiber.App, authMW fiber.Handler) {
	api := app.Group("/api/chats")
	api.Use(authMW)
	api.Get("/", s.getChats)
	api.Post("/", s.createChat)
	api.Get("/:id/messages", s.getChatMessages)
	api.Post("/:id/messages", s.sendMessage)
}

// getChats возвращает список чатов пользователя
func (s *Server) getChats(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	chats := s.store.ChatsFor(userUUID)

	return c.JSON(fiber.Map{
		"chats": chats,
		"count": len(chats),
	})
}

// getChatMessages возвращает страницу сообщений чата от новых к старым.
// После выборки чужие сообщения помечаются прочитанными: отметка о
// прочтении авторитетна здесь, а не на клиенте.
func (s *Server) getChatMessages(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	chatUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	chat, ok := s.store.GetChat(chatUUID)
	if !ok || (chat.SenderID != userUUID && chat.ReceiverID != userUUID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
	}

	before := uuid.Nil
	if raw := c.Query("before"); raw != "" {
		before, err = uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID сообщения"})
		}
	}

	messages := s.store.MessagesBefore(chatUUID, before, messagesPageLimit)

	s.store.MarkMessagesRead(chatUUID, userUUID)

	return c.JSON(fiber.Map{
		"messages": messages,
		"has_more": len(messages) == messagesPageLimit,
	})
}

// sendMessage отправляет новое сообщение в чат
func (s *Server) sendMessage(c fiber.Ctx) error {
	userUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	chatUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	var requestData struct {
		Text string `json:"text"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка чтения тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Текст сообщения не может быть пустым"})
	}

	chat, ok := s.store.GetChat(chatUUID)
	if !ok || (chat.SenderID != userUUID && chat.ReceiverID != userUUID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
	}
	if !chat.IsActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Чат неактивен"})
	}

	now := s.store.Now()
	message := models.Message{
		ID:        uuid.New(),
		ChatID:    chatUUID,
		SenderID:  userUUID,
		Text:      requestData.Text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.AppendMessage(message)

	if sender, ok := s.store.GetUser(userUUID); ok {
		message.Sender = &sender
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"success": true,
	})
}

// createChat создает новый чат между пользователями.
// Существующий чат между той же парой возвращается вместо создания
// дубликата.
func (s *Server) createChat(c fiber.Ctx) error {
	senderUUID, err := currentUser(c)
	if err != nil {
		return err
	}

	var requestData struct {
		ReceiverID string `json:"receiver_id"`
		TradeID    string `json:"trade_id,omitempty"`
		Message    string `json:"message,omitempty"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка чтения тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.ReceiverID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID получателя не указан"})
	}

	receiverUUID, err := uuid.Parse(requestData.ReceiverID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID получателя"})
	}

	if senderUUID == receiverUUID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Нельзя создать чат с самим собой"})
	}

	if _, ok := s.store.GetUser(receiverUUID); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Получатель не найден"})
	}

	if existing, ok := s.store.ChatBetween(senderUUID, receiverUUID); ok {
		if requestData.Message != "" {
			now := s.store.Now()
			s.store.AppendMessage(models.Message{
				ID:        uuid.New(),
				ChatID:    existing.ID,
				SenderID:  senderUUID,
				Text:      requestData.Message,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		return c.JSON(fiber.Map{
			"chat_id": existing.ID,
			"is_new":  false,
			"success": true,
		})
	}

	var tradeID *uuid.UUID
	if requestData.TradeID != "" {
		parsed, err := uuid.Parse(requestData.TradeID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID обмена"})
		}
		if _, ok := s.store.GetTrade(parsed); !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Указанный обмен не найден"})
		}
		tradeID = &parsed
	}

	chat := &models.Chat{
		ID:         uuid.New(),
		TradeID:    tradeID,
		SenderID:   senderUUID,
		ReceiverID: receiverUUID,
		IsActive:   true,
	}
	s.store.CreateChat(chat)

	if requestData.Message != "" {
		now := s.store.Now()
		s.store.AppendMessage(models.Message{
			ID:        uuid.New(),
			ChatID:    chat.ID,
			SenderID:  senderUUID,
			Text:      requestData.Message,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"chat_id": chat.ID,
		"is_new":  true,
		"success": true,
	})
}
