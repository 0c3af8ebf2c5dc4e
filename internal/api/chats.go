package api

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"github.com/rajivgeraev/flippy-client/internal/models"
)

// ChatsList представляет ответ со списком чатов
type ChatsList struct {
	Chats []models.Chat `json:"chats"`
	Count int           `json:"count"`
}

// MessagesPage представляет страницу истории сообщений
type MessagesPage struct {
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// CreateChatRequest представляет тело запроса создания чата
type CreateChatRequest struct {
	ReceiverID string `json:"receiver_id"`
	TradeID    string `json:"trade_id,omitempty"`
	Message    string `json:"message,omitempty"`
}

// CreateChatResult представляет результат создания чата
type CreateChatResult struct {
	ChatID  uuid.UUID `json:"chat_id"`
	IsNew   bool      `json:"is_new"`
	Success bool      `json:"success"`
}

// GetChats возвращает список чатов пользователя
func (c *Client) GetChats(ctx context.Context) (*ChatsList, error) {
	var out ChatsList
	if err := c.get(ctx, "/api/chats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateChat создает чат с указанным пользователем (или возвращает существующий)
func (c *Client) CreateChat(ctx context.Context, req CreateChatRequest) (*CreateChatResult, error) {
	var out CreateChatResult
	if err := c.post(ctx, "/api/chats", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetChatMessages возвращает страницу сообщений чата.
// Пустой before означает самую свежую страницу.
func (c *Client) GetChatMessages(ctx context.Context, chatID uuid.UUID, before uuid.UUID) (*MessagesPage, error) {
	var q url.Values
	if before != uuid.Nil {
		q = url.Values{}
		q.Set("before", before.String())
	}
	var out MessagesPage
	if err := c.get(ctx, "/api/chats/"+chatID.String()+"/messages", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage отправляет сообщение и возвращает его серверное представление
func (c *Client) SendMessage(ctx context.Context, chatID uuid.UUID, text string) (*models.Message, error) {
	body := map[string]string{"text": text}
	var out struct {
		Message models.Message `json:"message"`
		Success bool           `json:"success"`
	}
	if err := c.post(ctx, "/api/chats/"+chatID.String()+"/messages", body, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}
