package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rajivgeraev/flippy-client/internal/models"
)

// TradesList представляет ответ со списком предложений обмена
type TradesList struct {
	Trades []models.Trade `json:"trades"`
	Count  int            `json:"count"`
}

// CreateTradeRequest представляет тело запроса создания предложения обмена
type CreateTradeRequest struct {
	ReceiverListingID string `json:"receiver_listing_id"`
	SenderListingID   string `json:"sender_listing_id,omitempty"`
	IsSale            bool   `json:"is_sale,omitempty"`
	Message           string `json:"message,omitempty"`
}

// UpdateTradeStatusResult представляет результат смены статуса обмена
type UpdateTradeStatusResult struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	TradeID string             `json:"trade_id"`
	Status  models.TradeStatus `json:"status"`
	ChatID  uuid.UUID          `json:"chat_id,omitempty"`
}

// CreateTrade создает предложение обмена и возвращает его ID
func (c *Client) CreateTrade(ctx context.Context, req CreateTradeRequest) (uuid.UUID, error) {
	var out struct {
		Success bool      `json:"success"`
		TradeID uuid.UUID `json:"trade_id"`
		Message string    `json:"message"`
	}
	if err := c.post(ctx, "/api/trades", req, &out); err != nil {
		return uuid.Nil, err
	}
	return out.TradeID, nil
}

// GetMyTrades возвращает предложения обмена с фильтрами по направлению и статусу
func (c *Client) GetMyTrades(ctx context.Context, tradeType, status string) (*TradesList, error) {
	q := url.Values{}
	if tradeType == "" {
		tradeType = "all"
	}
	if status == "" {
		status = "all"
	}
	q.Set("type", tradeType)
	q.Set("status", status)
	var out TradesList
	if err := c.get(ctx, "/api/trades", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTradeStatus переводит предложение обмена в новый статус.
// Ответ 400 на этом эндпоинте означает недопустимый переход: сервер
// отклоняет смену статуса не-pending предложений.
func (c *Client) UpdateTradeStatus(ctx context.Context, tradeID uuid.UUID, status models.TradeStatus) (*UpdateTradeStatusResult, error) {
	body := map[string]string{"status": string(status)}
	var out UpdateTradeStatusResult
	err := c.put(ctx, "/api/trades/"+tradeID.String()+"/status", body, &out)
	if err != nil {
		var srvErr *ServerError
		if errors.As(err, &srvErr) && srvErr.StatusCode == http.StatusBadRequest {
			return nil, &InvalidTransitionError{Msg: srvErr.Error()}
		}
		return nil, err
	}
	return &out, nil
}
