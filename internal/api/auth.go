package api

import (
	"context"

	"github.com/rajivgeraev/flippy-client/internal/models"
)

// AuthResponse представляет ответ API с токеном и профилем пользователя
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// TestLoginResponse представляет ответ тестовой аутентификации
type TestLoginResponse struct {
	JWTToken string `json:"jwt_token"`
	UserID   string `json:"user_id"`
}

// AuthenticateTelegram обменивает initData из Telegram Mini App на токен сессии
func (c *Client) AuthenticateTelegram(ctx context.Context, initData string) (*AuthResponse, error) {
	body := map[string]string{"init_data": initData}
	var out AuthResponse
	if err := c.do(ctx, "POST", "/api/auth/telegram", nil, body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestLogin получает тестовый токен (только для разработки)
func (c *Client) TestLogin(ctx context.Context, userID string) (*TestLoginResponse, error) {
	body := map[string]string{"user_id": userID}
	var out TestLoginResponse
	if err := c.do(ctx, "POST", "/api/auth/test-login", nil, body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}
