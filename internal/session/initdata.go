package session

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// MockInitData собирает подписанную строку initData для локальной
// разработки вне Telegram. Подпись выполняется токеном бота, поэтому
// dev-сервер валидирует такие данные обычным путем, как настоящие.
func MockInitData(botToken string, telegramID int64, firstName, username string, now time.Time) (string, error) {
	userJSON, err := json.Marshal(map[string]any{
		"id":         telegramID,
		"first_name": firstName,
		"username":   username,
	})
	if err != nil {
		return "", err
	}

	payload := map[string]string{
		"user": string(userJSON),
	}
	hash := initdata.Sign(payload, botToken, now)

	q := url.Values{}
	q.Set("user", string(userJSON))
	q.Set("auth_date", strconv.FormatInt(now.Unix(), 10))
	q.Set("hash", hash)
	return q.Encode(), nil
}
