package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultTimeout ограничивает время одного запроса, чтобы зависший запрос
// не блокировал элементы управления бесконечно
const defaultTimeout = 20 * time.Second

// TokenSource возвращает текущий bearer-токен или пустую строку
type TokenSource func() string

// Client выполняет типизированные запросы к Flippy API.
// Единственная точка, где к запросам прикрепляется Authorization-заголовок
// и где ответы сервера нормализуются в типизированные ошибки.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokenSource    TokenSource
	onUnauthorized func()
}

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент (используется тестами)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource задает источник bearer-токена
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokenSource = ts }
}

// WithUnauthorizedHandler задает обработчик события истечения сессии.
// Вызывается при любом ответе 401 на защищенный запрос; сам клиент
// ничего не знает о навигации и повторной аутентификации.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New создает новый экземпляр Client
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// token возвращает текущий токен, если источник задан
func (c *Client) token() string {
	if c.tokenSource == nil {
		return ""
	}
	return c.tokenSource()
}

// do выполняет запрос и декодирует ответ в out (если out != nil).
// При authed=true прикрепляет bearer-токен; отсутствие токена — AuthError
// без сетевого вызова.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any, authed bool) error {
	var token string
	if authed {
		token = c.token()
		if token == "" {
			return &AuthError{Cause: "Пользователь не аутентифицирован"}
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &ValidationError{Msg: "Неверный формат данных запроса"}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && authed {
		// Любой 401 на защищенном запросе означает истечение сессии
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &AuthError{Cause: "Сессия истекла, требуется повторная аутентификация"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.normalizeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServerError{StatusCode: resp.StatusCode, Message: "Неверный формат ответа сервера"}
	}
	return nil
}

// normalizeError превращает не-2xx ответ в типизированную ошибку.
// Текст из поля error сервера передается вызывающему дословно.
func (c *Client) normalizeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	// Тело может быть пустым или не-JSON, это не повод терять статус
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusForbidden:
		msg := payload.Error
		if msg == "" {
			msg = "Операция не разрешена"
		}
		return &ForbiddenError{Msg: msg}
	default:
		return &ServerError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
}

// get выполняет защищенный GET-запрос
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out, true)
}

// getPublic выполняет GET-запрос без авторизации
func (c *Client) getPublic(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out, false)
}

// post выполняет защищенный POST-запрос
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out, true)
}

// put выполняет защищенный PUT-запрос
func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out, true)
}

// delete выполняет защищенный DELETE-запрос
func (c *Client) delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out, true)
}
