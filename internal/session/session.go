package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rajivgeraev/flippy-client/internal/api"
	"github.com/rajivgeraev/flippy-client/internal/config"
	"github.com/rajivgeraev/flippy-client/internal/models"
	"github.com/rajivgeraev/flippy-client/internal/utils"
)

// State представляет состояние жизненного цикла сессии
type State string

// Состояния сессии: init -> authenticated -> expired -> reauthenticating
const (
	StateInit             State = "init"
	StateAuthenticated    State = "authenticated"
	StateExpired          State = "expired"
	StateReauthenticating State = "reauthenticating"
)

// retryDelay — фиксированная задержка между попытками аутентификации
// в Telegram-режиме
const retryDelay = 3 * time.Second

// Session владеет единственной аутентифицированной личностью устройства.
// Токен имеет одного писателя (Session); остальные компоненты читают его
// через TokenSource. Каждый переход в authenticated рассылается
// подписчикам, чтобы кэши, посчитанные под другой личностью, сбрасывались.
type Session struct {
	mu     sync.Mutex
	cfg    *config.Config
	store  *Store
	client *api.Client

	state State
	token string
	user  models.User

	launchPayload string
	retryDelay    time.Duration
	now           func() time.Time

	identitySubs []func(models.User)
	expiredSubs  []func()
}

// New создает сессию и восстанавливает сохраненные токен и профиль.
// Токен с истекшим сроком действия отбрасывается сразу.
func New(cfg *config.Config, store *Store) *Session {
	s := &Session{
		cfg:        cfg,
		store:      store,
		state:      StateInit,
		retryDelay: retryDelay,
		now:        time.Now,
	}

	token, user := store.Load()
	if token != "" && !utils.TokenExpired(token, s.now()) && user != nil {
		s.token = token
		s.user = *user
		s.state = StateAuthenticated
	}

	return s
}

// UseClient привязывает API-клиент, через который выполняется аутентификация
func (s *Session) UseClient(c *api.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
}

// SetLaunchPayload задает подписанные данные запуска из Telegram Mini App
func (s *Session) SetLaunchPayload(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launchPayload = raw
}

// Token возвращает текущий bearer-токен или пустую строку
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// State возвращает текущее состояние сессии
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current возвращает текущую личность, если сессия аутентифицирована
func (s *Session) Current() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.state == StateAuthenticated
}

// OnIdentityChange регистрирует подписчика смены личности.
// Вызывается при каждом переходе в authenticated и при выходе.
func (s *Session) OnIdentityChange(fn func(models.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identitySubs = append(s.identitySubs, fn)
}

// OnExpired регистрирует подписчика события истечения сессии
func (s *Session) OnExpired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiredSubs = append(s.expiredSubs, fn)
}

// Authenticate выполняет аутентификацию и возвращает личность.
// В Telegram-режиме неудачные попытки повторяются с фиксированной
// задержкой до отмены контекста; в режиме разработки выполняется
// ровно одна попытка тестового входа.
func (s *Session) Authenticate(ctx context.Context) (models.User, error) {
	s.mu.Lock()
	if s.state == StateExpired {
		s.state = StateReauthenticating
	}
	client := s.client
	payload := s.launchPayload
	dev := s.cfg.IsDevelopment() && payload == ""
	s.mu.Unlock()

	if client == nil {
		return models.User{}, &api.AuthError{Cause: "API-клиент не привязан к сессии"}
	}

	if dev {
		return s.authenticateTest(ctx, client)
	}

	for {
		user, err := s.authenticateTelegram(ctx, client, payload)
		if err == nil {
			return user, nil
		}

		log.Printf("Ошибка аутентификации: %v", err)

		select {
		case <-ctx.Done():
			return models.User{}, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
}

// authenticateTelegram обменивает данные запуска на токен сессии
func (s *Session) authenticateTelegram(ctx context.Context, client *api.Client, payload string) (models.User, error) {
	if payload == "" {
		return models.User{}, &api.AuthError{Cause: "Отсутствуют данные инициализации Telegram"}
	}

	resp, err := client.AuthenticateTelegram(ctx, payload)
	if err != nil {
		return models.User{}, err
	}

	s.setIdentity(resp.Token, resp.User)
	return resp.User, nil
}

// authenticateTest получает тестовый токен (только для разработки).
// Автоматических повторов нет.
func (s *Session) authenticateTest(ctx context.Context, client *api.Client) (models.User, error) {
	resp, err := client.TestLogin(ctx, s.cfg.TestUserID)
	if err != nil {
		return models.User{}, err
	}

	userID, err := uuid.Parse(resp.UserID)
	if err != nil {
		return models.User{}, &api.AuthError{Cause: "Сервер вернул неверный ID тестового пользователя"}
	}

	user := models.User{
		ID:        userID,
		FirstName: "Test",
		LastName:  "User",
		Username:  "test_user",
	}

	s.setIdentity(resp.JWTToken, user)
	return user, nil
}

// setIdentity фиксирует новую личность и оповещает подписчиков
func (s *Session) setIdentity(token string, user models.User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.state = StateAuthenticated
	subs := append([]func(models.User){}, s.identitySubs...)
	s.mu.Unlock()

	if err := s.store.Save(token, &user); err != nil {
		log.Printf("⚠️ Не удалось сохранить сессию: %v", err)
	}

	for _, fn := range subs {
		fn(user)
	}
}

// MarkExpired переводит сессию в состояние expired.
// Вызывается HTTP-обёрткой при ответе 401: токен удаляется, профиль
// остается для отображения, подписчики получают событие для запуска
// повторной аутентификации.
func (s *Session) MarkExpired() {
	s.mu.Lock()
	if s.state != StateAuthenticated {
		s.mu.Unlock()
		return
	}
	log.Println("Токен истек, требуется повторная аутентификация")
	s.token = ""
	s.state = StateExpired
	subs := append([]func(){}, s.expiredSubs...)
	s.mu.Unlock()

	if err := s.store.ClearToken(); err != nil {
		log.Printf("⚠️ Не удалось очистить токен: %v", err)
	}

	for _, fn := range subs {
		fn()
	}
}

// SignOut завершает сессию и очищает локальное состояние
func (s *Session) SignOut() {
	s.mu.Lock()
	s.token = ""
	s.user = models.User{}
	s.state = StateInit
	subs := append([]func(models.User){}, s.identitySubs...)
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		log.Printf("⚠️ Не удалось удалить файл сессии: %v", err)
	}

	// Выход — тоже смена личности: кэши, посчитанные под прежним
	// пользователем, должны быть сброшены
	for _, fn := range subs {
		fn(models.User{})
	}
}
