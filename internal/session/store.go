package session

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/rajivgeraev/flippy-client/internal/models"
)

// Store хранит токен сессии и снимок профиля пользователя в JSON-файле.
// Это две единственные единицы локального состояния приложения —
// аналог двух ключей localStorage веб-версии.
type Store struct {
	mu   sync.Mutex
	path string
}

// persistedSession представляет формат файла сессии
type persistedSession struct {
	Token string       `json:"jwt_token,omitempty"`
	User  *models.User `json:"flippy_user,omitempty"`
}

// NewStore создает хранилище сессии по указанному пути
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load читает сохраненные токен и профиль.
// Отсутствующий или поврежденный файл равнозначен пустой сессии.
func (s *Store) Load() (string, *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", nil
	}

	var p persistedSession
	if err := json.Unmarshal(data, &p); err != nil {
		return "", nil
	}
	return p.Token, p.User
}

// Save сохраняет токен и профиль пользователя
func (s *Store) Save(token string, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(persistedSession{Token: token, User: user})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// ClearToken удаляет только токен, оставляя снимок профиля.
// Используется при истечении сессии: профиль пригоден для отображения
// до завершения повторной аутентификации.
func (s *Store) ClearToken() error {
	s.mu.Lock()
	_, user := s.loadLocked()
	s.mu.Unlock()
	return s.Save("", user)
}

// Clear удаляет файл сессии целиком
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) loadLocked() (string, *models.User) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", nil
	}
	var p persistedSession
	if err := json.Unmarshal(data, &p); err != nil {
		return "", nil
	}
	return p.Token, p.User
}
