package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-client/internal/api"
	"github.com/rajivgeraev/flippy-client/internal/models"
)

// MessagesPollInterval — период фонового обновления открытого чата.
// Простой опрос без push-канала — осознанное решение дизайна.
const MessagesPollInterval = 10 * time.Second

// Conversation владеет локальным буфером сообщений одного чата.
// Буфер упорядочен от новых к старым; свежая страница заменяет буфер,
// подгрузка истории дописывается в хвост. Сервер авторитетен: локальное
// эхо не синтезируется, отметка о прочтении не применяется оптимистично.
type Conversation struct {
	mu     sync.Mutex
	client *api.Client
	chatID uuid.UUID

	messages    []models.Message
	hasMore     bool
	oldestID    uuid.UUID
	initialized bool
	fetching    bool
	lastErr     error
}

// NewConversation создает буфер сообщений для указанного чата
func NewConversation(client *api.Client, chatID uuid.UUID) *Conversation {
	return &Conversation{client: client, chatID: chatID}
}

// ChatID возвращает идентификатор чата
func (c *Conversation) ChatID() uuid.UUID {
	return c.chatID
}

// Open сбрасывает буфер и загружает самую свежую страницу.
// Флаг initialized выставляется и при ошибке: без этого экран навсегда
// застревает в состоянии загрузки вместо "чат не найден".
func (c *Conversation) Open(ctx context.Context) error {
	c.mu.Lock()
	c.messages = nil
	c.oldestID = uuid.Nil
	c.hasMore = false
	c.initialized = false
	c.mu.Unlock()

	err := c.Refresh(ctx)

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()

	return err
}

// Refresh загружает самую свежую страницу и заменяет ею буфер.
// При ошибке прежний успешный снимок остается на месте, ошибка
// запоминается как неблокирующий индикатор.
func (c *Conversation) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.fetching {
		c.mu.Unlock()
		return nil
	}
	c.fetching = true
	c.mu.Unlock()

	page, err := c.client.GetChatMessages(ctx, c.chatID, uuid.Nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching = false

	if err != nil {
		c.lastErr = err
		return err
	}

	c.lastErr = nil
	c.messages = page.Messages
	c.hasMore = page.HasMore
	if len(page.Messages) > 0 {
		c.oldestID = page.Messages[len(page.Messages)-1].ID
	}
	return nil
}

// LoadOlder подгружает следующую страницу истории по курсору before.
// Не выполняется, если запрос уже в полете или сервер сообщил об
// отсутствии следующих страниц.
func (c *Conversation) LoadOlder(ctx context.Context) error {
	c.mu.Lock()
	if c.fetching || !c.hasMore || c.oldestID == uuid.Nil {
		c.mu.Unlock()
		return nil
	}
	c.fetching = true
	before := c.oldestID
	c.mu.Unlock()

	page, err := c.client.GetChatMessages(ctx, c.chatID, before)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching = false

	if err != nil {
		c.lastErr = err
		return err
	}

	c.lastErr = nil

	seen := make(map[uuid.UUID]bool, len(c.messages))
	for _, m := range c.messages {
		seen[m.ID] = true
	}
	for _, m := range page.Messages {
		if seen[m.ID] {
			continue
		}
		c.messages = append(c.messages, m)
	}

	c.hasMore = page.HasMore
	if len(c.messages) > 0 {
		c.oldestID = c.messages[len(c.messages)-1].ID
	}
	return nil
}

// Send отправляет сообщение. Пустой или пробельный текст отклоняется
// локально без сетевого вызова и без изменения состояния. При успехе
// серверное представление сообщения вставляется в голову буфера.
func (c *Conversation) Send(ctx context.Context, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &api.ValidationError{Msg: "Текст сообщения не может быть пустым"}
	}

	msg, err := c.client.SendMessage(ctx, c.chatID, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.messages = append([]models.Message{*msg}, c.messages...)
	c.mu.Unlock()

	return msg, nil
}

// Messages возвращает копию буфера, от новых сообщений к старым
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Initialized сообщает, завершилась ли первая загрузка (успехом или нет)
func (c *Conversation) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// HasMore сообщает, есть ли у сервера более старые страницы
func (c *Conversation) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// Err возвращает ошибку последнего неудачного запроса, если она была
func (c *Conversation) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
