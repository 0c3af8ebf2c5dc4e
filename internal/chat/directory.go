package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-client/internal/api"
	"github.com/rajivgeraev/flippy-client/internal/models"
	"github.com/rajivgeraev/flippy-client/internal/session"
	"github.com/rajivgeraev/flippy-client/internal/trade"
)

// ListPollInterval — период фонового обновления списка чатов
const ListPollInterval = 30 * time.Second

// Directory владеет единым списком чатов с двумя путями наполнения:
// выборкой с выделенного эндпоинта и выводом из принятых обменов.
// Оба пути сходятся к одному логическому множеству по связке
// chat_id/trade_id, которую возвращает сервер.
type Directory struct {
	mu     sync.Mutex
	client *api.Client
	sess   *session.Session

	chats   []models.Chat
	lastErr error
}

// NewDirectory создает новый экземпляр Directory
func NewDirectory(client *api.Client, sess *session.Session) *Directory {
	return &Directory{client: client, sess: sess}
}

// Refresh загружает список чатов с сервера.
// При ошибке прежний успешный снимок остается на месте.
func (d *Directory) Refresh(ctx context.Context) error {
	resp, err := d.client.GetChats(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		d.lastErr = err
		return err
	}

	d.lastErr = nil
	d.chats = resp.Chats
	return nil
}

// ApplyTradeThreads дополняет список чатов проекциями принятых обменов.
// Запись добавляется, только если чат с тем же ID или тем же обменом
// еще не известен: оба источника описывают одно множество.
func (d *Directory) ApplyTradeThreads(threads []trade.ChatThread) {
	user, ok := d.sess.Current()
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	known := make(map[uuid.UUID]bool, len(d.chats)*2)
	for _, c := range d.chats {
		known[c.ID] = true
		if c.TradeID != nil {
			known[*c.TradeID] = true
		}
	}

	for _, t := range threads {
		if t.ChatID == uuid.Nil || known[t.ChatID] || known[t.TradeID] {
			continue
		}
		tradeID := t.TradeID
		d.chats = append(d.chats, models.Chat{
			ID:              t.ChatID,
			TradeID:         &tradeID,
			SenderID:        user.ID,
			ReceiverID:      t.CounterpartyID,
			Receiver:        t.Counterparty,
			IsActive:        true,
			LastMessageText: t.LastMessageText,
			LastMessageTime: t.LastMessageTime,
		})
		known[t.ChatID] = true
		known[t.TradeID] = true
	}
}

// Chats возвращает копию текущего списка чатов
func (d *Directory) Chats() []models.Chat {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Chat, len(d.chats))
	copy(out, d.chats)
	return out
}

// TotalUnread суммирует серверные счетчики непрочитанного в один бейдж.
// Значение никогда не уменьшается локально: отметка о прочтении
// авторитетна на сервере и доезжает следующим опросом.
func (d *Directory) TotalUnread() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := 0
	for _, c := range d.chats {
		total += c.UnreadCount
	}
	return total
}

// CanOpen сообщает, можно ли открыть чат.
// Чат, привязанный к обмену, доступен только пока обмен принят.
func (d *Directory) CanOpen(chatID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range d.chats {
		if c.ID != chatID {
			continue
		}
		if c.Trade != nil {
			return c.Trade.Status == models.TradeStatusAccepted
		}
		return true
	}
	return false
}

// Err возвращает ошибку последнего неудачного опроса, если она была
func (d *Directory) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}
