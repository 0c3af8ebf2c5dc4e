package trade

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-client/internal/api"
	"github.com/rajivgeraev/flippy-client/internal/models"
	"github.com/rajivgeraev/flippy-client/internal/session"
)

// Direction задает фильтр направления предложений обмена
type Direction string

// Возможные направления выборки
const (
	DirectionAll      Direction = "all"
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Proposal представляет ввод для нового предложения обмена.
// Выбранная своя игрушка и запрос продажи взаимоисключающие: серверный
// формат несет ровно один предметный листинг.
type Proposal struct {
	ReceiverListingID uuid.UUID
	SenderListingID   uuid.UUID // uuid.Nil при запросе продажи
	RequestSale       bool
	Message           string
}

// ChatThread представляет проекцию принятого обмена в сводку чата
type ChatThread struct {
	ChatID          uuid.UUID
	TradeID         uuid.UUID
	CounterpartyID  uuid.UUID
	Counterparty    *models.User
	LastMessageText string
	LastMessageTime *time.Time
}

// Service владеет клиентским снимком предложений обмена и правилами
// перехода их статусов. Снимок заменяется целиком при каждой выборке;
// локальные правки применяются только после подтверждения сервера.
type Service struct {
	mu     sync.Mutex
	client *api.Client
	sess   *session.Session

	trades    []models.Trade
	count     int
	direction Direction
	status    string
}

// NewService создает новый экземпляр Service
func NewService(client *api.Client, sess *session.Session) *Service {
	return &Service{
		client:    client,
		sess:      sess,
		direction: DirectionAll,
		status:    "all",
	}
}

// List загружает предложения обмена с фильтрами по направлению и статусу.
// Смена фильтра никогда не сливает страницы: результат заменяет снимок
// целиком. При ошибке прежний успешный снимок остается на месте.
func (s *Service) List(ctx context.Context, direction Direction, status string) ([]models.Trade, error) {
	if direction == "" {
		direction = DirectionAll
	}
	if status == "" {
		status = "all"
	}

	resp, err := s.client.GetMyTrades(ctx, string(direction), status)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.direction = direction
	s.status = status
	s.trades = resp.Trades
	s.count = resp.Count
	s.mu.Unlock()

	return s.Trades(), nil
}

// Trades возвращает копию текущего снимка
func (s *Service) Trades() []models.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

// Count возвращает количество предложений в текущем снимке
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Propose создает предложение обмена и возвращает его ID
func (s *Service) Propose(ctx context.Context, p Proposal) (uuid.UUID, error) {
	user, ok := s.sess.Current()
	if !ok {
		return uuid.Nil, &api.AuthError{Cause: "Для обмена необходимо авторизоваться"}
	}

	if p.ReceiverListingID == uuid.Nil {
		return uuid.Nil, &api.ValidationError{Msg: "Не указано объявление для обмена"}
	}
	if p.RequestSale && p.SenderListingID != uuid.Nil {
		return uuid.Nil, &api.ValidationError{Msg: "Выберите свою игрушку или запросите продажу, но не одновременно"}
	}
	if !p.RequestSale && p.SenderListingID == uuid.Nil {
		return uuid.Nil, &api.ValidationError{Msg: "Выберите игрушку для обмена или запросите продажу"}
	}

	// Обе стороны обмена не могут принадлежать одному владельцу
	listing, err := s.client.GetListing(ctx, p.ReceiverListingID)
	if err != nil {
		return uuid.Nil, err
	}
	if listing.UserID == user.ID {
		return uuid.Nil, &api.ValidationError{Msg: "Вы не можете предложить обмен самому себе"}
	}

	req := api.CreateTradeRequest{
		ReceiverListingID: p.ReceiverListingID.String(),
		IsSale:            p.RequestSale,
		Message:           p.Message,
	}
	if p.SenderListingID != uuid.Nil {
		req.SenderListingID = p.SenderListingID.String()
	}

	return s.client.CreateTrade(ctx, req)
}

// Respond принимает или отклоняет входящее предложение обмена.
// Разрешено только получателю и только из статуса pending.
func (s *Service) Respond(ctx context.Context, tradeID uuid.UUID, decision models.TradeStatus) (*api.UpdateTradeStatusResult, error) {
	if decision != models.TradeStatusAccepted && decision != models.TradeStatusRejected {
		return nil, &api.ValidationError{Msg: "Недопустимое решение по предложению обмена"}
	}

	trade, err := s.find(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	user, ok := s.sess.Current()
	if !ok {
		return nil, &api.AuthError{Cause: "Для обмена необходимо авторизоваться"}
	}
	if trade.ReceiverID != user.ID {
		return nil, &api.ForbiddenError{Msg: "Только получатель предложения может его принять или отклонить"}
	}
	if !trade.Status.CanTransitionTo(decision) {
		return nil, &api.InvalidTransitionError{Msg: "Нельзя изменить статус предложения, которое уже не находится в ожидании"}
	}

	return s.transition(ctx, tradeID, decision)
}

// Cancel отменяет исходящее предложение обмена.
// Разрешено только отправителю и только из статуса pending.
func (s *Service) Cancel(ctx context.Context, tradeID uuid.UUID) (*api.UpdateTradeStatusResult, error) {
	trade, err := s.find(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	user, ok := s.sess.Current()
	if !ok {
		return nil, &api.AuthError{Cause: "Для обмена необходимо авторизоваться"}
	}
	if trade.SenderID != user.ID {
		return nil, &api.ForbiddenError{Msg: "Только отправитель предложения может его отменить"}
	}
	if !trade.Status.CanTransitionTo(models.TradeStatusCanceled) {
		return nil, &api.InvalidTransitionError{Msg: "Нельзя изменить статус предложения, которое уже не находится в ожидании"}
	}

	return s.transition(ctx, tradeID, models.TradeStatusCanceled)
}

// transition выполняет серверный переход и применяет его к снимку.
// InvalidTransition от сервера — ожидаемый исход гонки двух устройств:
// снимок обновляется, ошибка возвращается вызывающему как обычная.
func (s *Service) transition(ctx context.Context, tradeID uuid.UUID, status models.TradeStatus) (*api.UpdateTradeStatusResult, error) {
	result, err := s.client.UpdateTradeStatus(ctx, tradeID, status)
	if err != nil {
		var invalid *api.InvalidTransitionError
		if errors.As(err, &invalid) {
			s.refresh(ctx)
		}
		return nil, err
	}

	s.mu.Lock()
	for i := range s.trades {
		if s.trades[i].ID == tradeID {
			s.trades[i].Status = result.Status
			if result.ChatID != uuid.Nil {
				s.trades[i].ChatID = result.ChatID
			}
			break
		}
	}
	s.mu.Unlock()

	return result, nil
}

// find ищет предложение в снимке, при необходимости обновляя его
func (s *Service) find(ctx context.Context, tradeID uuid.UUID) (models.Trade, error) {
	if t, ok := s.lookup(tradeID); ok {
		return t, nil
	}

	if err := s.refresh(ctx); err != nil {
		return models.Trade{}, err
	}

	if t, ok := s.lookup(tradeID); ok {
		return t, nil
	}
	return models.Trade{}, &api.ServerError{StatusCode: http.StatusNotFound, Message: "Предложение обмена не найдено"}
}

func (s *Service) lookup(tradeID uuid.UUID) (models.Trade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.ID == tradeID {
			return t, true
		}
	}
	return models.Trade{}, false
}

// refresh перечитывает снимок с текущими фильтрами
func (s *Service) refresh(ctx context.Context) error {
	s.mu.Lock()
	direction, status := s.direction, s.status
	s.mu.Unlock()

	_, err := s.List(ctx, direction, status)
	return err
}

// ChatThreads проецирует принятые обмены в сводки чатов.
// Чат существует тогда и только тогда, когда его обмен принят.
func (s *Service) ChatThreads() []ChatThread {
	user, ok := s.sess.Current()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var threads []ChatThread
	for i := range s.trades {
		t := &s.trades[i]
		if t.Status != models.TradeStatusAccepted {
			continue
		}
		otherID, other := t.Counterparty(user.ID)
		threads = append(threads, ChatThread{
			ChatID:         t.ChatID,
			TradeID:        t.ID,
			CounterpartyID: otherID,
			Counterparty:   other,
		})
	}
	return threads
}
