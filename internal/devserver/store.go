package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-client/internal/models"
)

// Store хранит данные dev-сервера в памяти.
// Заменяет PostgreSQL в локальной разработке и тестах: те же сущности,
// та же семантика выборок, но без внешних процессов.
type Store struct {
	mu          sync.Mutex
	users       map[uuid.UUID]models.User
	telegramIDs map[int64]uuid.UUID
	listings    map[uuid.UUID]*models.Listing
	favorites   map[uuid.UUID]*models.Favorite
	trades      map[uuid.UUID]*models.Trade
	chats       map[uuid.UUID]*models.Chat
	messages    map[uuid.UUID][]models.Message
	categories  []models.Category
	now         func() time.Time
}

// NewStore создает хранилище с заполненным справочником категорий
func NewStore() *Store {
	return &Store{
		users:       make(map[uuid.UUID]models.User),
		telegramIDs: make(map[int64]uuid.UUID),
		listings:    make(map[uuid.UUID]*models.Listing),
		favorites:   make(map[uuid.UUID]*models.Favorite),
		trades:      make(map[uuid.UUID]*models.Trade),
		chats:       make(map[uuid.UUID]*models.Chat),
		messages:    make(map[uuid.UUID][]models.Message),
		categories: []models.Category{
			{Slug: "dolls", NameRu: "Куклы", NameEn: "Dolls"},
			{Slug: "constructors", NameRu: "Конструкторы", NameEn: "Constructors"},
			{Slug: "cars", NameRu: "Машинки", NameEn: "Cars"},
			{Slug: "plush", NameRu: "Мягкие игрушки", NameEn: "Plush Toys"},
			{Slug: "board_games", NameRu: "Настольные игры", NameEn: "Board Games"},
			{Slug: "educational", NameRu: "Развивающие", NameEn: "Educational"},
			{Slug: "outdoor", NameRu: "Для улицы", NameEn: "Outdoor"},
			{Slug: "other", NameRu: "Разное", NameEn: "Other"},
		},
		now: time.Now,
	}
}

// Categories возвращает справочник категорий
func (s *Store) Categories() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// UpsertTelegramUser находит или создает пользователя по Telegram ID
func (s *Store) UpsertTelegramUser(telegramID int64, firstName, lastName, username, photoURL string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.telegramIDs[telegramID]
	if !ok {
		id = uuid.New()
		s.telegramIDs[telegramID] = id
	}

	user := models.User{
		ID:        id,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		AvatarURL: photoURL,
	}
	s.users[id] = user
	return user
}

// EnsureUser находит или создает пользователя с указанным ID
func (s *Store) EnsureUser(id uuid.UUID) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[id]; ok {
		return user
	}
	user := models.User{
		ID:        id,
		FirstName: "Test",
		LastName:  "User",
		Username:  "test_user",
	}
	s.users[id] = user
	return user
}

// GetUser возвращает пользователя по ID
func (s *Store) GetUser(id uuid.UUID) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	return user, ok
}

// userRef возвращает указатель на копию пользователя для вложенных полей
func (s *Store) userRef(id uuid.UUID) *models.User {
	if user, ok := s.users[id]; ok {
		u := user
		return &u
	}
	return nil
}

// CreateListing сохраняет новое объявление
func (s *Store) CreateListing(l *models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	l.CreatedAt = now
	l.UpdatedAt = now
	s.listings[l.ID] = l
}

// GetListing возвращает копию объявления с данными владельца
func (s *Store) GetListing(id uuid.UUID) (models.Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return models.Listing{}, false
	}
	out := *l
	out.User = s.userRef(l.UserID)
	return out, true
}

// UpdateListing заменяет содержимое объявления
func (s *Store) UpdateListing(l *models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.listings[l.ID]; ok {
		l.CreatedAt = prev.CreatedAt
	}
	l.UpdatedAt = s.now()
	s.listings[l.ID] = l
}

// DeleteListing удаляет объявление вместе с записями избранного
func (s *Store) DeleteListing(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[id]; !ok {
		return false
	}
	delete(s.listings, id)
	for fid, f := range s.favorites {
		if f.ListingID == id {
			delete(s.favorites, fid)
		}
	}
	return true
}

// PublicListings возвращает страницу активных объявлений, новые раньше
func (s *Store) PublicListings(offset, limit int) ([]models.Listing, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Listing
	for _, l := range s.listings {
		if l.Status != "active" {
			continue
		}
		out := *l
		out.User = s.userRef(l.UserID)
		all = append(all, out)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	return pageListings(all, offset, limit)
}

// UserListings возвращает страницу объявлений пользователя.
// Пустой или "all" статус означает все объявления.
func (s *Store) UserListings(userID uuid.UUID, status string, offset, limit int) ([]models.Listing, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Listing
	for _, l := range s.listings {
		if l.UserID != userID {
			continue
		}
		if status != "" && status != "all" && l.Status != status {
			continue
		}
		all = append(all, *l)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })

	return pageListings(all, offset, limit)
}

func pageListings(all []models.Listing, offset, limit int) ([]models.Listing, int) {
	total := len(all)
	if offset >= total {
		return nil, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total
}

// FindFavorite ищет запись избранного пользователя по объявлению
func (s *Store) FindFavorite(userID, listingID uuid.UUID) (models.Favorite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.favorites {
		if f.UserID == userID && f.ListingID == listingID {
			return *f, true
		}
	}
	return models.Favorite{}, false
}

// AddFavorite добавляет объявление в избранное.
// Возвращает false, если запись уже существует.
func (s *Store) AddFavorite(userID, listingID uuid.UUID) (models.Favorite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.favorites {
		if f.UserID == userID && f.ListingID == listingID {
			return *f, false
		}
	}
	fav := models.Favorite{
		ID:        uuid.New(),
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: s.now(),
	}
	s.favorites[fav.ID] = &fav
	return fav, true
}

// RemoveFavorite удаляет объявление из избранного пользователя
func (s *Store) RemoveFavorite(userID, listingID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.favorites {
		if f.UserID == userID && f.ListingID == listingID {
			delete(s.favorites, id)
			return true
		}
	}
	return false
}

// UserFavorites возвращает страницу избранного с активными объявлениями
func (s *Store) UserFavorites(userID uuid.UUID, offset, limit int) ([]models.Favorite, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Favorite
	for _, f := range s.favorites {
		if f.UserID != userID {
			continue
		}
		l, ok := s.listings[f.ListingID]
		if !ok || l.Status != "active" {
			continue
		}
		fav := *f
		listing := *l
		listing.User = s.userRef(l.UserID)
		fav.Listing = &listing
		all = append(all, fav)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return nil, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total
}

// CreateTrade сохраняет новое предложение обмена
func (s *Store) CreateTrade(t *models.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.trades[t.ID] = t
}

// HasPendingTrade проверяет наличие pending-предложения с той же парой объявлений
func (s *Store) HasPendingTrade(senderListingID, receiverListingID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.SenderListingID == senderListingID &&
			t.ReceiverListingID == receiverListingID &&
			t.Status == models.TradeStatusPending {
			return true
		}
	}
	return false
}

// GetTrade возвращает копию предложения обмена
func (s *Store) GetTrade(id uuid.UUID) (models.Trade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok {
		return models.Trade{}, false
	}
	return *t, true
}

// SetTradeStatus переводит предложение в новый статус
func (s *Store) SetTradeStatus(id uuid.UUID, status models.TradeStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trades[id]; ok {
		t.Status = status
		t.UpdatedAt = s.now()
	}
}

// TradesFor возвращает предложения пользователя по направлению и статусу.
// Предложения обогащаются объявлениями, участниками и ID связанного чата.
func (s *Store) TradesFor(userID uuid.UUID, tradeType, status string) []models.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Trade
	for _, t := range s.trades {
		switch tradeType {
		case "incoming":
			if t.ReceiverID != userID {
				continue
			}
		case "outgoing":
			if t.SenderID != userID {
				continue
			}
		default:
			if t.SenderID != userID && t.ReceiverID != userID {
				continue
			}
		}
		if status != "" && status != "all" && string(t.Status) != status {
			continue
		}

		out := *t
		if l, ok := s.listings[t.SenderListingID]; ok {
			listing := *l
			out.SenderListing = &listing
		}
		if l, ok := s.listings[t.ReceiverListingID]; ok {
			listing := *l
			out.ReceiverListing = &listing
		}
		out.Sender = s.userRef(t.SenderID)
		out.Receiver = s.userRef(t.ReceiverID)
		for _, c := range s.chats {
			if c.TradeID != nil && *c.TradeID == t.ID {
				out.ChatID = c.ID
				break
			}
		}
		all = append(all, out)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all
}

// CreateChat сохраняет новый чат
func (s *Store) CreateChat(c *models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.chats[c.ID] = c
}

// GetChat возвращает копию чата
func (s *Store) GetChat(id uuid.UUID) (models.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return models.Chat{}, false
	}
	return *c, true
}

// ChatBetween ищет существующий чат между двумя пользователями
func (s *Store) ChatBetween(a, b uuid.UUID) (models.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chats {
		if (c.SenderID == a && c.ReceiverID == b) || (c.SenderID == b && c.ReceiverID == a) {
			return *c, true
		}
	}
	return models.Chat{}, false
}

// ChatByTradeID ищет чат, привязанный к обмену
func (s *Store) ChatByTradeID(tradeID uuid.UUID) (models.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chats {
		if c.TradeID != nil && *c.TradeID == tradeID {
			return *c, true
		}
	}
	return models.Chat{}, false
}

// ChatsFor возвращает чаты пользователя со счетчиками непрочитанного,
// свежие по последнему сообщению раньше
func (s *Store) ChatsFor(userID uuid.UUID) []models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Chat
	for _, c := range s.chats {
		if c.SenderID != userID && c.ReceiverID != userID {
			continue
		}
		out := *c
		for _, m := range s.messages[c.ID] {
			if m.SenderID != userID && !m.IsRead {
				out.UnreadCount++
			}
		}
		if c.SenderID == userID {
			out.Receiver = s.userRef(c.ReceiverID)
		} else {
			out.Sender = s.userRef(c.SenderID)
		}
		if c.TradeID != nil {
			if t, ok := s.trades[*c.TradeID]; ok {
				trade := *t
				out.Trade = &trade
			}
		}
		all = append(all, out)
	}
	sort.Slice(all, func(i, j int) bool {
		ti, tj := all[i].CreatedAt, all[j].CreatedAt
		if all[i].LastMessageTime != nil {
			ti = *all[i].LastMessageTime
		}
		if all[j].LastMessageTime != nil {
			tj = *all[j].LastMessageTime
		}
		return ti.After(tj)
	})
	return all
}

// AppendMessage сохраняет сообщение и обновляет сводку чата
func (s *Store) AppendMessage(m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.ChatID] = append(s.messages[m.ChatID], m)
	if c, ok := s.chats[m.ChatID]; ok {
		c.LastMessageText = m.Text
		t := m.CreatedAt
		c.LastMessageTime = &t
		c.UpdatedAt = m.CreatedAt
	}
}

// MessagesBefore возвращает до limit сообщений чата от новых к старым.
// Нулевой before означает самую свежую страницу, иначе отдаются только
// сообщения старше указанного.
func (s *Store) MessagesBefore(chatID uuid.UUID, before uuid.UUID, limit int) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.messages[chatID]
	end := len(history)
	if before != uuid.Nil {
		for i, m := range history {
			if m.ID == before {
				end = i
				break
			}
		}
	}

	start := end - limit
	if start < 0 {
		start = 0
	}

	out := make([]models.Message, 0, end-start)
	for i := end - 1; i >= start; i-- {
		m := history[i]
		m.Sender = s.userRef(m.SenderID)
		out = append(out, m)
	}
	return out
}

// MarkMessagesRead помечает прочитанными чужие сообщения чата
func (s *Store) MarkMessagesRead(chatID, readerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.messages[chatID]
	for i := range history {
		if history[i].SenderID != readerID {
			history[i].IsRead = true
		}
	}
}

// Now возвращает текущее время хранилища
func (s *Store) Now() time.Time {
	return s.now()
}
