package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-client/internal/api"
	"github.com/rajivgeraev/flippy-client/internal/config"
	"github.com/rajivgeraev/flippy-client/internal/devserver"
	"github.com/rajivgeraev/flippy-client/internal/models"
	"github.com/rajivgeraev/flippy-client/internal/session"
	"github.com/rajivgeraev/flippy-client/internal/trade"
)

type chatUser struct {
	id     uuid.UUID
	sess   *session.Session
	client *api.Client
}

// countingTransport считает реальные сетевые вызовы поверх тестового сервера
type countingTransport struct {
	inner http.RoundTripper
	calls int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.inner.RoundTrip(req)
}

func newChatServer(t *testing.T) *devserver.Server {
	t.Helper()
	cfg := &config.Config{AppEnv: "development", JWTSecret: "test-secret"}
	return devserver.New(cfg, devserver.NewStore())
}

func newChatUser(t *testing.T, server *devserver.Server, httpClient *http.Client) *chatUser {
	t.Helper()
	if httpClient == nil {
		httpClient = server.HTTPClient()
	}

	id := uuid.New()
	cfg := &config.Config{
		APIBaseURL:  "http://flippy.test",
		AppEnv:      "development",
		JWTSecret:   "test-secret",
		TestUserID:  id.String(),
		SessionFile: filepath.Join(t.TempDir(), "session.json"),
	}

	sess := session.New(cfg, session.NewStore(cfg.SessionFile))
	client := api.New(cfg.APIBaseURL,
		api.WithHTTPClient(httpClient),
		api.WithTokenSource(sess.Token),
		api.WithUnauthorizedHandler(sess.MarkExpired),
	)
	sess.UseClient(client)

	if _, err := sess.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return &chatUser{id: id, sess: sess, client: client}
}

func seedChat(store *devserver.Store, a, b uuid.UUID) uuid.UUID {
	store.EnsureUser(a)
	store.EnsureUser(b)
	chatID := uuid.New()
	store.CreateChat(&models.Chat{
		ID:         chatID,
		SenderID:   a,
		ReceiverID: b,
		IsActive:   true,
	})
	return chatID
}

func seedMessages(store *devserver.Store, chatID, senderID uuid.UUID, count int) {
	base := store.Now()
	for i := 0; i < count; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		store.AppendMessage(models.Message{
			ID:        uuid.New(),
			ChatID:    chatID,
			SenderID:  senderID,
			Text:      fmt.Sprintf("msg-%03d", i+1),
			CreatedAt: ts,
			UpdatedAt: ts,
		})
	}
}

func TestOpenAndLoadOlderPagination(t *testing.T) {
	server := newChatServer(t)
	alice := newChatUser(t, server, nil)
	bob := newChatUser(t, server, nil)

	chatID := seedChat(server.Store(), alice.id, bob.id)
	seedMessages(server.Store(), chatID, bob.id, 120)

	conv := NewConversation(alice.client, chatID)
	if err := conv.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	msgs := conv.Messages()
	if len(msgs) != 50 {
		t.Fatalf("первая страница: %d сообщений", len(msgs))
	}
	if msgs[0].Text != "msg-120" || msgs[49].Text != "msg-071" {
		t.Fatalf("порядок первой страницы: %s .. %s", msgs[0].Text, msgs[49].Text)
	}
	if !conv.HasMore() {
		t.Fatal("полная страница должна сигналить о продолжении истории")
	}

	if err := conv.LoadOlder(context.Background()); err != nil {
		t.Fatalf("LoadOlder: %v", err)
	}
	msgs = conv.Messages()
	if len(msgs) != 100 || msgs[99].Text != "msg-021" {
		t.Fatalf("после второй страницы: %d сообщений, хвост %s", len(msgs), msgs[len(msgs)-1].Text)
	}

	// Последняя страница короче лимита: история исчерпана
	if err := conv.LoadOlder(context.Background()); err != nil {
		t.Fatalf("LoadOlder: %v", err)
	}
	msgs = conv.Messages()
	if len(msgs) != 120 || msgs[119].Text != "msg-001" {
		t.Fatalf("после третьей страницы: %d сообщений, хвост %s", len(msgs), msgs[len(msgs)-1].Text)
	}
	if conv.HasMore() {
		t.Error("после неполной страницы hasMore должен быть false")
	}

	// Дальнейшие подгрузки не меняют буфер
	if err := conv.LoadOlder(context.Background()); err != nil {
		t.Fatalf("LoadOlder после конца: %v", err)
	}
	if got := len(conv.Messages()); got != 120 {
		t.Errorf("буфер изменился после исчерпания: %d", got)
	}
}

func TestRefreshPicksUpNewMessages(t *testing.T) {
	server := newChatServer(t)
	alice := newChatUser(t, server, nil)
	bob := newChatUser(t, server, nil)

	chatID := seedChat(server.Store(), alice.id, bob.id)
	seedMessages(server.Store(), chatID, bob.id, 3)

	conv := NewConversation(alice.client, chatID)
	if err := conv.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := len(conv.Messages()); got != 3 {
		t.Fatalf("после открытия: %d сообщений", got)
	}

	// Собеседник пишет между опросами
	ts := server.Store().Now().Add(time.Hour)
	server.Store().AppendMessage(models.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  bob.id,
		Text:      "Договорились!",
		CreatedAt: ts,
		UpdatedAt: ts,
	})

	if err := conv.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	msgs := conv.Messages()
	if len(msgs) != 4 || msgs[0].Text != "Договорились!" {
		t.Fatalf("после опроса: %d сообщений, голова %q", len(msgs), msgs[0].Text)
	}
}

func TestSendEmptyTextRejectedLocally(t *testing.T) {
	server := newChatServer(t)
	transport := &countingTransport{inner: server.HTTPClient().Transport}
	alice := newChatUser(t, server, &http.Client{Transport: transport})
	bob := newChatUser(t, server, nil)

	chatID := seedChat(server.Store(), alice.id, bob.id)

	conv := NewConversation(alice.client, chatID)
	if err := conv.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	before := atomic.LoadInt32(&transport.calls)
	_, err := conv.Send(context.Background(), "   \n\t ")
	var validation *api.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("пробельный текст: %v", err)
	}
	if got := atomic.LoadInt32(&transport.calls); got != before {
		t.Errorf("отклонение пустого текста не должно ходить в сеть: %d -> %d", before, got)
	}
	if len(conv.Messages()) != 0 {
		t.Error("буфер не должен меняться при отклонении")
	}
}

func TestSendPrependsServerMessage(t *testing.T) {
	server := newChatServer(t)
	alice := newChatUser(t, server, nil)
	bob := newChatUser(t, server, nil)

	chatID := seedChat(server.Store(), alice.id, bob.id)
	seedMessages(server.Store(), chatID, bob.id, 2)

	conv := NewConversation(alice.client, chatID)
	if err := conv.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	msg, err := conv.Send(context.Background(), "Привет! Игрушка еще доступна?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.ID == uuid.Nil || msg.SenderID != alice.id {
		t.Errorf("серверное представление сообщения: %+v", msg)
	}

	msgs := conv.Messages()
	if len(msgs) != 3 || msgs[0].ID != msg.ID {
		t.Fatalf("сообщение должно встать в голову буфера: %v", msgs)
	}
}

func TestOpenInitializedEvenOnError(t *testing.T) {
	server := newChatServer(t)
	alice := newChatUser(t, server, nil)

	conv := NewConversation(alice.client, uuid.New())
	if err := conv.Open(context.Background()); err == nil {
		t.Fatal("ожидалась ошибка для несуществующего чата")
	}
	if !conv.Initialized() {
		t.Error("первая загрузка завершилась, initialized должен быть true")
	}
	if conv.Err() == nil {
		t.Error("ошибка последнего запроса должна запоминаться")
	}
}

func TestUnreadDropsAfterFetch(t *testing.T) {
	server := newChatServer(t)
	alice := newChatUser(t, server, nil)
	bob := newChatUser(t, server, nil)

	chatID := seedChat(server.Store(), alice.id, bob.id)
	seedMessages(server.Store(), chatID, bob.id, 3)

	dir := NewDirectory(alice.client, alice.sess)
	if err := dir.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := dir.TotalUnread(); got != 3 {
		t.Fatalf("непрочитанных до открытия: %d", got)
	}

	// Выборка страницы помечает чужие сообщения прочитанными на сервере
	conv := NewConversation(alice.client, chatID)
	if err := conv.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := dir.Refresh(context.Background()); err != nil {
		t.Fatalf("повторный Refresh: %v", err)
	}
	if got := dir.TotalUnread(); got != 0 {
		t.Errorf("непрочитанных после открытия: %d", got)
	}
}

func TestDirectoryKeepsSnapshotOnError(t *testing.T) {
	server := newChatServer(t)
	alice := newChatUser(t, server, nil)
	bob := newChatUser(t, server, nil)

	seedChat(server.Store(), alice.id, bob.id)

	dir := NewDirectory(alice.client, alice.sess)
	if err := dir.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(dir.Chats()) != 1 {
		t.Fatalf("чатов: %d", len(dir.Chats()))
	}

	// Истекшая сессия роняет следующий опрос, но снимок остается
	alice.sess.MarkExpired()
	if err := dir.Refresh(context.Background()); err == nil {
		t.Fatal("опрос без токена должен падать")
	}
	if len(dir.Chats()) != 1 {
		t.Errorf("снимок потерян после неудачного опроса: %d", len(dir.Chats()))
	}
	if dir.Err() == nil {
		t.Error("ошибка опроса должна запоминаться")
	}
}

func TestApplyTradeThreadsDeduplicates(t *testing.T) {
	server := newChatServer(t)
	alice := newChatUser(t, server, nil)
	bob := newChatUser(t, server, nil)

	dir := NewDirectory(alice.client, alice.sess)

	thread := trade.ChatThread{
		ChatID:         uuid.New(),
		TradeID:        uuid.New(),
		CounterpartyID: bob.id,
	}

	dir.ApplyTradeThreads([]trade.ChatThread{thread})
	if len(dir.Chats()) != 1 {
		t.Fatalf("проекция обмена не добавилась: %d", len(dir.Chats()))
	}

	// Повторное применение того же обмена не плодит дубликатов
	dir.ApplyTradeThreads([]trade.ChatThread{thread})
	if len(dir.Chats()) != 1 {
		t.Fatalf("дубликат по chat_id: %d", len(dir.Chats()))
	}

	// Тот же обмен под другим chat_id тоже считается известным
	dir.ApplyTradeThreads([]trade.ChatThread{{
		ChatID:         uuid.New(),
		TradeID:        thread.TradeID,
		CounterpartyID: bob.id,
	}})
	if len(dir.Chats()) != 1 {
		t.Errorf("дубликат по trade_id: %d", len(dir.Chats()))
	}

	// Проекция без созданного чата пропускается
	dir.ApplyTradeThreads([]trade.ChatThread{{
		ChatID:         uuid.Nil,
		TradeID:        uuid.New(),
		CounterpartyID: bob.id,
	}})
	if len(dir.Chats()) != 1 {
		t.Errorf("проекция без чата не должна добавляться: %d", len(dir.Chats()))
	}
}

func TestCanOpenTradeChats(t *testing.T) {
	server := newChatServer(t)
	alice := newChatUser(t, server, nil)
	bob := newChatUser(t, server, nil)
	store := server.Store()

	// Обычный чат без привязки к обмену
	plainChat := seedChat(store, alice.id, bob.id)

	// Чат принятого обмена
	acceptedTrade := uuid.New()
	store.CreateTrade(&models.Trade{
		ID:         acceptedTrade,
		SenderID:   bob.id,
		ReceiverID: alice.id,
		Status:     models.TradeStatusAccepted,
	})
	acceptedChat := uuid.New()
	store.CreateChat(&models.Chat{
		ID:         acceptedChat,
		TradeID:    &acceptedTrade,
		SenderID:   bob.id,
		ReceiverID: alice.id,
		IsActive:   true,
	})

	// Чат обмена, который так и не был принят
	pendingTrade := uuid.New()
	store.CreateTrade(&models.Trade{
		ID:         pendingTrade,
		SenderID:   bob.id,
		ReceiverID: alice.id,
		Status:     models.TradeStatusPending,
	})
	pendingChat := uuid.New()
	store.CreateChat(&models.Chat{
		ID:         pendingChat,
		TradeID:    &pendingTrade,
		SenderID:   bob.id,
		ReceiverID: alice.id,
		IsActive:   true,
	})

	dir := NewDirectory(alice.client, alice.sess)
	if err := dir.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if !dir.CanOpen(plainChat) {
		t.Error("обычный чат должен открываться")
	}
	if !dir.CanOpen(acceptedChat) {
		t.Error("чат принятого обмена должен открываться")
	}
	if dir.CanOpen(pendingChat) {
		t.Error("чат непринятого обмена не должен открываться")
	}
	if dir.CanOpen(uuid.New()) {
		t.Error("неизвестный чат не должен открываться")
	}
}
