package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
)

func TestDoWithoutTokenSkipsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := New(srv.URL)

	_, err := client.GetChats(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("ожидалась AuthError, получили %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("запрос без токена не должен уходить в сеть, вызовов: %d", calls)
	}
}

func TestDoUnauthorizedFiresHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	expired := false
	client := New(srv.URL,
		WithTokenSource(func() string { return "stale-token" }),
		WithUnauthorizedHandler(func() { expired = true }),
	)

	_, err := client.GetChats(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("ожидалась AuthError, получили %v", err)
	}
	if !expired {
		t.Error("обработчик 401 не был вызван")
	}
}

func TestNormalizeForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "Только получатель предложения может его принять или отклонить"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, WithTokenSource(func() string { return "token" }))

	_, err := client.GetChats(context.Background())

	var forbidden *ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("ожидалась ForbiddenError, получили %v", err)
	}
	if forbidden.Msg != "Только получатель предложения может его принять или отклонить" {
		t.Errorf("текст сервера должен передаваться дословно, получили %q", forbidden.Msg)
	}
}

func TestNormalizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error": "Такое предложение обмена уже существует"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, WithTokenSource(func() string { return "token" }))

	err := client.AddFavorite(context.Background(), uuid.New())

	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("ожидалась ServerError, получили %v", err)
	}
	if srvErr.StatusCode != http.StatusConflict {
		t.Errorf("код статуса: %d", srvErr.StatusCode)
	}
	if srvErr.Message != "Такое предложение обмена уже существует" {
		t.Errorf("текст сервера должен передаваться дословно, получили %q", srvErr.Message)
	}
}

func TestUpdateTradeStatusMapsBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "Нельзя изменить статус предложения, которое уже не находится в ожидании"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, WithTokenSource(func() string { return "token" }))

	_, err := client.UpdateTradeStatus(context.Background(), uuid.New(), "accepted")

	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("ожидалась InvalidTransitionError, получили %v", err)
	}
}

func TestNetworkErrorWrapsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // закрываем заранее, чтобы получить транспортную ошибку

	client := New(srv.URL, WithTokenSource(func() string { return "token" }))

	_, err := client.GetChats(context.Background())

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("ожидалась NetworkError, получили %v", err)
	}
	if netErr.Unwrap() == nil {
		t.Error("NetworkError должна оборачивать исходную ошибку")
	}
}

func TestBearerTokenAttached(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"chats": [], "count": 0}`))
	}))
	defer srv.Close()

	client := New(srv.URL, WithTokenSource(func() string { return "secret-token" }))

	if _, err := client.GetChats(context.Background()); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got != "Bearer secret-token" {
		t.Errorf("заголовок Authorization: %q", got)
	}
}
