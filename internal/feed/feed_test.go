package feed

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestReloadAndPagination(t *testing.T) {
	pages := map[int]Page[int]{
		0: {Items: []int{1, 2}, Total: 5, Limit: 2},
		2: {Items: []int{3, 4}, Total: 5, Limit: 2},
		4: {Items: []int{5}, Total: 5, Limit: 2},
	}

	f := New(func(ctx context.Context, offset int) (Page[int], error) {
		page, ok := pages[offset]
		if !ok {
			return Page[int]{}, fmt.Errorf("неожиданное смещение %d", offset)
		}
		return page, nil
	})

	if err := f.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(f.Items()) != 2 || !f.HasMore() {
		t.Fatalf("после первой страницы: %d элементов, hasMore=%v", len(f.Items()), f.HasMore())
	}

	if err := f.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if err := f.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}

	items := f.Items()
	if len(items) != 5 {
		t.Fatalf("накоплено %d элементов, ожидалось 5", len(items))
	}
	for i, v := range items {
		if v != i+1 {
			t.Errorf("элемент %d: %d", i, v)
		}
	}
	if f.HasMore() {
		t.Error("после последней страницы hasMore должен быть false")
	}

	// Исчерпанная лента не делает новых запросов
	if err := f.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore после конца: %v", err)
	}
}

func TestLoadMoreWhileInFlight(t *testing.T) {
	var calls int32
	release := make(chan struct{})

	f := New(func(ctx context.Context, offset int) (Page[int], error) {
		n := atomic.AddInt32(&calls, 1)
		if n > 1 {
			<-release
		}
		return Page[int]{Items: []int{1, 2}, Total: 10, Limit: 2}, nil
	})

	if err := f.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	done := make(chan struct{})
	go func() {
		f.LoadMore(context.Background())
		close(done)
	}()

	// Даем первой подгрузке встать на блокировку
	time.Sleep(20 * time.Millisecond)

	// Повторный вызов во время полета — no-op без сетевого запроса
	if err := f.LoadMore(context.Background()); err != nil {
		t.Fatalf("параллельный LoadMore: %v", err)
	}

	close(release)
	<-done

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("ожидалось 2 запроса (Reload + LoadMore), получили %d", got)
	}
}

func TestReloadDiscardsAccumulated(t *testing.T) {
	generation := int32(1)
	f := New(func(ctx context.Context, offset int) (Page[int], error) {
		gen := int(atomic.LoadInt32(&generation))
		return Page[int]{Items: []int{gen*100 + offset}, Total: 3, Limit: 1}, nil
	})

	if err := f.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if err := f.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if len(f.Items()) != 2 {
		t.Fatalf("накоплено %d элементов", len(f.Items()))
	}

	// Смена охвата: накопленное отбрасывается, смещение обнуляется
	atomic.StoreInt32(&generation, 2)
	if err := f.Reload(context.Background()); err != nil {
		t.Fatalf("повторный Reload: %v", err)
	}

	items := f.Items()
	if len(items) != 1 || items[0] != 200 {
		t.Errorf("после смены охвата: %v", items)
	}
}
