package feed

import (
	"context"
	"sync"
)

// defaultPageLimit соответствует серверному лимиту страницы
const defaultPageLimit = 20

// Page представляет одну страницу элементов с данными пагинации
type Page[T any] struct {
	Items []T
	Total int
	Limit int
}

// FetchFunc загружает страницу элементов, начиная с указанного смещения
type FetchFunc[T any] func(ctx context.Context, offset int) (Page[T], error)

// Feed — модель ленты с бесконечной прокруткой поверх смещений.
// Смена охвата выборки выполняется через Reload: накопленные элементы
// отбрасываются до повторной загрузки и никогда не сливаются между
// разными охватами.
type Feed[T any] struct {
	mu    sync.Mutex
	fetch FetchFunc[T]

	items   []T
	offset  int
	total   int
	limit   int
	hasMore bool
	loading bool
}

// New создает ленту поверх функции выборки
func New[T any](fetch FetchFunc[T]) *Feed[T] {
	return &Feed[T]{fetch: fetch, limit: defaultPageLimit}
}

// Reload отбрасывает накопленные элементы и загружает первую страницу
func (f *Feed[T]) Reload(ctx context.Context) error {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return nil
	}
	f.loading = true
	f.items = nil
	f.offset = 0
	f.hasMore = false
	f.mu.Unlock()

	page, err := f.fetch(ctx, 0)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false

	if err != nil {
		return err
	}

	f.applyLocked(page, true)
	return nil
}

// LoadMore подгружает следующую страницу.
// Не выполняется, пока предыдущая выборка в полете или когда
// offset+limit уже покрывает total.
func (f *Feed[T]) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	if f.loading || !f.hasMore {
		f.mu.Unlock()
		return nil
	}
	f.loading = true
	nextOffset := f.offset + f.limit
	f.mu.Unlock()

	page, err := f.fetch(ctx, nextOffset)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false

	if err != nil {
		return err
	}

	f.offset = nextOffset
	f.applyLocked(page, false)
	return nil
}

// applyLocked применяет страницу к состоянию ленты
func (f *Feed[T]) applyLocked(page Page[T], replace bool) {
	if replace {
		f.items = page.Items
	} else {
		f.items = append(f.items, page.Items...)
	}
	f.total = page.Total
	if page.Limit > 0 {
		f.limit = page.Limit
	}
	f.hasMore = f.offset+f.limit < f.total
}

// Items возвращает копию накопленных элементов
func (f *Feed[T]) Items() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]T, len(f.items))
	copy(out, f.items)
	return out
}

// Total возвращает серверное общее количество элементов
func (f *Feed[T]) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// HasMore сообщает, остались ли незагруженные страницы
func (f *Feed[T]) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}
