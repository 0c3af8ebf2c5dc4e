package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/rajivgeraev/flippy-client/internal/api"
	"github.com/rajivgeraev/flippy-client/internal/models"
	"github.com/rajivgeraev/flippy-client/internal/session"
)

// favoriteTTL — срок годности закэшированного статуса избранного
const favoriteTTL = 5 * time.Minute

// favoriteEntry хранит статус избранного на момент проверки
type favoriteEntry struct {
	isFavorite bool
	favoriteID uuid.UUID
	checkedAt  time.Time
}

// FavoriteCache кэширует статусы избранного по объявлениям.
// Параллельные проверки одного объявления сливаются в один сетевой
// запрос; записи живут пять минут, после чего статус перечитывается.
// Переключение избранного пишется в кэш оптимистично и откатывается,
// если сервер отверг изменение.
type FavoriteCache struct {
	client *api.Client

	mu      sync.Mutex
	entries map[uuid.UUID]favoriteEntry
	gen     int

	group singleflight.Group
	now   func() time.Time
}

// NewFavoriteCache создает новый кэш статусов избранного
func NewFavoriteCache(client *api.Client) *FavoriteCache {
	return &FavoriteCache{
		client:  client,
		entries: make(map[uuid.UUID]favoriteEntry),
		now:     time.Now,
	}
}

// BindSession сбрасывает кэш при любой смене личности пользователя.
// Статусы избранного принадлежат конкретному пользователю и не должны
// пережить вход, выход или смену аккаунта.
func (f *FavoriteCache) BindSession(sess *session.Session) {
	sess.OnIdentityChange(func(models.User) {
		f.Flush()
	})
}

// IsFavorite возвращает статус избранного для объявления.
// Свежая запись кэша отдается без сетевого вызова; параллельные промахи
// по одному объявлению ждут один общий запрос.
func (f *FavoriteCache) IsFavorite(ctx context.Context, listingID uuid.UUID) (bool, error) {
	f.mu.Lock()
	if e, ok := f.entries[listingID]; ok && f.now().Sub(e.checkedAt) < favoriteTTL {
		f.mu.Unlock()
		return e.isFavorite, nil
	}
	gen := f.gen
	f.mu.Unlock()

	v, err, _ := f.group.Do(fmt.Sprintf("%d:%s", gen, listingID), func() (interface{}, error) {
		res, err := f.client.CheckFavorite(ctx, listingID)
		if err != nil {
			return nil, err
		}

		entry := favoriteEntry{
			isFavorite: res.IsFavorite,
			favoriteID: res.FavoriteID,
			checkedAt:  f.now(),
		}

		f.mu.Lock()
		if f.gen == gen {
			f.entries[listingID] = entry
		}
		f.mu.Unlock()

		return res.IsFavorite, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Toggle переключает статус избранного для объявления.
// Кэш обновляется до сетевого вызова; при ошибке сервера прежняя
// запись восстанавливается, чтобы кнопка не осталась в ложном состоянии.
func (f *FavoriteCache) Toggle(ctx context.Context, listingID uuid.UUID) (bool, error) {
	current, err := f.IsFavorite(ctx, listingID)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	prev, hadPrev := f.entries[listingID]
	f.entries[listingID] = favoriteEntry{isFavorite: !current, checkedAt: f.now()}
	f.mu.Unlock()

	rollback := func() {
		f.mu.Lock()
		if hadPrev {
			f.entries[listingID] = prev
		} else {
			delete(f.entries, listingID)
		}
		f.mu.Unlock()
	}

	if current {
		if err := f.client.RemoveFavorite(ctx, listingID); err != nil {
			rollback()
			return false, err
		}
		return false, nil
	}

	if err := f.client.AddFavorite(ctx, listingID); err != nil {
		rollback()
		return false, err
	}
	return true, nil
}

// Put записывает заведомо известный статус без сетевого вызова.
// Используется, когда страница избранного уже раскрыла статусы элементов.
func (f *FavoriteCache) Put(listingID, favoriteID uuid.UUID, isFavorite bool) {
	f.mu.Lock()
	f.entries[listingID] = favoriteEntry{
		isFavorite: isFavorite,
		favoriteID: favoriteID,
		checkedAt:  f.now(),
	}
	f.mu.Unlock()
}

// Flush сбрасывает все записи кэша
func (f *FavoriteCache) Flush() {
	f.mu.Lock()
	f.entries = make(map[uuid.UUID]favoriteEntry)
	f.gen++
	f.mu.Unlock()
}
