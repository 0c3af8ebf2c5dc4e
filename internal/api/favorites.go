package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/rajivgeraev/flippy-client/internal/models"
)

// FavoritesPage представляет страницу избранных объявлений
type FavoritesPage struct {
	Favorites []models.Favorite `json:"favorites"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// CheckFavoriteResult представляет результат проверки избранного
type CheckFavoriteResult struct {
	IsFavorite bool      `json:"is_favorite"`
	FavoriteID uuid.UUID `json:"favorite_id,omitempty"`
}

// GetFavorites возвращает страницу избранных объявлений пользователя
func (c *Client) GetFavorites(ctx context.Context, offset int) (*FavoritesPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	var out FavoritesPage
	if err := c.get(ctx, "/api/favorites", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddFavorite добавляет объявление в избранное
func (c *Client) AddFavorite(ctx context.Context, listingID uuid.UUID) error {
	body := map[string]string{"listing_id": listingID.String()}
	return c.post(ctx, "/api/favorites", body, nil)
}

// RemoveFavorite удаляет объявление из избранного
func (c *Client) RemoveFavorite(ctx context.Context, listingID uuid.UUID) error {
	return c.delete(ctx, "/api/favorites/"+listingID.String(), nil)
}

// CheckFavorite проверяет, находится ли объявление в избранном
func (c *Client) CheckFavorite(ctx context.Context, listingID uuid.UUID) (*CheckFavoriteResult, error) {
	var out CheckFavoriteResult
	if err := c.get(ctx, "/api/favorites/"+listingID.String()+"/check", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
