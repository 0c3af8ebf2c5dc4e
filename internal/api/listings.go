package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/rajivgeraev/flippy-client/internal/models"
)

// ListingsPage представляет страницу объявлений с данными пагинации
type ListingsPage struct {
	Listings []models.Listing `json:"listings"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// RequestImage представляет изображение в запросе создания объявления
type RequestImage struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	FileName string `json:"file_name,omitempty"`
	IsMain   bool   `json:"is_main"`
}

// ListingRequest представляет тело запроса создания/обновления объявления
type ListingRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Categories  []string       `json:"categories"`
	Condition   string         `json:"condition"`
	AllowTrade  bool           `json:"allow_trade"`
	Status      string         `json:"status"`
	Images      []RequestImage `json:"images"`
}

// GetPublicListings возвращает страницу публичных активных объявлений
func (c *Client) GetPublicListings(ctx context.Context, offset int) (*ListingsPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	var out ListingsPage
	if err := c.getPublic(ctx, "/api/listings", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMyListings возвращает страницу объявлений текущего пользователя
func (c *Client) GetMyListings(ctx context.Context, status string, offset int) (*ListingsPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	if status != "" {
		q.Set("status", status)
	}
	var out ListingsPage
	if err := c.get(ctx, "/api/listings/my", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetListing возвращает одно объявление по ID
func (c *Client) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var out struct {
		Listing models.Listing `json:"listing"`
	}
	if err := c.get(ctx, "/api/listings/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out.Listing, nil
}

// CreateListing создает новое объявление и возвращает его ID
func (c *Client) CreateListing(ctx context.Context, req ListingRequest) (uuid.UUID, error) {
	var out struct {
		Success   bool      `json:"success"`
		ListingID uuid.UUID `json:"listing_id"`
	}
	if err := c.post(ctx, "/api/listings/create", req, &out); err != nil {
		return uuid.Nil, err
	}
	return out.ListingID, nil
}

// UpdateListing обновляет существующее объявление
func (c *Client) UpdateListing(ctx context.Context, id uuid.UUID, req ListingRequest) error {
	return c.put(ctx, "/api/listings/"+id.String(), req, nil)
}

// DeleteListing удаляет объявление
func (c *Client) DeleteListing(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/api/listings/"+id.String(), nil)
}

// GetCategories возвращает справочник категорий
func (c *Client) GetCategories(ctx context.Context) ([]models.Category, error) {
	var out struct {
		Categories []models.Category `json:"categories"`
	}
	if err := c.getPublic(ctx, "/api/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// UploadParams представляет подписанные параметры загрузки изображений
type UploadParams struct {
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	ListingID string `json:"listing_id"`
}

// GetUploadParams возвращает подписанные параметры для прямой загрузки в CDN
func (c *Client) GetUploadParams(ctx context.Context, listingID string) (*UploadParams, error) {
	q := url.Values{}
	if listingID != "" {
		q.Set("listing_id", listingID)
	}
	var out UploadParams
	if err := c.get(ctx, "/api/upload/params", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
