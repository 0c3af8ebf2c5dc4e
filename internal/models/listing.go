package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing представляет объявление в системе
type Listing struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Categories  []string       `json:"categories"`
	Condition   string         `json:"condition"`
	AllowTrade  bool           `json:"allow_trade"`
	Status      string         `json:"status"` // active, draft
	Images      []ListingImage `json:"images"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// Дополнительные поля для API
	User *User `json:"user,omitempty"`
}

// MainImage возвращает главное изображение объявления, если оно есть
func (l *Listing) MainImage() *ListingImage {
	for i := range l.Images {
		if l.Images[i].IsMain {
			return &l.Images[i]
		}
	}
	if len(l.Images) > 0 {
		return &l.Images[0]
	}
	return nil
}

// ValidConditions перечисляет допустимые состояния игрушки
var ValidConditions = map[string]bool{
	"new": true, "excellent": true, "good": true,
	"used": true, "needs_repair": true, "damaged": true,
}

// ListingImage представляет изображение объявления
type ListingImage struct {
	ID         uuid.UUID `json:"id"`
	ListingID  uuid.UUID `json:"listing_id"`
	URL        string    `json:"url"`
	PreviewURL string    `json:"preview_url,omitempty"`
	PublicID   string    `json:"public_id"`
	FileName   string    `json:"file_name,omitempty"`
	IsMain     bool      `json:"is_main"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}
