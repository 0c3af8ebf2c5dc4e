package models

import (
	"time"

	"github.com/google/uuid"
)

// TradeStatus представляет статус предложения обмена
type TradeStatus string

// Возможные статусы предложения обмена
const (
	TradeStatusPending  TradeStatus = "pending"
	TradeStatusAccepted TradeStatus = "accepted"
	TradeStatusRejected TradeStatus = "rejected"
	TradeStatusCanceled TradeStatus = "canceled"
)

// Valid проверяет, что статус входит в перечень допустимых
func (s TradeStatus) Valid() bool {
	switch s {
	case TradeStatusPending, TradeStatusAccepted, TradeStatusRejected, TradeStatusCanceled:
		return true
	}
	return false
}

// IsTerminal сообщает, является ли статус конечным.
// Из конечного статуса переходы запрещены.
func (s TradeStatus) IsTerminal() bool {
	return s == TradeStatusAccepted || s == TradeStatusRejected || s == TradeStatusCanceled
}

// CanTransitionTo проверяет допустимость перехода статуса.
// Единственные допустимые переходы: pending -> accepted/rejected/canceled.
func (s TradeStatus) CanTransitionTo(to TradeStatus) bool {
	return s == TradeStatusPending && to.IsTerminal()
}

// Trade представляет предложение об обмене
type Trade struct {
	ID                uuid.UUID   `json:"id"`
	SenderID          uuid.UUID   `json:"sender_id"`
	ReceiverID        uuid.UUID   `json:"receiver_id"`
	SenderListingID   uuid.UUID   `json:"sender_listing_id"`
	ReceiverListingID uuid.UUID   `json:"receiver_listing_id"`
	Status            TradeStatus `json:"status"`
	IsSale            bool        `json:"is_sale,omitempty"`
	Message           string      `json:"message"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`

	// Дополнительные поля для API
	SenderListing   *Listing  `json:"sender_listing,omitempty"`
	ReceiverListing *Listing  `json:"receiver_listing,omitempty"`
	Sender          *User     `json:"sender,omitempty"`
	Receiver        *User     `json:"receiver,omitempty"`
	ChatID          uuid.UUID `json:"chat_id,omitempty"` // ID связанного чата
}

// Counterparty возвращает второго участника обмена относительно userID
func (t *Trade) Counterparty(userID uuid.UUID) (uuid.UUID, *User) {
	if t.SenderID == userID {
		return t.ReceiverID, t.Receiver
	}
	return t.SenderID, t.Sender
}
