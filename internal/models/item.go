package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы предметов.
const (
	ItemKindLost  = "Lost"
	ItemKindFound = "Found"
)

// Статусы предмета. Набор валидируется, порядок переходов не навязывается:
// владелец или админ может выставить любой из статусов.
const (
	ItemStatusActive   = "active"
	ItemStatusFound    = "found"
	ItemStatusReturned = "returned"
	ItemStatusClosed   = "closed"
)

// Item описывает объявление о потерянном или найденном предмете.
// UserID равен nil, когда запись создана администратором без привязки.
type Item struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Kind         string     `db:"kind" json:"kind"`
	Name         string     `db:"name" json:"name"`
	Category     string     `db:"category" json:"category"`
	Description  string     `db:"description" json:"description"`
	Location     string     `db:"location" json:"location"`
	DateReported string     `db:"date_reported" json:"date_reported"`
	ContactEmail string     `db:"contact_email" json:"contact_email"`
	ContactPhone string     `db:"contact_phone" json:"contact_phone"`
	ImagePath    *string    `db:"image_path" json:"image_path,omitempty"`
	UserID       *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Status       string     `db:"status" json:"status"`
	SubmittedAt  time.Time  `db:"submitted_at" json:"submitted_at"`
}

// ValidItemKind проверяет принадлежность типа допустимому набору.
func ValidItemKind(kind string) bool {
	return kind == ItemKindLost || kind == ItemKindFound
}

// ValidItemStatus проверяет принадлежность статуса допустимому набору.
func ValidItemStatus(status string) bool {
	switch status {
	case ItemStatusActive, ItemStatusFound, ItemStatusReturned, ItemStatusClosed:
		return true
	}
	return false
}
