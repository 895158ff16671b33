package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookModel struct {
	ID               string         `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name             string         `json:"name" gorm:"type:varchar(255);not null"`
	Author           string         `json:"author" gorm:"type:varchar(255)"`
	Category         string         `json:"category" gorm:"type:varchar(100);index"`
	Quantity         int            `json:"quantity" gorm:"not null;default:0;check:chk_books_quantity,quantity >= 0"`
	Rating           float64        `json:"rating" gorm:"default:0"`
	Image            string         `json:"image" gorm:"type:text"`
	ShortDescription string         `json:"shortDescription" gorm:"type:text"`
	Details          map[string]any `json:"details,omitempty" gorm:"type:text;serializer:json"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

func (BookModel) TableName() string { return "books" }

// BeforeCreate assigns the opaque id used by clients.
func (b *BookModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
