package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Item is a catalog entry. AvailableCount is the stock ledger balance and is
// only mutated through atomic increments and conditional decrements.
type Item struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Name           string             `gorm:"column:name;not null"`
	Description    *string            `gorm:"column:description"`
	Price          decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	AvailableCount int                `gorm:"column:available_count;not null;default:0;check:available_count >= 0"`
	Category       enums.ItemCategory `gorm:"column:category;not null"`
	ImageURL       *string            `gorm:"column:image_url"`
	CreatorID      uuid.UUID          `gorm:"column:creator_id;type:uuid;not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
