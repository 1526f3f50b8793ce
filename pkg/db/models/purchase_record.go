package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// PurchaseRecord is the immutable audit row written once per cart line at
// commit time.
type PurchaseRecord struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	ItemID          uuid.UUID             `gorm:"column:item_id;type:uuid;not null"`
	ItemName        string                `gorm:"column:item_name;not null"`
	Quantity        int                   `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice      decimal.Decimal       `gorm:"column:total_price;type:numeric(12,2);not null"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	PaymentRef      string                `gorm:"column:payment_ref;not null;index"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	PurchasedAt     time.Time             `gorm:"column:purchased_at;not null"`
}

func (p *PurchaseRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
