package purchases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// PurchaseDTO is the purchase record payload returned to clients.
type PurchaseDTO struct {
	ID              uuid.UUID             `json:"id"`
	ItemID          uuid.UUID             `json:"item_id"`
	ItemName        string                `json:"item_name"`
	Quantity        int                   `json:"quantity"`
	UnitPrice       decimal.Decimal       `json:"unit_price"`
	TotalPrice      decimal.Decimal       `json:"total_price"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	PaymentRef      string                `json:"payment_ref"`
	PaymentMethod   string                `json:"payment_method"`
	PurchasedAt     time.Time             `json:"purchased_at"`
}

// HistoryPage is a cursor-paginated slice of a user's purchases.
type HistoryPage struct {
	Purchases  []PurchaseDTO `json:"purchases"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// NewPurchaseDTO builds a DTO from the persisted model.
func NewPurchaseDTO(record *models.PurchaseRecord) PurchaseDTO {
	return PurchaseDTO{
		ID:              record.ID,
		ItemID:          record.ItemID,
		ItemName:        record.ItemName,
		Quantity:        record.Quantity,
		UnitPrice:       record.UnitPrice,
		TotalPrice:      record.TotalPrice,
		ShippingAddress: record.ShippingAddress,
		PaymentRef:      record.PaymentRef,
		PaymentMethod:   string(record.PaymentMethod),
		PurchasedAt:     record.PurchasedAt,
	}
}

// NewPurchaseDTOs converts a slice of records.
func NewPurchaseDTOs(records []models.PurchaseRecord) []PurchaseDTO {
	out := make([]PurchaseDTO, 0, len(records))
	for i := range records {
		out = append(out, NewPurchaseDTO(&records[i]))
	}
	return out
}
