package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartDTO is the cart payload returned to clients with current prices.
type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	Items     []CartLineDTO   `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// CartLineDTO is one cart line priced from the catalog.
type CartLineDTO struct {
	ItemID         uuid.UUID       `json:"item_id"`
	Name           string          `json:"name"`
	ImageURL       *string         `json:"image_url,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	LineTotal      decimal.Decimal `json:"line_total"`
	AvailableCount int             `json:"available_count"`
}

// NewCartDTO builds the client view. Lines whose item no longer exists are
// skipped.
func NewCartDTO(cart *models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:    cart.ID,
		Items: make([]CartLineDTO, 0, len(cart.Items)),
		Total: decimal.Zero,
	}
	for _, line := range cart.Items {
		if line.Item == nil {
			continue
		}
		lineTotal := checkout.LineTotal(line.Item.Price, line.Quantity)
		dto.Items = append(dto.Items, CartLineDTO{
			ItemID:         line.ItemID,
			Name:           line.Item.Name,
			ImageURL:       line.Item.ImageURL,
			Price:          line.Item.Price,
			Quantity:       line.Quantity,
			LineTotal:      lineTotal,
			AvailableCount: line.Item.AvailableCount,
		})
		dto.ItemCount += line.Quantity
		dto.Total = dto.Total.Add(lineTotal)
	}
	return dto
}
