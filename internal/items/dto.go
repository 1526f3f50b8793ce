package items

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ItemDTO is the catalog payload returned to clients.
type ItemDTO struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	Price          decimal.Decimal `json:"price"`
	AvailableCount int             `json:"available_count"`
	Category       string          `json:"category"`
	ImageURL       *string         `json:"image_url,omitempty"`
	CreatorID      uuid.UUID       `json:"creator_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewItemDTO builds a DTO from the persisted model.
func NewItemDTO(item *models.Item) *ItemDTO {
	return &ItemDTO{
		ID:             item.ID,
		Name:           item.Name,
		Description:    item.Description,
		Price:          item.Price,
		AvailableCount: item.AvailableCount,
		Category:       string(item.Category),
		ImageURL:       item.ImageURL,
		CreatorID:      item.CreatorID,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}
