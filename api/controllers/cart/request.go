package cart

import "github.com/google/uuid"

type addItemRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"gte=1,lte=1000"`
}

// Quantity zero or below removes the line.
type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,lte=1000"`
}
