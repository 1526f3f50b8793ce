package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart and
// checkout services.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindLine(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	SaveLine(ctx context.Context, line *models.CartItem) error
	DeleteLine(ctx context.Context, cartID, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type itemLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
}
