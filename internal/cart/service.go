package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service exposes the cart store operations. Concurrent mutations of the
// same cart are last-write-wins.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo  CartRepository
	items itemLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, items itemLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if items == nil {
		return nil, fmt.Errorf("item loader required")
	}
	return &service{repo: repo, items: items}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewCartDTO(cart), nil
}

func (s *service) AddItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	line, err := s.findLine(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		line = &models.CartItem{CartID: cart.ID, ItemID: itemID}
	}
	requested := line.Quantity + quantity
	if err := checkStock(item, requested); err != nil {
		return nil, err
	}

	line.Quantity = requested
	if err := s.repo.SaveLine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save cart line")
	}
	return s.reload(ctx, userID)
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	cart, err := s.findCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	line, err := s.findLine(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	if err := checkStock(item, quantity); err != nil {
		return nil, err
	}

	line.Quantity = quantity
	if err := s.repo.SaveLine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save cart line")
	}
	return s.reload(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	cart, err := s.findCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteLine(ctx, cart.ID, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart line")
	}
	return s.reload(ctx, userID)
}

func (s *service) reload(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.findCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewCartDTO(cart), nil
}

func (s *service) findCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	return cart, nil
}

func (s *service) getOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}

	created, err := s.repo.Create(ctx, &models.Cart{UserID: userID})
	if err != nil {
		// Another request created the cart first.
		if db.IsUniqueViolation(err, "") {
			return s.findCart(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create cart")
	}
	return created, nil
}

func (s *service) findLine(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	line, err := s.repo.FindLine(ctx, cartID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart line")
	}
	return line, nil
}

func (s *service) loadItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load item")
	}
	return item, nil
}

func checkStock(item *models.Item, requested int) error {
	return checkout.ValidateStock([]checkout.StockLine{{
		ItemID:    item.ID,
		Name:      item.Name,
		Requested: requested,
		Available: item.AvailableCount,
	}})
}
