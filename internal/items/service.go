package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Actor identifies the authenticated caller of a catalog mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// CreateItemInput holds the validated payload to list an item.
type CreateItemInput struct {
	Name           string
	Description    *string
	Price          decimal.Decimal
	AvailableCount int
	Category       enums.ItemCategory
	ImageURL       *string
}

// UpdateItemInput carries a partial edit. Nil fields are left unchanged.
// Stock is not editable here; it moves through AdjustStock only.
type UpdateItemInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *enums.ItemCategory
	ImageURL    *string
}

// ListQuery pages the catalog, optionally narrowed to one creator.
type ListQuery struct {
	Limit     int
	Offset    int
	CreatorID *uuid.UUID
}

// Service exposes catalog reads and the mutations sellers make.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateItemInput) (*ItemDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	List(ctx context.Context, query ListQuery) (*types.PageResult[ItemDTO], error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	AdjustStock(ctx context.Context, actor Actor, id uuid.UUID, delta int) (*ItemDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs an item service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateItemInput) (*ItemDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	if !actor.Role.CanSell() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers can list items")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", input.Category))
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	if input.AvailableCount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available_count must be non-negative")
	}

	item := &models.Item{
		Name:           name,
		Description:    input.Description,
		Price:          input.Price,
		AvailableCount: input.AvailableCount,
		Category:       input.Category,
		ImageURL:       input.ImageURL,
		CreatorID:      actor.UserID,
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert item")
	}
	return NewItemDTO(created), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewItemDTO(item), nil
}

func (s *service) List(ctx context.Context, query ListQuery) (*types.PageResult[ItemDTO], error) {
	limit := pagination.NormalizeLimit(query.Limit)
	offset := pagination.NormalizeOffset(query.Offset)
	rows, total, err := s.repo.List(ctx, ListFilter{CreatorID: query.CreatorID}, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list items")
	}
	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewItemDTO(&rows[i]))
	}
	return &types.PageResult[ItemDTO]{
		Items:  out,
		Limit:  limit,
		Offset: offset,
		Total:  total,
	}, nil
}

func (s *service) Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, item) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the item creator can edit it")
	}

	changes := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		changes["name"] = name
	}
	if input.Description != nil {
		changes["description"] = input.Description
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return nil, err
		}
		changes["price"] = *input.Price
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", *input.Category))
		}
		changes["category"] = *input.Category
	}
	if input.ImageURL != nil {
		changes["image_url"] = input.ImageURL
	}
	if len(changes) == 0 {
		return NewItemDTO(item), nil
	}

	ok, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		if db.IsCheckViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "item rejected by catalog constraints")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update item")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	item, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, item) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the item creator can delete it")
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete item")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return nil
}

func (s *service) AdjustStock(ctx context.Context, actor Actor, id uuid.UUID, delta int) (*ItemDTO, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, item) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the item creator can adjust stock")
	}

	ok, err := s.repo.IncrementStock(ctx, id, delta)
	if err != nil && !db.IsCheckViolation(err, db.ItemsAvailableCountCheck) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: adjust stock")
	}
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot go below zero").
			WithDetails(map[string]any{"available_count": item.AvailableCount, "delta": delta})
	}
	return s.Get(ctx, id)
}

func canManage(actor Actor, item *models.Item) bool {
	return actor.Role == enums.UserRoleAdmin || (actor.UserID != uuid.Nil && item.CreatorID == actor.UserID)
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if !price.Equal(price.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "price supports at most two decimal places")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load item")
	}
	return item, nil
}
