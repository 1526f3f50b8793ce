package purchases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes a user's purchase history.
type Service interface {
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error)
	Get(ctx context.Context, userID, purchaseID uuid.UUID) (*PurchaseDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a purchase history service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListByUser(ctx, userID, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list purchases")
	}

	page := &HistoryPage{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{At: last.PurchasedAt, ID: last.ID})
	}
	page.Purchases = NewPurchaseDTOs(rows)
	return page, nil
}

func (s *service) Get(ctx context.Context, userID, purchaseID uuid.UUID) (*PurchaseDTO, error) {
	record, err := s.repo.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load purchase")
	}
	if record.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "purchase belongs to another user")
	}
	dto := NewPurchaseDTO(record)
	return &dto, nil
}
