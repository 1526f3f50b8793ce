package items

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists catalog items and owns every write to available_count.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an item repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new item.
func (r *Repository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// FindByID loads a single item.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDs loads the requested items keyed by id. Missing ids are absent
// from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Item, error) {
	out := make(map[uuid.UUID]models.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Item
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// ListFilter narrows List. The zero value matches every item.
type ListFilter struct {
	CreatorID *uuid.UUID
}

func (f ListFilter) apply(q *gorm.DB) *gorm.DB {
	if f.CreatorID != nil {
		q = q.Where("creator_id = ?", *f.CreatorID)
	}
	return q
}

// List returns a page of items, newest first, plus the total row count for
// the filter.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]models.Item, int64, error) {
	var total int64
	if err := filter.apply(r.db.WithContext(ctx).Model(&models.Item{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Item
	if err := filter.apply(r.db.WithContext(ctx)).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update applies column changes to one item. It reports false when the item
// does not exist.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, changes map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Updates(changes)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes an item together with any cart lines that reference it.
// Purchase records keep their snapshot and are untouched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Item{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected == 1
		return nil
	})
	return deleted, err
}

// IncrementStock atomically adds delta (which may be negative) to the stock
// balance. It reports false when the item is missing or the result would go
// below zero.
func (r *Repository) IncrementStock(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND available_count + ? >= 0", id, delta).
		Update("available_count", gorm.Expr("available_count + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DecrementStockIfAvailable removes qty units only when at least qty are on
// hand. It reports false when the guard rejected the write.
func (r *Repository) DecrementStockIfAvailable(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND available_count >= ?", id, qty).
		Update("available_count", gorm.Expr("available_count - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
