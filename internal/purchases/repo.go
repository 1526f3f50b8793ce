package purchases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists purchase records. Records are append-only: there is
// no update or delete path.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a purchase repository bound to the provided DB.
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

// CreateBatch bulk-inserts the records of one checkout.
func (r *Repository) CreateBatch(ctx context.Context, records []models.PurchaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

// FindByID loads a single record.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRecord, error) {
	var record models.PurchaseRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByPaymentRef returns every record written for a payment reference.
func (r *Repository) ListByPaymentRef(ctx context.Context, paymentRef string) ([]models.PurchaseRecord, error) {
	var rows []models.PurchaseRecord
	if err := r.db.WithContext(ctx).
		Where("payment_ref = ?", paymentRef).
		Order("purchased_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByUser returns up to limit records older than the cursor, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.PurchaseRecord, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(purchased_at < ?) OR (purchased_at = ? AND id < ?)", cursor.At, cursor.At, cursor.ID)
	}
	var rows []models.PurchaseRecord
	if err := query.
		Order("purchased_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
