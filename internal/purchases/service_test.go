package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func record(userID uuid.UUID, ref string, at time.Time) models.PurchaseRecord {
	return models.PurchaseRecord{
		UserID:     userID,
		ItemID:     uuid.New(),
		ItemName:   "Notebook",
		Quantity:   2,
		UnitPrice:  decimal.NewFromInt(60),
		TotalPrice: decimal.NewFromInt(120),
		ShippingAddress: types.ShippingAddress{
			FullName:   "Ravi K",
			Phone:      "9000000001",
			Line1:      "4 Park St",
			City:       "Kolkata",
			State:      "WB",
			PostalCode: "700016",
			Country:    "IN",
		},
		PaymentRef:    ref,
		PaymentMethod: enums.PaymentMethodGateway,
		PurchasedAt:   at,
	}
}

func TestCreateBatchAndListByPaymentRef(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	userID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateBatch(ctx, []models.PurchaseRecord{
		record(userID, "pay_1", now),
		record(userID, "pay_1", now),
		record(userID, "pay_2", now),
	}))
	require.NoError(t, repo.CreateBatch(ctx, nil))

	rows, err := repo.ListByPaymentRef(ctx, "pay_1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Kolkata", rows[0].ShippingAddress.City)
	assert.True(t, rows[0].TotalPrice.Equal(decimal.NewFromInt(120)))
}

func TestHistoryPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)

	userID := uuid.New()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var batch []models.PurchaseRecord
	for i := 0; i < 5; i++ {
		batch = append(batch, record(userID, "pay_h", base.Add(time.Duration(i)*time.Minute)))
	}
	batch = append(batch, record(uuid.New(), "pay_other", base))
	require.NoError(t, repo.CreateBatch(ctx, batch))

	first, err := svc.History(ctx, userID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Purchases, 3)
	require.NotEmpty(t, first.NextCursor)
	assert.True(t, first.Purchases[0].PurchasedAt.Equal(base.Add(4*time.Minute)))

	second, err := svc.History(ctx, userID, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Purchases, 2)
	assert.Empty(t, second.NextCursor)
	assert.True(t, second.Purchases[1].PurchasedAt.Equal(base))

	_, err = svc.History(ctx, userID, pagination.Params{Cursor: "%%"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)

	owner := uuid.New()
	rows := []models.PurchaseRecord{record(owner, "pay_g", time.Now().UTC())}
	require.NoError(t, repo.CreateBatch(ctx, rows))
	id := rows[0].ID

	dto, err := svc.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, "pay_g", dto.PaymentRef)
	assert.Equal(t, "gateway", dto.PaymentMethod)

	_, err = svc.Get(ctx, uuid.New(), id)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = svc.Get(ctx, owner, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
