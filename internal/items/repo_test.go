package items

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func seedItem(t *testing.T, repo *Repository, name string, price int64, stock int) *models.Item {
	t.Helper()
	item, err := repo.Create(context.Background(), &models.Item{
		Name:           name,
		Price:          decimal.NewFromInt(price),
		AvailableCount: stock,
		Category:       enums.ItemCategoryBooks,
		CreatorID:      uuid.New(),
	})
	require.NoError(t, err)
	return item
}

func TestDecrementStockIfAvailable(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	item := seedItem(t, repo, "Lamp", 100, 3)

	ok, err := repo.DecrementStockIfAvailable(ctx, item.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStockIfAvailable(ctx, item.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "guard must reject taking more than what is left")

	reloaded, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.AvailableCount)

	ok, err = repo.DecrementStockIfAvailable(ctx, uuid.New(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncrementStockNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	item := seedItem(t, repo, "Mat", 40, 2)

	ok, err := repo.IncrementStock(ctx, item.ID, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IncrementStock(ctx, item.ID, -8)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.IncrementStock(ctx, item.ID, -7)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.AvailableCount)
}

func TestFindByIDsAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	a := seedItem(t, repo, "A", 100, 1)
	b := seedItem(t, repo, "B", 50, 1)
	seedItem(t, repo, "C", 10, 1)

	found, err := repo.FindByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.True(t, found[a.ID].Price.Equal(decimal.NewFromInt(100)))

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	rows, total, err := repo.List(ctx, ListFilter{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 2)

	rows, _, err = repo.List(ctx, ListFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestListFilterAndUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	a := seedItem(t, repo, "A", 100, 1)
	seedItem(t, repo, "B", 50, 1)

	rows, total, err := repo.List(ctx, ListFilter{CreatorID: &a.CreatorID}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID, rows[0].ID)

	ok, err := repo.Update(ctx, a.ID, map[string]any{"name": "A2", "price": decimal.NewFromInt(120)})
	require.NoError(t, err)
	assert.True(t, ok)
	reloaded, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A2", reloaded.Name)
	assert.True(t, reloaded.Price.Equal(decimal.NewFromInt(120)))

	ok, err = repo.Update(ctx, uuid.New(), map[string]any{"name": "ghost"})
	require.NoError(t, err)
	assert.False(t, ok)
}
