package items

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

// failUpdates makes every UPDATE on conn fail with err before it reaches the
// database.
func failUpdates(t *testing.T, conn *gorm.DB, err error) {
	t.Helper()
	require.NoError(t, conn.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		_ = tx.AddError(err)
	}))
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func validInput() CreateItemInput {
	return CreateItemInput{
		Name:           "  Desk Lamp ",
		Price:          decimal.RequireFromString("499.99"),
		AvailableCount: 4,
		Category:       enums.ItemCategoryHome,
	}
}

func TestCreateRequiresSellerRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleBuyer}, validInput())
	requireCode(t, err, pkgerrors.CodeForbidden)

	seller := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	dto, err := svc.Create(ctx, seller, validInput())
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", dto.Name)
	assert.Equal(t, seller.UserID, dto.CreatorID)
	assert.Equal(t, "499.99", dto.Price.StringFixed(2))
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seller := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}

	cases := map[string]func(in *CreateItemInput){
		"blank name":       func(in *CreateItemInput) { in.Name = " " },
		"unknown category": func(in *CreateItemInput) { in.Category = "Garden" },
		"negative price":   func(in *CreateItemInput) { in.Price = decimal.NewFromInt(-1) },
		"sub-paisa price":  func(in *CreateItemInput) { in.Price = decimal.RequireFromString("1.005") },
		"negative stock":   func(in *CreateItemInput) { in.AvailableCount = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.Create(ctx, seller, in)
			requireCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestGetMissingItem(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAdjustStockPermissions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	creator := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	dto, err := svc.Create(ctx, creator, validInput())
	require.NoError(t, err)

	_, err = svc.AdjustStock(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}, dto.ID, 3)
	requireCode(t, err, pkgerrors.CodeForbidden)

	updated, err := svc.AdjustStock(ctx, creator, dto.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.AvailableCount)

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	updated, err = svc.AdjustStock(ctx, admin, dto.ID, -7)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableCount)

	_, err = svc.AdjustStock(ctx, creator, dto.ID, -1)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AdjustStock(ctx, creator, dto.ID, 0)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AdjustStock(ctx, creator, uuid.New(), 1)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestListNormalizesPaging(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seller := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, seller, validInput())
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, ListQuery{Limit: 0, Offset: -4})
	require.NoError(t, err)
	assert.Equal(t, 20, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 3)
}

func TestListFiltersByCreator(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	bob := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, alice, validInput())
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, bob, validInput())
	require.NoError(t, err)

	page, err := svc.List(ctx, ListQuery{Limit: 10, CreatorID: &alice.UserID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	for _, item := range page.Items {
		assert.Equal(t, alice.UserID, item.CreatorID)
	}

	page, err = svc.List(ctx, ListQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	creator := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	dto, err := svc.Create(ctx, creator, validInput())
	require.NoError(t, err)

	name := "  Floor Lamp "
	price := decimal.RequireFromString("649.50")
	category := enums.ItemCategoryElectronics
	updated, err := svc.Update(ctx, creator, dto.ID, UpdateItemInput{Name: &name, Price: &price, Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "Floor Lamp", updated.Name)
	assert.Equal(t, "649.50", updated.Price.StringFixed(2))
	assert.Equal(t, enums.ItemCategoryElectronics, updated.Category)
	assert.Equal(t, 4, updated.AvailableCount)

	unchanged, err := svc.Update(ctx, creator, dto.ID, UpdateItemInput{})
	require.NoError(t, err)
	assert.Equal(t, "Floor Lamp", unchanged.Name)
}

func TestUpdatePermissionsAndValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	creator := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	dto, err := svc.Create(ctx, creator, validInput())
	require.NoError(t, err)

	name := "Other"
	_, err = svc.Update(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}, dto.ID, UpdateItemInput{Name: &name})
	requireCode(t, err, pkgerrors.CodeForbidden)

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	updated, err := svc.Update(ctx, admin, dto.ID, UpdateItemInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Other", updated.Name)

	_, err = svc.Update(ctx, creator, uuid.New(), UpdateItemInput{Name: &name})
	requireCode(t, err, pkgerrors.CodeNotFound)

	blank := " "
	negative := decimal.NewFromInt(-5)
	fractional := decimal.RequireFromString("9.999")
	unknown := enums.ItemCategory("Garden")
	cases := map[string]UpdateItemInput{
		"blank name":       {Name: &blank},
		"negative price":   {Price: &negative},
		"sub-paisa price":  {Price: &fractional},
		"unknown category": {Category: &unknown},
	}
	for label, in := range cases {
		t.Run(label, func(t *testing.T) {
			_, err := svc.Update(ctx, creator, dto.ID, in)
			requireCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestDeleteRemovesItemAndCartLines(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	creator := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	dto, err := svc.Create(ctx, creator, validInput())
	require.NoError(t, err)

	cart := models.Cart{UserID: uuid.New()}
	require.NoError(t, conn.Create(&cart).Error)
	require.NoError(t, conn.Create(&models.CartItem{CartID: cart.ID, ItemID: dto.ID, Quantity: 1}).Error)

	err = svc.Delete(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}, dto.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	require.NoError(t, svc.Delete(ctx, creator, dto.ID))

	_, err = svc.Get(ctx, dto.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	var lines int64
	require.NoError(t, conn.Model(&models.CartItem{}).Where("item_id = ?", dto.ID).Count(&lines).Error)
	assert.Zero(t, lines)

	err = svc.Delete(ctx, creator, dto.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAdjustStockMapsCheckViolation(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	creator := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	dto, err := svc.Create(ctx, creator, validInput())
	require.NoError(t, err)

	failUpdates(t, conn, &pgconn.PgError{Code: "23514", ConstraintName: db.ItemsAvailableCountCheck})
	_, err = svc.AdjustStock(ctx, creator, dto.ID, -1)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestAdjustStockOtherFailuresAreDependencyErrors(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	creator := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	dto, err := svc.Create(ctx, creator, validInput())
	require.NoError(t, err)

	failUpdates(t, conn, &pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"})
	_, err = svc.AdjustStock(ctx, creator, dto.ID, 1)
	requireCode(t, err, pkgerrors.CodeDependency)
}
