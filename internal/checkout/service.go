package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/items"
	"github.com/angelmondragon/storefront-backend/internal/purchases"
	pkgcheckout "github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// DirectRefPrefix marks payment references generated for direct checkouts.
const DirectRefPrefix = "cod_"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns a user's cart into purchase records.
type Service interface {
	Commit(ctx context.Context, userID uuid.UUID, input CommitInput) (*Receipt, error)
	Direct(ctx context.Context, userID uuid.UUID, shipping types.ShippingAddress) (*Receipt, error)
}

// CommitInput carries what a purchase commit needs besides the cart.
type CommitInput struct {
	Shipping   types.ShippingAddress
	PaymentRef string
	Method     enums.PaymentMethod
}

// Receipt summarizes a committed checkout.
type Receipt struct {
	PaymentRef string                  `json:"payment_ref"`
	Method     string                  `json:"payment_method"`
	Total      decimal.Decimal         `json:"total"`
	Purchases  []purchases.PurchaseDTO `json:"purchases"`
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Tx            txRunner
	CartRepo      cart.CartRepository
	ItemRepo      *items.Repository
	PurchaseRepo  *purchases.Repository
	Metrics       *metrics.CheckoutMetrics
	DirectEnabled bool
	Now           func() time.Time
}

type service struct {
	tx            txRunner
	cartRepo      cart.CartRepository
	itemRepo      *items.Repository
	purchaseRepo  *purchases.Repository
	metrics       *metrics.CheckoutMetrics
	directEnabled bool
	now           func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.ItemRepo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if params.PurchaseRepo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:            params.Tx,
		cartRepo:      params.CartRepo,
		itemRepo:      params.ItemRepo,
		purchaseRepo:  params.PurchaseRepo,
		metrics:       params.Metrics,
		directEnabled: params.DirectEnabled,
		now:           now,
	}, nil
}

// Commit writes one purchase record per cart line, takes the purchased
// quantities out of stock and empties the cart, all in one transaction. Any
// line whose stock can no longer cover it aborts the whole commit.
func (s *service) Commit(ctx context.Context, userID uuid.UUID, input CommitInput) (*Receipt, error) {
	receipt, err := s.commit(ctx, userID, input)
	if err != nil {
		s.metrics.IncFailure(metrics.StageCommit, failureReason(err))
		return nil, err
	}
	s.metrics.ObserveCommit(receipt.Method, receipt.Total)
	return receipt, nil
}

func (s *service) commit(ctx context.Context, userID uuid.UUID, input CommitInput) (*Receipt, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	ref := strings.TrimSpace(input.PaymentRef)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if input.Shipping.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required").
			WithDetails(map[string]any{"missing": []string{"shipping_address"}})
	}
	shipping := input.Shipping.Normalize()

	var receipt *Receipt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		itemRepo := s.itemRepo.WithTx(tx)
		purchaseRepo := s.purchaseRepo.WithTx(tx)

		userCart, err := loadCart(ctx, cartRepo, userID)
		if err != nil {
			return err
		}

		purchasedAt := s.now().UTC()
		records := make([]models.PurchaseRecord, 0, len(userCart.Items))
		priced := make([]pkgcheckout.PricedLine, 0, len(userCart.Items))
		var missing []pkgcheckout.StockViolation
		for _, line := range userCart.Items {
			if line.Item == nil {
				missing = append(missing, pkgcheckout.StockViolation{ItemID: line.ItemID, Requested: line.Quantity})
				continue
			}
			records = append(records, models.PurchaseRecord{
				UserID:          userID,
				ItemID:          line.ItemID,
				ItemName:        line.Item.Name,
				Quantity:        line.Quantity,
				UnitPrice:       line.Item.Price,
				TotalPrice:      pkgcheckout.LineTotal(line.Item.Price, line.Quantity),
				ShippingAddress: shipping,
				PaymentRef:      ref,
				PaymentMethod:   input.Method,
				PurchasedAt:     purchasedAt,
			})
			priced = append(priced, pkgcheckout.PricedLine{Price: line.Item.Price, Quantity: line.Quantity})
		}
		if len(missing) > 0 {
			return pkgcheckout.InsufficientStock(missing)
		}

		if err := purchaseRepo.CreateBatch(ctx, records); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert purchase records")
		}

		var shortfalls []pkgcheckout.StockViolation
		for _, line := range userCart.Items {
			ok, err := itemRepo.DecrementStockIfAvailable(ctx, line.ItemID, line.Quantity)
			if err != nil {
				// The failed statement aborts the transaction, so report the
				// balance read with the cart instead of reloading it.
				if db.IsCheckViolation(err, db.ItemsAvailableCountCheck) {
					return pkgcheckout.InsufficientStock(append(shortfalls, pkgcheckout.StockViolation{
						ItemID:    line.ItemID,
						Name:      line.Item.Name,
						Requested: line.Quantity,
						Available: line.Item.AvailableCount,
					}))
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: decrement stock")
			}
			if ok {
				continue
			}
			available := 0
			if current, err := itemRepo.FindByID(ctx, line.ItemID); err == nil {
				available = current.AvailableCount
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: reload item")
			}
			shortfalls = append(shortfalls, pkgcheckout.StockViolation{
				ItemID:    line.ItemID,
				Name:      line.Item.Name,
				Requested: line.Quantity,
				Available: available,
			})
		}
		if len(shortfalls) > 0 {
			return pkgcheckout.InsufficientStock(shortfalls)
		}

		if err := cartRepo.Clear(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: clear cart")
		}

		receipt = &Receipt{
			PaymentRef: ref,
			Method:     string(input.Method),
			Total:      pkgcheckout.ComputeTotal(priced),
			Purchases:  purchases.NewPurchaseDTOs(records),
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "commit purchase")
	}
	return receipt, nil
}

// Direct checks out the cart without a gateway payment. Stock is validated up
// front so the caller sees every under-stocked line; Commit re-checks each
// line atomically.
func (s *service) Direct(ctx context.Context, userID uuid.UUID, shipping types.ShippingAddress) (*Receipt, error) {
	if !s.directEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "direct checkout disabled")
	}

	userCart, err := loadCart(ctx, s.cartRepo, userID)
	if err != nil {
		s.metrics.IncFailure(metrics.StageDirect, failureReason(err))
		return nil, err
	}

	lines := make([]pkgcheckout.StockLine, 0, len(userCart.Items))
	for _, line := range userCart.Items {
		stock := pkgcheckout.StockLine{ItemID: line.ItemID, Requested: line.Quantity}
		if line.Item != nil {
			stock.Name = line.Item.Name
			stock.Available = line.Item.AvailableCount
		}
		lines = append(lines, stock)
	}
	if err := pkgcheckout.ValidateStock(lines); err != nil {
		s.metrics.IncFailure(metrics.StageDirect, failureReason(err))
		return nil, err
	}

	return s.Commit(ctx, userID, CommitInput{
		Shipping:   shipping,
		PaymentRef: DirectRefPrefix + uuid.NewString(),
		Method:     enums.PaymentMethodCOD,
	})
}

func loadCart(ctx context.Context, repo cart.CartRepository, userID uuid.UUID) (*models.Cart, error) {
	userCart, err := repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: load cart")
	}
	if len(userCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	return userCart, nil
}

func failureReason(err error) string {
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeValidation):
		return metrics.ReasonValidation
	case pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart):
		return metrics.ReasonEmptyCart
	case pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock):
		return metrics.ReasonInsufficientStock
	default:
		return metrics.ReasonInternal
	}
}
