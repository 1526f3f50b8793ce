package payments

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
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/purchases"
	pkgcheckout "github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Gateway creates payment orders and exposes the public key id.
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (razorpay.Order, error)
	KeyID() string
}

type committer interface {
	Commit(ctx context.Context, userID uuid.UUID, input checkout.CommitInput) (*checkout.Receipt, error)
}

type purchaseLookup interface {
	ListByPaymentRef(ctx context.Context, paymentRef string) ([]models.PurchaseRecord, error)
}

// Service starts gateway payments for carts and settles them once the
// gateway reports success.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID) (*OrderHandle, error)
	Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (*checkout.Receipt, error)
	PublicKey() string
}

// OrderHandle is what the client widget needs to open the payment flow.
type OrderHandle struct {
	OrderID     string          `json:"order_id"`
	KeyID       string          `json:"key_id"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Receipt     string          `json:"receipt"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	LineCount   int             `json:"line_count"`
	GatewayMode string          `json:"gateway_mode,omitempty"`
}

// VerifyInput is the gateway callback payload plus the shipping address.
type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
	Shipping  types.ShippingAddress
}

// ServiceParams wires the payments service.
type ServiceParams struct {
	Config      config.PaymentsConfig
	Gateway     Gateway
	GatewayMode string
	CartRepo    cart.CartRepository
	Checkout    committer
	Purchases   purchaseLookup
	Guard       *PaymentGuard
	Metrics     *metrics.CheckoutMetrics
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	cfg         config.PaymentsConfig
	gateway     Gateway
	gatewayMode string
	cartRepo    cart.CartRepository
	checkout    committer
	purchases   purchaseLookup
	guard       *PaymentGuard
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the payments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase lookup required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("payment guard required")
	}
	if strings.TrimSpace(params.Config.KeySecret) == "" {
		return nil, fmt.Errorf("payment key secret required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		cfg:         params.Config,
		gateway:     params.Gateway,
		gatewayMode: params.GatewayMode,
		cartRepo:    params.CartRepo,
		checkout:    params.Checkout,
		purchases:   params.Purchases,
		guard:       params.Guard,
		metrics:     params.Metrics,
		logg:        logg,
		now:         now,
	}, nil
}

func (s *service) PublicKey() string {
	return s.gateway.KeyID()
}

// CreateOrder prices the cart and asks the gateway for an order covering the
// total. Nothing is written locally.
func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID) (*OrderHandle, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}

	userCart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: load cart")
	}
	if userCart == nil || len(userCart.Items) == 0 {
		s.metrics.IncFailure(metrics.StageCreateOrder, metrics.ReasonEmptyCart)
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	lines := make([]pkgcheckout.PricedLine, 0, len(userCart.Items))
	for _, line := range userCart.Items {
		if line.Item == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %s no longer exists", line.ItemID))
		}
		lines = append(lines, pkgcheckout.PricedLine{Price: line.Item.Price, Quantity: line.Quantity})
	}
	total := pkgcheckout.ComputeTotal(lines)
	if !total.IsPositive() {
		s.metrics.IncFailure(metrics.StageCreateOrder, metrics.ReasonInvalidAmount)
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "cart total must be greater than zero").
			WithDetails(map[string]any{"total": total.StringFixed(2)})
	}
	amount, err := pkgcheckout.ToMinorUnits(total)
	if err != nil || amount <= 0 {
		s.metrics.IncFailure(metrics.StageCreateOrder, metrics.ReasonInvalidAmount)
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "cart total cannot be charged").
			WithDetails(map[string]any{"total": total.StringFixed(2)})
	}

	receipt := fmt.Sprintf("%s_%d", s.cfg.ReceiptPrefix, s.now().UnixMilli())
	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		AmountMinor: amount,
		Currency:    s.cfg.NormalizedCurrency(),
		Receipt:     receipt,
		AutoCapture: s.cfg.AutoCapture,
		Notes:       map[string]string{"user_id": userID.String()},
	})
	if err != nil {
		s.metrics.IncFailure(metrics.StageCreateOrder, metrics.ReasonGateway)
		s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "payments.create_order_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}
	s.metrics.IncGatewayOrder()

	currency := order.Currency
	if currency == "" {
		currency = s.cfg.NormalizedCurrency()
	}
	if order.Receipt != "" {
		receipt = order.Receipt
	}
	return &OrderHandle{
		OrderID:     order.ID,
		KeyID:       s.gateway.KeyID(),
		Amount:      amount,
		Currency:    currency,
		Receipt:     receipt,
		Status:      order.Status,
		Total:       total,
		LineCount:   len(lines),
		GatewayMode: s.gatewayMode,
	}, nil
}

// Verify authenticates the gateway callback and commits the user's cart
// against the payment. A payment id is committed at most once; repeats get
// the original receipt back.
func (s *service) Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (*checkout.Receipt, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}

	// Gateway values are signed as sent; blank-only counts as missing.
	orderID, paymentID, signature := input.OrderID, input.PaymentID, input.Signature

	var missing []string
	if strings.TrimSpace(orderID) == "" {
		missing = append(missing, "razorpay_order_id")
	}
	if strings.TrimSpace(paymentID) == "" {
		missing = append(missing, "razorpay_payment_id")
	}
	if strings.TrimSpace(signature) == "" {
		missing = append(missing, "razorpay_signature")
	}
	if input.Shipping.IsZero() {
		missing = append(missing, "shipping_address")
	}
	if len(missing) > 0 {
		s.metrics.IncFailure(metrics.StageVerify, metrics.ReasonValidation)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"missing": missing})
	}

	ctx = s.logg.WithPaymentRef(ctx, paymentID)
	if !VerifySignature(orderID, paymentID, signature, s.cfg.KeySecret) {
		s.metrics.IncFailure(metrics.StageVerify, metrics.ReasonSignatureMismatch)
		s.logg.Warn(ctx, "payments.signature_mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeSignatureMismatch, "payment signature mismatch")
	}

	claimed, err := s.guard.Claim(ctx, paymentID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment")
	}
	if !claimed {
		return s.replay(ctx, userID, paymentID)
	}

	// The marker may have expired; the purchase records are authoritative.
	if existing, err := s.purchases.ListByPaymentRef(ctx, paymentID); err != nil {
		s.release(ctx, paymentID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: lookup payment")
	} else if len(existing) > 0 {
		return receiptFromRecords(userID, paymentID, existing)
	}

	receipt, err := s.checkout.Commit(ctx, userID, checkout.CommitInput{
		Shipping:   input.Shipping,
		PaymentRef: paymentID,
		Method:     enums.PaymentMethodGateway,
	})
	if err != nil {
		s.release(ctx, paymentID)
		s.logg.Error(ctx, "payments.commit_failed_after_payment", err)
		return nil, err
	}
	s.logg.Info(ctx, "payments.verified")
	return receipt, nil
}

func (s *service) replay(ctx context.Context, userID uuid.UUID, paymentID string) (*checkout.Receipt, error) {
	records, err := s.purchases.ListByPaymentRef(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: lookup payment")
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment verification already in progress")
	}
	s.logg.Info(ctx, "payments.verify_replayed")
	return receiptFromRecords(userID, paymentID, records)
}

func (s *service) release(ctx context.Context, paymentID string) {
	if err := s.guard.Release(ctx, paymentID); err != nil {
		s.logg.Warn(ctx, "payments.release_marker_failed: "+err.Error())
	}
}

func receiptFromRecords(userID uuid.UUID, paymentID string, records []models.PurchaseRecord) (*checkout.Receipt, error) {
	total := decimal.Zero
	for _, rec := range records {
		if rec.UserID != userID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment already settled for another user")
		}
		total = total.Add(rec.TotalPrice)
	}
	return &checkout.Receipt{
		PaymentRef: paymentID,
		Method:     string(records[0].PaymentMethod),
		Total:      total,
		Purchases:  purchases.NewPurchaseDTOs(records),
	}, nil
}
