package payments

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MarkerStore is the redis surface the payment guard needs.
type MarkerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	PaymentKey(paymentID string) string
}

// PaymentGuard marks gateway payment ids as being settled so a repeated
// callback cannot commit the same payment twice.
type PaymentGuard struct {
	store MarkerStore
	ttl   time.Duration
}

func NewPaymentGuard(store MarkerStore, ttl time.Duration) (*PaymentGuard, error) {
	if store == nil {
		return nil, errors.New("marker store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &PaymentGuard{store: store, ttl: ttl}, nil
}

// Claim returns true when the caller is the first to settle paymentID.
func (g *PaymentGuard) Claim(ctx context.Context, paymentID, orderID string) (bool, error) {
	if paymentID == "" {
		return false, errors.New("payment id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.PaymentKey(paymentID), orderID, g.ttl)
	if err != nil {
		return false, fmt.Errorf("set payment marker: %w", err)
	}
	return set, nil
}

// Release drops the marker so a later callback can retry the commit.
func (g *PaymentGuard) Release(ctx context.Context, paymentID string) error {
	if paymentID == "" {
		return errors.New("payment id is required")
	}
	return g.store.Del(ctx, g.store.PaymentKey(paymentID))
}
