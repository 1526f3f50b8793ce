package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	rzp "github.com/razorpay/razorpay-go"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	keyPrefix = "rzp_"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
)

// orderCreator is the slice of the SDK order resource the client uses.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// OrderRequest describes a gateway order for a cart total.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	AutoCapture bool
	Notes       map[string]string
}

// Order is the gateway-issued handle returned to the client widget.
type Order struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Receipt   string    `json:"receipt"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Client wraps the Razorpay SDK plus the public key id.
type Client struct {
	orders      orderCreator
	keyID       string
	environment string
}

// NewClient initializes the SDK once with the configured credentials.
func NewClient(ctx context.Context, cfg config.PaymentsConfig, logg *logger.Logger) (*Client, error) {
	keyID := cfg.KeyID
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	secret := cfg.KeySecret
	if secret == "" {
		return nil, errKeySecretRequired
	}
	env, err := environmentFromKey(keyID)
	if err != nil {
		return nil, err
	}

	api := rzp.NewClient(keyID, secret)

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("razorpay client initialized (%s)", env))
	}

	return &Client{
		orders:      api.Order,
		keyID:       keyID,
		environment: env,
	}, nil
}

// KeyID returns the public key id the checkout widget needs.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// Environment reports whether the credentials are test or live.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreateOrder registers an order with the gateway for the given amount.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if c == nil || c.orders == nil {
		return Order{}, errors.New("razorpay client not initialized")
	}
	if req.AmountMinor <= 0 {
		return Order{}, fmt.Errorf("order amount must be positive, got %d", req.AmountMinor)
	}
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}

	payload := map[string]interface{}{
		"amount":          req.AmountMinor,
		"currency":        strings.ToUpper(req.Currency),
		"receipt":         req.Receipt,
		"payment_capture": req.AutoCapture,
	}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		payload["notes"] = notes
	}

	resp, err := c.orders.Create(payload, nil)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay create order: %w", err)
	}
	return decodeOrder(resp)
}

func decodeOrder(resp map[string]interface{}) (Order, error) {
	id, _ := resp["id"].(string)
	if id == "" {
		return Order{}, errors.New("razorpay create order: response missing id")
	}
	order := Order{
		ID:       id,
		Amount:   int64Field(resp["amount"]),
		Currency: stringField(resp["currency"]),
		Receipt:  stringField(resp["receipt"]),
		Status:   stringField(resp["status"]),
	}
	if created := int64Field(resp["created_at"]); created > 0 {
		order.CreatedAt = time.Unix(created, 0).UTC()
	}
	return order, nil
}

func stringField(v interface{}) string {
	s, _ := v.(string)
	return s
}

// int64Field accepts the float64 numbers produced by encoding/json as well as
// integer values.
func int64Field(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func environmentFromKey(keyID string) (string, error) {
	switch {
	case strings.HasPrefix(keyID, keyPrefix+testEnv+"_"):
		return testEnv, nil
	case strings.HasPrefix(keyID, keyPrefix+liveEnv+"_"):
		return liveEnv, nil
	default:
		return "", fmt.Errorf("razorpay key id must start with %s%s_ or %s%s_", keyPrefix, testEnv, keyPrefix, liveEnv)
	}
}
