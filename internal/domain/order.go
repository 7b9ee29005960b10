package domain

import (
	"strings"
	"time"
)

// Order status constants.
const (
	OrderStatusPending  = "pending"
	OrderStatusPaid     = "paid"
	OrderStatusFailed   = "failed"
	OrderStatusRefunded = "refunded"
)

// DefaultCurrency is used for every order created by the ledger.
const DefaultCurrency = "INR"

// Order is one purchase attempt of a product by a buyer. Orders are never
// deleted; a failed or refunded order stays as history.
type Order struct {
	ID                string     `json:"id"`
	BuyerID           string     `json:"buyer_id"`
	ProductID         string     `json:"product_id"`
	ProviderOrderID   string     `json:"provider_order_id"`
	ProviderPaymentID string     `json:"provider_payment_id,omitempty"`
	Signature         string     `json:"-"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	PurchasedAt       *time.Time `json:"purchased_at,omitempty"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`
}

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusPaid,
		OrderStatusFailed,
		OrderStatusRefunded,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status transitions are valid.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:  {OrderStatusPaid, OrderStatusFailed},
		OrderStatusPaid:     {OrderStatusRefunded},
		OrderStatusFailed:   {},
		OrderStatusRefunded: {},
	}
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range AllowedTransitions()[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	return CanTransition(o.Status, target)
}

// IsPaid reports whether the order currently grants access to its product.
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// Redacted returns a copy safe to show the buyer: the payment reference is
// masked and the signature is dropped.
func (o *Order) Redacted() *Order {
	cp := *o
	cp.ProviderPaymentID = RedactPaymentRef(o.ProviderPaymentID)
	cp.Signature = ""
	return &cp
}

// RedactPaymentRef masks a provider payment reference down to its prefix and
// last four characters, e.g. "pay_****wxyz".
func RedactPaymentRef(ref string) string {
	if ref == "" {
		return ""
	}
	prefix := ""
	rest := ref
	if i := strings.IndexByte(ref, '_'); i >= 0 {
		prefix, rest = ref[:i+1], ref[i+1:]
	}
	if len(rest) <= 4 {
		return prefix + "****"
	}
	return prefix + "****" + rest[len(rest)-4:]
}
