package orders

import (
	"errors"
	"time"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrUnknownSKU    = errors.New("product not found")
	ErrInvalidQty    = errors.New("invalid qty")
	ErrMixedCurrency = errors.New("items use different currencies")
)

type Order struct {
	ID         string      `json:"id"`
	ExternalID string      `json:"external_id"`
	UserID     string      `json:"user_id,omitempty"`
	Email      string      `json:"email,omitempty"`
	Status     Status      `json:"status"`
	TotalCents int64       `json:"total_cents"`
	Currency   string      `json:"currency"`
	Items      []OrderItem `json:"items,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ProductID  string `json:"product_id"`
	SKU        string `json:"sku"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents"`
}

// Reservation status: RESERVED -> COMMITTED | RELEASED.
const (
	ReservationReserved  = "RESERVED"
	ReservationCommitted = "COMMITTED"
	ReservationReleased  = "RELEASED"
)
