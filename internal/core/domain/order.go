package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderTotals holds the server-computed money breakdown in minor currency
// units. Total is always max(0, Subtotal + Shipping - Discount).
type OrderTotals struct {
	Subtotal int64
	Shipping int64
	Discount int64
	Total    int64
}

// Order is the persisted aggregate root. UserID is empty for guest checkout.
// Line items live in OrderLineItem rows keyed by Order.ID.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	Status      OrderStatus
	Totals      OrderTotals
	PromoCode   string
	Shipping    ShippingInfo
	Attribution *Attribution
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderLineItem freezes the authoritative unit price at order time. UnitPrice
// must never be recomputed from the current catalog price after creation.
type OrderLineItem struct {
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice int64
}

// ResolvedLineItem is a request item whose unit price has been resolved from
// the catalog. Client-submitted prices never reach this type.
type ResolvedLineItem struct {
	ProductID string
	Quantity  int
	UnitPrice int64
}

// OrderRequest is the untrusted cart submission. ClientPrice on items is
// ignored for all computation and only logged for anomaly detection.
type OrderRequest struct {
	Items       []OrderRequestItem
	Shipping    ShippingInfo
	PromoCode   string
	Attribution *Attribution
}

type OrderRequestItem struct {
	ProductID   string
	Quantity    int
	ClientPrice int64
}

type ShippingInfo struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
}

type Attribution struct {
	Source   string
	Medium   string
	Campaign string
}

// OrderSummary is what a successful creation returns to the caller.
type OrderSummary struct {
	ID          string
	OrderNumber string
	Status      OrderStatus
	Total       int64
	CreatedAt   time.Time
}
