package order

import (
	"context"
	"time"
)

type Status string

const (
	StatusConfirmed      Status = "confirmed"
	StatusProcessing     Status = "processing"
	StatusPacked         Status = "packed"
	StatusShipped        Status = "shipped"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

// statusRank orders the fulfilment sequence. Cancelled sits outside it.
var statusRank = map[Status]int{
	StatusConfirmed:      0,
	StatusProcessing:     1,
	StatusPacked:         2,
	StatusShipped:        3,
	StatusOutForDelivery: 4,
	StatusDelivered:      5,
}

func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

func (s Status) Label() string {
	switch s {
	case StatusConfirmed:
		return "Confirmed"
	case StatusProcessing:
		return "Processing"
	case StatusPacked:
		return "Packed"
	case StatusShipped:
		return "Shipped"
	case StatusOutForDelivery:
		return "Out for Delivery"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// NotificationKind identifies one transactional notification. Every kind
// maps to a status-triggered email except FollowUp, which is the delayed
// review request sent after delivery.
type NotificationKind string

const (
	KindConfirmed      NotificationKind = "confirmed"
	KindProcessing     NotificationKind = "processing"
	KindPacked         NotificationKind = "packed"
	KindShipped        NotificationKind = "shipped"
	KindOutForDelivery NotificationKind = "out_for_delivery"
	KindDelivered      NotificationKind = "delivered"
	KindFollowUp       NotificationKind = "follow_up"
)

func (k NotificationKind) String() string {
	return string(k)
}

func (k NotificationKind) Valid() bool {
	switch k {
	case KindConfirmed, KindProcessing, KindPacked, KindShipped, KindOutForDelivery, KindDelivered, KindFollowUp:
		return true
	}
	return false
}

type Contact struct {
	Name       string `json:"name" db:"name"`
	Email      string `json:"email" db:"email"`
	Phone      string `json:"phone" db:"phone"`
	Address    string `json:"address" db:"address"`
	City       string `json:"city" db:"city"`
	PostalCode string `json:"postal_code" db:"postal_code"`
}

type OrderItem struct {
	Name      string  `json:"name" db:"name"`
	Size      string  `json:"size,omitempty" db:"size"`
	Color     string  `json:"color,omitempty" db:"color"`
	Quantity  int     `json:"quantity" db:"quantity"`
	UnitPrice float64 `json:"unit_price" db:"unit_price"`
}

type Order struct {
	Number            string      `json:"order_number" db:"order_number"`
	Status            Status      `json:"status" db:"status"`
	Subtotal          float64     `json:"subtotal" db:"subtotal"`
	ShippingCost      float64     `json:"shipping_cost" db:"shipping_cost"`
	Tax               float64     `json:"tax" db:"tax"`
	TotalAmount       float64     `json:"total_amount" db:"total_amount"`
	PaymentMethod     string      `json:"payment_method" db:"payment_method"`
	PaymentStatus     string      `json:"payment_status" db:"payment_status"`
	CustomerEmail     string      `json:"customer_email,omitempty" db:"customer_email"`
	Shipping          Contact     `json:"shipping" db:"-"`
	Billing           Contact     `json:"billing" db:"-"`
	TrackingNumber    string      `json:"tracking_number,omitempty" db:"tracking_number"`
	CourierName       string      `json:"courier_name,omitempty" db:"courier_name"`
	TrackingURL       string      `json:"tracking_url,omitempty" db:"tracking_url"`
	EstimatedDelivery *time.Time  `json:"estimated_delivery,omitempty" db:"estimated_delivery"`
	Items             []OrderItem `json:"items" db:"-"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// RecipientEmail resolves the notification address: shipping contact first,
// then billing, then the generic customer email.
func (o *Order) RecipientEmail() string {
	if o.Shipping.Email != "" {
		return o.Shipping.Email
	}
	if o.Billing.Email != "" {
		return o.Billing.Email
	}
	return o.CustomerEmail
}

func (o *Order) RecipientPhone() string {
	if o.Shipping.Phone != "" {
		return o.Shipping.Phone
	}
	return o.Billing.Phone
}

// TrackingUpdate carries optional tracking fields for a status update.
// Nil fields are left untouched in the order row. DeliveryWindow is
// dispatch-only free text ("between 9am and 1pm") and is never persisted.
type TrackingUpdate struct {
	TrackingNumber    *string
	CourierName       *string
	TrackingURL       *string
	EstimatedDelivery *time.Time
	DeliveryWindow    *string
}

// DispatchInput is one immediate notification request. Items overrides the
// order's item list when the order row may not yet reflect it (confirmation
// retries). RecipientOverride skips live recipient resolution.
type DispatchInput struct {
	Kind              NotificationKind
	Order             *Order
	Items             []OrderItem
	RecipientOverride string
	DeliveryWindow    string
}

// Notifier performs a fire-once, no-retry notification attempt.
type Notifier interface {
	Dispatch(ctx context.Context, in DispatchInput) error
}

// Scheduler durably schedules and cancels delayed notification jobs.
type Scheduler interface {
	Schedule(ctx context.Context, orderNumber string, kind NotificationKind, recipient string, at time.Time, items []OrderItem) error
	Cancel(ctx context.Context, orderNumber string, kind NotificationKind) error
}
