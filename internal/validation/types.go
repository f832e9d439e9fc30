package validation

import "time"

type ContactRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type OrderItemRequest struct {
	Name      string  `json:"name" validate:"required"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type CreateOrderRequest struct {
	Subtotal      float64            `json:"subtotal" validate:"gte=0"`
	ShippingCost  float64            `json:"shipping_cost" validate:"gte=0"`
	Tax           float64            `json:"tax" validate:"gte=0"`
	TotalAmount   float64            `json:"total_amount" validate:"gt=0"`
	PaymentMethod string             `json:"payment_method"`
	PaymentStatus string             `json:"payment_status"`
	CustomerEmail string             `json:"customer_email" validate:"omitempty,email"`
	Shipping      ContactRequest     `json:"shipping"`
	Billing       ContactRequest     `json:"billing"`
	Items         []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateStatusRequest struct {
	Status            string     `json:"status" validate:"required"`
	TrackingNumber    *string    `json:"tracking_number,omitempty"`
	CourierName       *string    `json:"courier_name,omitempty"`
	TrackingURL       *string    `json:"tracking_url,omitempty" validate:"omitempty,url"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	DeliveryWindow    *string    `json:"delivery_window,omitempty"`
}
