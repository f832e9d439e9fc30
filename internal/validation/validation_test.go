package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clovelane/order-service/internal/validation"
)

func validRequest() validation.CreateOrderRequest {
	return validation.CreateOrderRequest{
		Subtotal:     1000,
		ShippingCost: 50,
		Tax:          180,
		TotalAmount:  1230,
		Items: []validation.OrderItemRequest{
			{Name: "Linen Shirt", Quantity: 1, UnitPrice: 1000},
		},
	}
}

func TestCreateOrderRequest_Validation(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name    string
		mutate  func(r *validation.CreateOrderRequest)
		wantErr bool
	}{
		{name: "valid", mutate: func(r *validation.CreateOrderRequest) {}},
		{
			name:    "total_mismatch",
			mutate:  func(r *validation.CreateOrderRequest) { r.TotalAmount = 1000 },
			wantErr: true,
		},
		{
			name: "float_rounding_tolerated",
			mutate: func(r *validation.CreateOrderRequest) {
				r.Subtotal = 0.1
				r.ShippingCost = 0.2
				r.Tax = 0
				r.TotalAmount = 0.3
			},
		},
		{
			name:    "zero_total",
			mutate:  func(r *validation.CreateOrderRequest) { r.TotalAmount = 0; r.Subtotal = 0; r.ShippingCost = 0; r.Tax = 0 },
			wantErr: true,
		},
		{
			name:    "no_items",
			mutate:  func(r *validation.CreateOrderRequest) { r.Items = nil },
			wantErr: true,
		},
		{
			name:    "zero_quantity",
			mutate:  func(r *validation.CreateOrderRequest) { r.Items[0].Quantity = 0 },
			wantErr: true,
		},
		{
			name:    "bad_email",
			mutate:  func(r *validation.CreateOrderRequest) { r.CustomerEmail = "not-an-email" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := v.Struct(req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
