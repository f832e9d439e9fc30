package validation

import (
	"fmt"
	"math"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with the order total cross-check
// registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})
	return v
}

// createOrderStructValidation enforces total = subtotal + shipping + tax,
// compared in cents to avoid float rounding noise.
func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	sumCents := int(math.Round((req.Subtotal + req.ShippingCost + req.Tax) * 100))
	totalCents := int(math.Round(req.TotalAmount * 100))
	if sumCents != totalCents {
		sl.ReportError(req.TotalAmount, "total_amount", "TotalAmount", "total_match_parts",
			fmt.Sprintf("subtotal+shipping+tax %.2f != total %.2f", req.Subtotal+req.ShippingCost+req.Tax, req.TotalAmount))
	}
}
