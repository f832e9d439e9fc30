package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/clovelane/order-service/internal/order"
)

// Rendering is pure: same input, byte-identical output. All order-provided
// free text goes through html/template's contextual escaping.

const estimatedDeliveryFormat = "Monday, 2 January 2006"

type templateData struct {
	Number            string
	Label             string
	Items             []order.OrderItem
	Subtotal          string
	ShippingCost      string
	Tax               string
	TotalAmount       string
	TrackingNumber    string
	CourierName       string
	TrackingURL       string
	EstimatedDelivery string
	DeliveryWindow    string
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html>
<body>
<h2>Thank you for your order!</h2>
<p>Your order <strong>{{.Number}}</strong> has been confirmed.</p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Item</th><th>Size / Color</th><th>Qty</th><th>Price</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td>{{.Size}}{{if and .Size .Color}} / {{end}}{{.Color}}</td><td>{{.Quantity}}</td><td>&#8377;{{printf "%.2f" .UnitPrice}}</td></tr>
{{end}}</table>
<p>Subtotal: &#8377;{{.Subtotal}}<br>
Shipping: &#8377;{{.ShippingCost}}<br>
Tax: &#8377;{{.Tax}}<br>
<strong>Total: &#8377;{{.TotalAmount}}</strong></p>
<p>We will email you again as soon as your order ships.</p>
</body>
</html>
`))

var statusTmpl = template.Must(template.New("status").Parse(`<html>
<body>
<h2>Your order is {{.Label}}</h2>
<p>Order <strong>{{.Number}}</strong> is now {{.Label}}.</p>
{{if .TrackingNumber}}<p>Tracking number: <strong>{{.TrackingNumber}}</strong>{{if .CourierName}} via {{.CourierName}}{{end}}</p>
{{end}}{{if .TrackingURL}}<p><a href="{{.TrackingURL}}">Track your package</a></p>
{{end}}{{if .EstimatedDelivery}}<p>Estimated delivery: {{.EstimatedDelivery}}</p>
{{end}}{{if .DeliveryWindow}}<p>Expected today {{.DeliveryWindow}}.</p>
{{end}}</body>
</html>
`))

var followUpTmpl = template.Must(template.New("follow_up").Parse(`<html>
<body>
<h2>How was everything?</h2>
<p>Your order <strong>{{.Number}}</strong> was delivered a few days ago.</p>
<p>We would love to hear what you think. A quick review helps other shoppers and helps us improve.</p>
</body>
</html>
`))

// Render maps a notification kind and an order snapshot to a subject line
// and an HTML body. The kind switch is exhaustive: an unknown kind is an
// error, never a silent drop.
func Render(kind order.NotificationKind, o *order.Order, items []order.OrderItem, deliveryWindow string) (subject, html string, err error) {
	if items == nil {
		items = o.Items
	}

	data := templateData{
		Number:         o.Number,
		Items:          items,
		Subtotal:       fmt.Sprintf("%.2f", o.Subtotal),
		ShippingCost:   fmt.Sprintf("%.2f", o.ShippingCost),
		Tax:            fmt.Sprintf("%.2f", o.Tax),
		TotalAmount:    fmt.Sprintf("%.2f", o.TotalAmount),
		TrackingNumber: o.TrackingNumber,
		CourierName:    o.CourierName,
		TrackingURL:    o.TrackingURL,
		DeliveryWindow: deliveryWindow,
	}
	if o.EstimatedDelivery != nil {
		data.EstimatedDelivery = o.EstimatedDelivery.UTC().Format(estimatedDeliveryFormat)
	}

	var tmpl *template.Template
	switch kind {
	case order.KindConfirmed:
		subject = fmt.Sprintf("Thank you for your order %s!", o.Number)
		tmpl = confirmationTmpl
	case order.KindProcessing:
		subject = fmt.Sprintf("Order %s is being processed", o.Number)
		data.Label = order.StatusProcessing.Label()
		tmpl = statusTmpl
	case order.KindPacked:
		subject = fmt.Sprintf("Order %s has been packed", o.Number)
		data.Label = order.StatusPacked.Label()
		tmpl = statusTmpl
	case order.KindShipped:
		subject = fmt.Sprintf("Order %s has shipped", o.Number)
		data.Label = order.StatusShipped.Label()
		tmpl = statusTmpl
	case order.KindOutForDelivery:
		subject = fmt.Sprintf("Order %s is out for delivery", o.Number)
		data.Label = order.StatusOutForDelivery.Label()
		tmpl = statusTmpl
	case order.KindDelivered:
		subject = fmt.Sprintf("Order %s has been delivered", o.Number)
		data.Label = order.StatusDelivered.Label()
		tmpl = statusTmpl
	case order.KindFollowUp:
		subject = fmt.Sprintf("How was your order %s?", o.Number)
		tmpl = followUpTmpl
	default:
		return "", "", fmt.Errorf("notify: unknown notification kind %q", kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("notify: failed to render %s template: %w", kind, err)
	}
	return subject, buf.String(), nil
}
