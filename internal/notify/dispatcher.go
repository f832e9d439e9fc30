package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clovelane/order-service/internal/order"
)

// Kinds that also get an SMS alongside the email.
var smsKinds = map[order.NotificationKind]bool{
	order.KindShipped:        true,
	order.KindOutForDelivery: true,
	order.KindDelivered:      true,
}

// Dispatcher renders and attempts delivery of one notification, now.
// It never retries: callers fall back to the delayed queue on failure.
type Dispatcher struct {
	email   EmailSender
	sms     SMSSender
	history HistoryCache
	bcc     []string
	baseURL string
}

func NewDispatcher(email EmailSender, sms SMSSender, history HistoryCache, bcc []string, baseURL string) *Dispatcher {
	return &Dispatcher{
		email:   email,
		sms:     sms,
		history: history,
		bcc:     bcc,
		baseURL: baseURL,
	}
}

// Dispatch implements order.Notifier. A missing recipient is a logged
// no-op, not an error; only transport failures propagate.
func (d *Dispatcher) Dispatch(ctx context.Context, in DispatchInput) error {
	o := in.Order

	recipient := in.RecipientOverride
	if recipient == "" {
		recipient = o.RecipientEmail()
	}
	if recipient == "" {
		log.Info().Str("order_number", o.Number).Str("kind", in.Kind.String()).Msg("notify: no recipient address, skipping notification")
		return nil
	}

	// Fill in a default tracking link so shipped emails always have one
	// once a tracking number exists.
	if o.TrackingNumber != "" && o.TrackingURL == "" && d.baseURL != "" {
		snapshot := *o
		snapshot.TrackingURL = fmt.Sprintf("%s/track/%s", d.baseURL, o.TrackingNumber)
		o = &snapshot
	}

	subject, html, err := Render(in.Kind, o, in.Items, in.DeliveryWindow)
	if err != nil {
		return err
	}

	receipt, err := d.email.Send(ctx, EmailMessage{
		To:       recipient,
		BCC:      d.bcc,
		Subject:  subject,
		HTML:     html,
		Category: "order-" + in.Kind.String(),
	})
	if err != nil {
		return fmt.Errorf("notify: failed to send %s email for order %s: %w", in.Kind, o.Number, err)
	}

	log.Info().
		Str("order_number", o.Number).
		Str("kind", in.Kind.String()).
		Str("message_id", receipt.MessageID).
		Msg("notify: email sent")

	if smsKinds[in.Kind] && d.sms != nil {
		d.sms.SendOrderSMS(ctx, in.Kind, o, o.TrackingNumber)
	}

	if d.history != nil {
		if herr := d.history.Record(ctx, o.Number, in.Kind, time.Now().UTC()); herr != nil {
			log.Warn().Err(herr).Str("order_number", o.Number).Msg("notify: failed to record notification history")
		}
	}

	return nil
}

// DispatchInput is re-exported for wiring readability.
type DispatchInput = order.DispatchInput
