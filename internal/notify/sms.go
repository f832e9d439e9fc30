package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clovelane/order-service/internal/order"
)

// SMSSender wraps the third-party SMS API. Sending is fire and forget:
// failures are logged here and never surface to the caller.
type SMSSender interface {
	SendOrderSMS(ctx context.Context, kind order.NotificationKind, o *order.Order, trackingNumber string)
}

type SMSClient struct {
	apiURL     string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewSMSClient(apiURL, apiKey, from string) *SMSClient {
	return &SMSClient{
		apiURL:     apiURL,
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type smsSendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

func (c *SMSClient) SendOrderSMS(ctx context.Context, kind order.NotificationKind, o *order.Order, trackingNumber string) {
	if c.apiURL == "" {
		// Unconfigured transport is a supported deployment, not an error.
		return
	}

	phone := o.RecipientPhone()
	if phone == "" {
		log.Debug().Str("order_number", o.Number).Msg("notify: no phone on order, skipping SMS")
		return
	}

	body := smsText(kind, o, trackingNumber)
	if body == "" {
		return
	}

	data, err := json.Marshal(smsSendRequest{From: c.from, To: phone, Body: body})
	if err != nil {
		log.Error().Err(err).Str("order_number", o.Number).Msg("notify: failed to marshal SMS request")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(data))
	if err != nil {
		log.Error().Err(err).Str("order_number", o.Number).Msg("notify: failed to create SMS request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("order_number", o.Number).Msg("notify: SMS provider call failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error().Int("status", resp.StatusCode).Str("order_number", o.Number).Msg("notify: SMS provider returned error")
		return
	}

	log.Info().Str("order_number", o.Number).Str("kind", kind.String()).Msg("notify: SMS sent")
}

func smsText(kind order.NotificationKind, o *order.Order, trackingNumber string) string {
	switch kind {
	case order.KindShipped:
		if trackingNumber != "" {
			return fmt.Sprintf("Your order %s has shipped. Track it with %s.", o.Number, trackingNumber)
		}
		return fmt.Sprintf("Your order %s has shipped.", o.Number)
	case order.KindOutForDelivery:
		return fmt.Sprintf("Your order %s is out for delivery today.", o.Number)
	case order.KindDelivered:
		return fmt.Sprintf("Your order %s has been delivered. Enjoy!", o.Number)
	}
	return ""
}
