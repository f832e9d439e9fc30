package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrEmailUnconfigured = errors.New("email transport is not configured")

type EmailMessage struct {
	To       string   `json:"to"`
	BCC      []string `json:"bcc,omitempty"`
	Subject  string   `json:"subject"`
	HTML     string   `json:"html"`
	Category string   `json:"category,omitempty"`
}

type SendReceipt struct {
	Provider  string `json:"provider"`
	MessageID string `json:"message_id"`
}

// EmailSender is the boundary to the third-party email delivery API.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) (*SendReceipt, error)
}

// EmailClient posts messages to an HTTP email provider.
type EmailClient struct {
	apiURL     string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewEmailClient(apiURL, apiKey, from string) *EmailClient {
	return &EmailClient{
		apiURL:     apiURL,
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type providerSendRequest struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	BCC      []string `json:"bcc,omitempty"`
	Subject  string   `json:"subject"`
	HTML     string   `json:"html"`
	Category string   `json:"category,omitempty"`
}

type providerSendResponse struct {
	ID string `json:"id"`
}

func (c *EmailClient) Send(ctx context.Context, msg EmailMessage) (*SendReceipt, error) {
	if c.apiURL == "" {
		return nil, ErrEmailUnconfigured
	}

	payload := providerSendRequest{
		From:     c.from,
		To:       msg.To,
		BCC:      msg.BCC,
		Subject:  msg.Subject,
		HTML:     msg.HTML,
		Category: msg.Category,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("notify: failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("notify: failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notify: email provider call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("notify: email provider returned status %d: %s", resp.StatusCode, body)
	}

	var pr providerSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		// Mail went out; a malformed receipt is not worth failing over.
		log.Warn().Err(err).Msg("notify: failed to decode email provider response")
	}

	return &SendReceipt{Provider: "http", MessageID: pr.ID}, nil
}
