package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Transport performs one actual delivery attempt. Implementations are
// expected to enforce their own per-send timeout.
type Transport interface {
	Send(to, subject, body, fromAddress, fromName string) error
}

// ErrUnavailable means the transport itself could not be reached, as opposed
// to the endpoint rejecting one message. The dispatcher records these as
// degraded outcomes instead of plain failures.
var ErrUnavailable = errors.New("delivery transport unavailable")

// WebhookTransport posts each message to a serverless send endpoint.
type WebhookTransport struct {
	URL    string
	Client *http.Client
}

func NewWebhookTransport(url string) *WebhookTransport {
	return &WebhookTransport{
		URL: url,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendPayload struct {
	To          string `json:"to"`
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body"`
	FromAddress string `json:"from_address,omitempty"`
	FromName    string `json:"from_name,omitempty"`
}

func (t *WebhookTransport) Send(to, subject, body, fromAddress, fromName string) error {
	payload, err := json.Marshal(sendPayload{
		To:          to,
		Subject:     subject,
		Body:        body,
		FromAddress: fromAddress,
		FromName:    fromName,
	})
	if err != nil {
		return err
	}

	resp, err := t.Client.Post(t.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		// connection-level failure, the endpoint never saw the message
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}
	return fmt.Errorf("send rejected with status %d", resp.StatusCode)
}

var _ Transport = (*WebhookTransport)(nil)
