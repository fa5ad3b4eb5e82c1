// Package notify forwards snapshot updates to external webhooks
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/baely/bezos/internal/common/errors"
	"github.com/baely/bezos/internal/transaction"
)

// Payload is the JSON body posted for every update
type Payload struct {
	Event               string              `json:"event"`
	Count               int                 `json:"count"`
	TransactionsUpdated transaction.Records `json:"transactionsUpdated"`
}

// Webhook posts each published snapshot to a URL
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhook creates a notifier for url
func NewWebhook(url string, timeout time.Duration, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Run forwards updates from sub until ctx ends or sub is closed.
// Delivery failures are logged and the update is dropped.
func (w *Webhook) Run(ctx context.Context, sub *transaction.Subscription) {
	defer sub.Close()
	w.logger.Info("Starting webhook notifier", "url", w.url)

	for {
		update, err := sub.Next(ctx)
		if err != nil {
			w.logger.Info("Stopping webhook notifier", "reason", err)
			return
		}

		if err := w.Send(ctx, update); err != nil {
			w.logger.Error("Failed to send webhook notification", "error", err)
		}
	}
}

// Send posts a single update
func (w *Webhook) Send(ctx context.Context, update transaction.Update) error {
	payload := Payload{
		Event:               transaction.EventTransactionsUpdated,
		Count:               len(update.TransactionsUpdated),
		TransactionsUpdated: update.TransactionsUpdated,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "failed to create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded with %s: %w", resp.Status, errors.ErrUpstream)
	}
	return nil
}
