package transaction

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/baely/bezos/internal/common/errors"
)

// DefaultFeedURL is the mock API the feed has historically been served from
const DefaultFeedURL = "https://61b3dea5af5ff70017ca20bf.mockapi.io/transactions"

// Fetcher retrieves the full, unfiltered transaction list
type Fetcher interface {
	Fetch(ctx context.Context) (Records, error)
}

// FeedClient fetches transactions from the remote feed over HTTP
type FeedClient struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewFeedClient creates a client for url. Requests are bounded by timeout.
func NewFeedClient(url string, timeout time.Duration) *FeedClient {
	return &FeedClient{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used to report skipped records
func (c *FeedClient) WithLogger(logger *slog.Logger) *FeedClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Fetch downloads and decodes the feed
func (c *FeedClient) Fetch(ctx context.Context) (Records, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("feed request failed with status %d: %w", resp.StatusCode, errors.ErrUpstream)
	}

	var elements []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, errors.Wrap(errors.ErrUpstream, "failed to decode feed: %v", err)
	}
	if elements == nil {
		return nil, errors.Wrap(errors.ErrUpstream, "feed returned null instead of a list")
	}

	return c.decodeRecords(elements), nil
}

// decodeRecords keeps every element that decodes as a Record and drops the rest
func (c *FeedClient) decodeRecords(elements []json.RawMessage) Records {
	records := make(Records, 0, len(elements))
	for i, raw := range elements {
		var r Record
		if err := json.Unmarshal(raw, &r); err != nil {
			c.logger.Warn("Skipping malformed feed record", "index", i, "error", err)
			continue
		}
		records = append(records, r)
	}
	return records
}
