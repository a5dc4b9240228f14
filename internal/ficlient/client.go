// Package ficlient is the outbound HTTP client for FI node endpoints:
// stats polling for reconciliation and best-effort notifications.
package ficlient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

const defaultTimeout = 5 * time.Second

// Client talks to FI nodes. Every call carries an explicit timeout; an
// FI being down surfaces as CodeUnreachable so callers can isolate the
// failure per FI.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats is the balance snapshot an FI node reports on GET /stats.
type Stats struct {
	FIID             string  `json:"fi_id"`
	AvailableBalance float64 `json:"available_balance"`
	InUserHands      float64 `json:"in_user_hands"`
	WalletCount      int     `json:"wallet_count"`
}

// FetchStats polls an FI's live balance snapshot.
func (c *Client) FetchStats(ctx context.Context, endpoint string) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("build stats request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnreachable, "fi stats endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.CodeUnreachable, "fi stats endpoint returned %d", resp.StatusCode)
	}
	var stats Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnreachable, "malformed fi stats response")
	}
	return &stats, nil
}

// NotifyAllocation tells an FI that funds were credited to it.
func (c *Client) NotifyAllocation(ctx context.Context, endpoint string, a domain.AllocationMade) error {
	return c.post(ctx, endpoint+"/receive-allocation", map[string]any{
		"fi_id":          a.FIID,
		"transaction_id": a.TransactionID,
		"amount":         a.Amount,
	})
}

// NotifyFreezeTransition tells an FI about a freeze or unfreeze of one
// of its entities.
func (c *Client) NotifyFreezeTransition(ctx context.Context, endpoint string, f domain.FreezeTransition) error {
	path := "/compliance/unfreeze"
	if f.Frozen {
		path = "/compliance/freeze"
	}
	return c.post(ctx, endpoint+path, map[string]any{
		"entity_type": f.EntityType,
		"entity_id":   f.EntityID,
		"fi_id":       f.FIID,
		"reason":      f.Reason,
		"actor":       f.Actor,
	})
}

func (c *Client) post(ctx context.Context, url string, body any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CodeUnreachable, "fi notification endpoint unreachable")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return errors.Newf(errors.CodeUnreachable, "fi notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}
