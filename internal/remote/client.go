// Package remote implements the HTTP client for the remote authority:
// the spreadsheet-backed service that is the source of truth for parcel
// status once a mutation is confirmed.
//
// All mutating calls use explicit request/response handling with a
// defined success criterion. The service's earlier clients fired
// requests without inspecting the response; that silently defeats
// failure recovery and is not carried here.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ocastro/fieldsync/internal/schema"
)

// ErrRejected is returned when the remote authority answered but did
// not accept the request (success=false in the response envelope).
var ErrRejected = errors.New("remote authority rejected request")

// Client talks to the remote authority endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewClient creates a client for the given endpoint URL.
// If httpClient is nil a client with a 30s timeout is used.
// If logger is nil, a default logger writing to stderr is used.
func NewClient(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger,
	}
}

// envelope is the response wrapper every endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ActivityData is the authoritative view returned for a loaded activity:
// the syncKey -> status map seeding the projector's snapshot, plus the
// geographic area IDs the external map renderer needs to fetch.
type ActivityData struct {
	Parcels map[string]schema.Status `json:"parcels"`
	Areas   []int                    `json:"areas"`
}

// batchRequest is the tagged request variant for batched status upserts.
// The remote treats items as independent last-value-wins upserts per
// sync key; no ordering is guaranteed within a batch.
type batchRequest struct {
	Action string             `json:"action"`
	Items  []*schema.Mutation `json:"items"`
}

// batchResponse carries the per-key confirmation list, when the remote
// provides one. An empty list with success=true confirms the whole batch.
type batchResponse struct {
	Confirmed []string `json:"confirmed,omitempty"`
}

// bulletinRequest wraps a bulletin submission.
type bulletinRequest struct {
	Action   string           `json:"action"`
	Bulletin *schema.Bulletin `json:"bulletin"`
}

// Ping performs a lightweight reachability check. Used by the
// connectivity monitor; any well-formed response counts as online.
func (c *Client) Ping(ctx context.Context) error {
	var env envelope
	if err := c.get(ctx, url.Values{"action": {"ping"}}, &env); err != nil {
		return err
	}
	return nil
}

// GetActivity fetches the current status map and area list for an
// activity/cycle. Called once per activity load and after a purge.
func (c *Client) GetActivity(ctx context.Context, activityID, cycle string) (*ActivityData, error) {
	params := url.Values{
		"action":   {"getActivity"},
		"activity": {activityID},
		"cycle":    {cycle},
	}

	var env envelope
	if err := c.get(ctx, params, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, env.Message)
	}

	var data ActivityData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse activity data: %w", err)
	}
	if data.Parcels == nil {
		data.Parcels = map[string]schema.Status{}
	}

	return &data, nil
}

// ListPendingActivities returns the activities still open for field work.
func (c *Client) ListPendingActivities(ctx context.Context) ([]schema.Activity, error) {
	var env envelope
	if err := c.get(ctx, url.Values{"action": {"getPendingActivities"}}, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, env.Message)
	}

	var activities []schema.Activity
	if err := json.Unmarshal(env.Data, &activities); err != nil {
		return nil, fmt.Errorf("failed to parse activities: %w", err)
	}

	return activities, nil
}

// BatchUpdateStatus sends all pending mutations as one logical request
// and returns the sync keys the remote confirmed.
//
// Confirmation is conservative: if the response names confirmed keys,
// only those count; otherwise success applies to every submitted item.
// A rejected batch confirms nothing.
func (c *Client) BatchUpdateStatus(ctx context.Context, items []*schema.Mutation) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}

	req := batchRequest{Action: "batchUpdateStatus", Items: items}

	var env envelope
	if err := c.post(ctx, &req, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, env.Message)
	}

	var resp batchResponse
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse batch response: %w", err)
		}
	}

	if resp.Confirmed != nil {
		return resp.Confirmed, nil
	}

	keys := make([]string, len(items))
	for i, m := range items {
		keys[i] = m.SyncKey()
	}
	return keys, nil
}

// SubmitBulletin uploads the end-of-day field report.
func (c *Client) SubmitBulletin(ctx context.Context, b *schema.Bulletin) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid bulletin: %w", err)
	}

	req := bulletinRequest{Action: "submitBulletin", Bulletin: b}

	var env envelope
	if err := c.post(ctx, &req, &env); err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("%w: %s", ErrRejected, env.Message)
	}

	return nil
}

// get issues a GET with query params and decodes the envelope.
func (c *Client) get(ctx context.Context, params url.Values, env *envelope) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	return c.do(req, env)
}

// post issues a JSON POST and decodes the envelope.
func (c *Client) post(ctx context.Context, body interface{}, env *envelope) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, env)
}

func (c *Client) do(req *http.Request, env *envelope) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d from remote", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
