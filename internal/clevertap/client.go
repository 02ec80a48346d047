// Package clevertap implements the ingestion sink against the CleverTap
// upload API. One Send call maps to one POST of the whole batch; retries are
// owned by the dispatcher, not this client.
package clevertap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/dispatch"
	logpkg "github.com/SurturFTW/clevertap-cart-abandon/pkg/log"
)

// DefaultBaseURL is the production upload endpoint root.
const DefaultBaseURL = "https://api.clevertap.com"

// DefaultTimeout bounds a single upload call.
const DefaultTimeout = 10 * time.Second

// Options configure a Client.
type Options struct {
	// BaseURL defaults to DefaultBaseURL. The upload path is appended.
	BaseURL   string
	AccountID string
	Passcode  string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

// Client posts event batches to the CleverTap upload API.
type Client struct {
	baseURL   string
	accountID string
	passcode  string
	http      *http.Client
	logger    logpkg.Logger
}

// New returns a Client. AccountID and Passcode are required.
func New(opts Options, logger logpkg.Logger) (*Client, error) {
	if opts.AccountID == "" || opts.Passcode == "" {
		return nil, fmt.Errorf("clevertap: account id and passcode are required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &Client{
		baseURL:   opts.BaseURL,
		accountID: opts.AccountID,
		passcode:  opts.Passcode,
		http:      &http.Client{Timeout: opts.Timeout},
		logger:    logger.With(logpkg.Component("clevertap")),
	}, nil
}

// uploadRecord is one element of the upload payload's "d" array.
type uploadRecord struct {
	Identity string         `json:"identity"`
	Type     string         `json:"type"`
	Ts       int64          `json:"ts,omitempty"`
	EvtName  string         `json:"evtName"`
	EvtData  map[string]any `json:"evtData"`
}

type uploadPayload struct {
	D []uploadRecord `json:"d"`
}

// Send implements dispatch.Sink. The whole batch goes out as one request;
// a transport error, timeout, or non-2xx status fails the batch.
func (c *Client) Send(ctx context.Context, events []dispatch.Event) error {
	payload := uploadPayload{D: make([]uploadRecord, len(events))}
	for i, ev := range events {
		payload.D[i] = uploadRecord{
			Identity: ev.Identity,
			Type:     "event",
			Ts:       ev.Timestamp,
			EvtName:  ev.Name,
			EvtData:  ev.Data,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal upload payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/1/upload", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("X-CleverTap-Account-Id", c.accountID)
	req.Header.Set("X-CleverTap-Passcode", c.passcode)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	c.logger.Debug("batch uploaded", logpkg.Int("records", len(events)))
	return nil
}
