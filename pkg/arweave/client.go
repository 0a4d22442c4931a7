// Package arweave is a read-only client for an Arweave gateway:
// GraphQL transaction queries and raw payload downloads.
package arweave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Sentinel errors for gateway requests
var (
	ErrRequestFailed    = errors.New("gateway request failed")
	ErrUnexpectedStatus = errors.New("unexpected gateway status")
	ErrDecodeFailed     = errors.New("decoding gateway response failed")
	ErrQueryRejected    = errors.New("gateway rejected query")
	ErrInvalidTxID      = errors.New("invalid transaction id")
)

// DefaultGatewayURL is the public Arweave gateway
const DefaultGatewayURL = "https://arweave.net"

// maxPayloadSize caps a single downloaded payload.
const maxPayloadSize = 64 << 20

// Client represents an Arweave gateway client
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a gateway client with custom HTTP client and base URL.
// Timeouts are the responsibility of httpClient and of the per-call context.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// FindTransactions runs a transactions query and returns one page of results
func (c *Client) FindTransactions(ctx context.Context, q Query) (*Page, error) {
	body, err := json.Marshal(graphQLRequest{Query: q.Render(), Variables: map[string]any{}})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding query: %w", ErrRequestFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrRequestFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var envelope graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrQueryRejected, envelope.Errors[0].Message)
	}
	if envelope.Data == nil || envelope.Data.Transactions == nil {
		return nil, fmt.Errorf("%w: missing transactions object", ErrDecodeFailed)
	}

	return envelope.Data.Transactions.page(), nil
}

// DownloadPayload fetches the raw data of a transaction
func (c *Client) DownloadPayload(ctx context.Context, txID string) ([]byte, error) {
	if txID == "" || strings.ContainsAny(txID, "/?#") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTxID, txID)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(txID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrRequestFailed, err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading payload: %w", ErrDecodeFailed, err)
	}
	return data, nil
}
