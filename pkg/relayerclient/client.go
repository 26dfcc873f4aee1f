/**
 * @description
 * This package provides a client for the bundler RPC the service relays
 * UserOperations through. It encapsulates authenticated HTTP calls,
 * request construction, and response parsing; nonce management and
 * bundling strategy live on the other side of this boundary.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package relayerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hernan-erasmo/stackup/internal/chain"
)

// Client is a client for the bundler RPC endpoint.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new bundler RPC client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// SubmitRequest is the payload for a relay submission.
type SubmitRequest struct {
	ChainID        uint64                `json:"chain_id"`
	EntryPoint     string                `json:"entry_point"`
	UserOperations []chain.UserOperation `json:"user_operations"`
}

// SubmitResponse is the bundler's answer once the operation set is mined.
type SubmitResponse struct {
	TransactionHash string `json:"transaction_hash"`
	Status          string `json:"status"` // success | failed
	Revert          string `json:"revert,omitempty"`
}

// ErrorResponse represents an error from the bundler RPC.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("relayer rpc error %d: %s", e.Code, e.Message)
}

// SubmitUserOperations sends signed operations to the bundler and blocks
// until it reports the mined result. Callers that must not block run this
// inside their own goroutine; the HTTP client enforces the upper bound.
func (c *Client) SubmitUserOperations(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal submit request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/userops", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("relayer request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read relayer response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var rpcErr ErrorResponse
		if json.Unmarshal(respBody, &rpcErr) == nil && rpcErr.Message != "" {
			return nil, &rpcErr
		}
		return nil, fmt.Errorf("relayer returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out SubmitResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode relayer response: %w", err)
	}
	return &out, nil
}
