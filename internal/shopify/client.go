// Package shopify implements the remote customer/credit gateway against the
// Shopify Admin GraphQL API. This file provides the low-level GraphQL
// transport: a single authenticated POST per operation with typed decoding.
//
// Responses are decoded into per-operation structs with explicit presence
// checks rather than navigating untyped maps; each public operation in
// gateway.go declares its own response shape.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tbourn/go-credit-backend/internal/domain"
)

// DefaultAPIVersion is the Admin API version used when none is configured.
const DefaultAPIVersion = "2025-01"

// Client executes GraphQL operations against a shop's Admin API endpoint.
// The zero value is not usable; construct with NewClient.
//
// BaseURL overrides the per-shop endpoint and exists for tests; when empty,
// the endpoint is derived from the shop domain.
type Client struct {
	HTTPClient *http.Client
	APIVersion string
	BaseURL    string
}

// NewClient returns a Client with a bounded-timeout HTTP client and the
// given Admin API version (DefaultAPIVersion when empty).
func NewClient(apiVersion string) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIVersion: apiVersion,
	}
}

// graphqlRequest is the wire shape of an Admin API GraphQL call.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlEnvelope is the common response envelope: operation data plus any
// top-level GraphQL errors.
type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// endpoint returns the Admin GraphQL URL for the shop.
func (c *Client) endpoint(shop *domain.Shop) string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop.Domain, c.APIVersion)
}

// execute posts one GraphQL operation for the shop and decodes the "data"
// payload into out. Transport failures surface as *NetworkError; top-level
// GraphQL errors surface as *RemoteError. out may be nil when the caller
// only cares about errors.
func (c *Client) execute(ctx context.Context, shop *domain.Shop, op, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("shopify %s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shop), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("shopify %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", shop.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	// 5xx means the platform never produced a decision; treat like transport.
	if resp.StatusCode >= http.StatusInternalServerError {
		return &NetworkError{Op: op, Err: fmt.Errorf("http status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return &RemoteError{Op: op, Messages: []string{fmt.Sprintf("http status %d: %s", resp.StatusCode, truncateBody(raw))}}
	}

	var env graphqlEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
		}
		return &RemoteError{Op: op, Messages: msgs}
	}
	if out != nil {
		if env.Data == nil {
			return &RemoteError{Op: op, Messages: []string{"empty data payload"}}
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return nil
}

// truncateBody keeps error payloads loggable.
func truncateBody(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
