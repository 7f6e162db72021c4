package clob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clob API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://clob.polymarket.com"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

type PriceRequest struct {
	TokenID string `json:"token_id"`
	Side    string `json:"side"`
}

// SidePrices carries the top-of-book quotes for one token as decimal strings.
type SidePrices struct {
	Buy  string `json:"BUY"`
	Sell string `json:"SELL"`
}

// GetPrices issues one batched price lookup for a set of token/side pairs.
func (c *Client) GetPrices(ctx context.Context, requests []PriceRequest) (map[string]SidePrices, error) {
	if len(requests) == 0 {
		return map[string]SidePrices{}, nil
	}
	payload, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to encode price request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/prices", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	var prices map[string]SidePrices
	if err := json.Unmarshal(body, &prices); err != nil {
		return nil, fmt.Errorf("failed to decode prices: %w", err)
	}
	return prices, nil
}

// BuySellRequests expands token ids into BUY and SELL lookups for GetPrices.
func BuySellRequests(tokenIDs []string) []PriceRequest {
	out := make([]PriceRequest, 0, len(tokenIDs)*2)
	for _, id := range tokenIDs {
		if id == "" {
			continue
		}
		out = append(out,
			PriceRequest{TokenID: id, Side: "BUY"},
			PriceRequest{TokenID: id, Side: "SELL"},
		)
	}
	return out
}
