package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
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
	return fmt.Sprintf("gamma API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://gamma-api.polymarket.com"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
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
	return body, nil
}

// GetEvents fetches one listing page, filtered server-side to active, open
// events whose end date has not passed, newest created first.
func (c *Client) GetEvents(ctx context.Context, offset, limit int) ([]Event, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("active", "true")
	query.Set("closed", "false")
	query.Set("order", "createdAt")
	query.Set("ascending", "false")
	query.Set("end_date_min", time.Now().UTC().Format(time.RFC3339))

	body, err := c.doRequest(ctx, "/events", query)
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

// GetMarketRawByID returns the raw JSON body for one market. Enrichment needs
// fields (outcomes, clobTokenIds, outcomePrices) that the listing payload may
// omit or truncate.
func (c *Client) GetMarketRawByID(ctx context.Context, marketID string) ([]byte, error) {
	if marketID == "" {
		return nil, fmt.Errorf("market id is required")
	}
	return c.doRequest(ctx, "/markets/"+url.PathEscape(marketID), nil)
}
