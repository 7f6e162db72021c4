package turnstile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client verifies Cloudflare Turnstile tokens via the siteverify endpoint.
type Client struct {
	host       string
	secretKey  string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, host, secretKey string) *Client {
	if host == "" {
		host = "https://challenges.cloudflare.com"
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		secretKey:  secretKey,
		httpClient: httpClient,
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks a client-supplied token. A false return with nil error means
// the token was rejected; a non-nil error means the verifier itself failed.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", c.secretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/turnstile/v0/siteverify", strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("turnstile API error (%d): %s", resp.StatusCode, string(body))
	}
	var decoded verifyResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return false, fmt.Errorf("failed to decode verify response: %w", err)
	}
	return decoded.Success, nil
}
