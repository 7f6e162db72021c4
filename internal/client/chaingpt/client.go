package chaingpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Client wraps the ChainGPT general-chat endpoint used for batch event
// scoring. Scoring is best-effort: every failure mode degrades to an empty
// result so the pipeline never crashes on a bad AI round.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(httpClient *http.Client, host, apiKey string, logger *zap.Logger) *Client {
	if host == "" {
		host = "https://api.chaingpt.org"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// EventScore is one entry of the scoring response, keyed by event id.
type EventScore struct {
	Title string `json:"title"`
	Score *int   `json:"score"`
}

type chatRequest struct {
	Model       string `json:"model"`
	Question    string `json:"question"`
	ChatHistory string `json:"chatHistory"`
}

type chatResponse struct {
	Data struct {
		Bot string `json:"bot"`
	} `json:"data"`
}

// ScoreEvents submits one scoring prompt and returns the parsed per-event
// mapping. Network errors, non-2xx responses and malformed JSON all yield an
// empty map; they are logged, never returned.
func (c *Client) ScoreEvents(ctx context.Context, prompt string) map[string]EventScore {
	answer, err := c.ask(ctx, prompt)
	if err != nil {
		c.warn("chaingpt request failed", err)
		return map[string]EventScore{}
	}
	scores, err := ParseScores(answer)
	if err != nil {
		c.warn("chaingpt response unparseable", err)
		return map[string]EventScore{}
	}
	return scores
}

func (c *Client) ask(ctx context.Context, question string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       "general_assistant",
		Question:    question,
		ChatHistory: "off",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/chat/stream", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chaingpt API error (%d): %s", resp.StatusCode, string(body))
	}
	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	return decoded.Data.Bot, nil
}

// ParseScores strips any markdown code fences the model wrapped around its
// answer and decodes the id-keyed score object.
func ParseScores(raw string) (map[string]EventScore, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, fmt.Errorf("empty response")
	}
	var scores map[string]EventScore
	if err := json.Unmarshal([]byte(cleaned), &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

func (c *Client) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, zap.Error(err))
	}
}
