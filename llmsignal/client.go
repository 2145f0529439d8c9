// Package llmsignal provides an optional, BYOK (bring-your-own-key)
// LLM-backed SEO extended signal: semantic topic extraction and a coarse
// "voice/E-A-T" (experience, expertise, authoritativeness,
// trustworthiness) heuristic summary, both derived from a single chat
// completion call against any OpenAI-compatible endpoint.
package llmsignal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/webauditor/auditerr"
)

// Params is per-run BYOK configuration. An empty APIKey disables the
// signal entirely; callers should not construct a Client in that case.
type Params struct {
	APIKey  string
	Model   string
	BaseURL string // e.g. "https://api.openai.com/v1"
}

// Client is a minimal OpenAI-compatible chat completion client, built on
// net/http directly rather than a provider SDK so any compatible endpoint
// (OpenAI, Azure OpenAI, a local gateway) works unmodified.
type Client struct {
	http   *http.Client
	params Params
}

// New builds a client. Pass nil for httpClient to use a new zero-value
// http.Client (no timeout).
func New(httpClient *http.Client, params Params) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{http: httpClient, params: params}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type signalResult struct {
	Topics     []string `json:"topics"`
	EATScore   int      `json:"eat_score"`
	EATSummary string   `json:"eat_summary"`
}

// Analyze sends a truncated excerpt of the page's text content to the LLM
// and returns extracted topics plus a 0..100 E-A-T heuristic score.
func (c *Client) Analyze(ctx context.Context, textContent string) (topics []string, eatScore int, eatSummary string, err error) {
	excerpt := textContent
	if len(excerpt) > 6000 {
		excerpt = excerpt[:6000]
	}

	reqBody := chatRequest{
		Model: c.params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: excerpt},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, 0, "", fmt.Errorf("llmsignal: marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.params.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, 0, "", fmt.Errorf("llmsignal: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.params.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, "", auditerr.New(auditerr.CodeAnalyzerFailure, "llm signal request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", auditerr.New(auditerr.CodeAnalyzerFailure, "failed to read llm signal response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, 0, "", classifyError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, 0, "", auditerr.New(auditerr.CodeAnalyzerFailure, "failed to parse llm signal response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, 0, "", auditerr.New(auditerr.CodeAnalyzerFailure, "llm signal returned no choices", nil)
	}

	var result signalResult
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &result); err != nil {
		return nil, 0, "", auditerr.New(auditerr.CodeAnalyzerFailure, "llm signal returned invalid JSON", err)
	}

	return result.Topics, result.EATScore, result.EATSummary, nil
}

const systemPrompt = `You assess the subject-matter topics and trust signals of a single web page's text content.

Return ONLY valid JSON matching this shape, no markdown fences or explanation:
{"topics": ["..."], "eat_score": 0, "eat_summary": "..."}

topics: up to 5 short semantic topic labels for the content.
eat_score: 0-100 estimate of experience/expertise/authoritativeness/trustworthiness signals present in the text (author credentials, citations, first-person experience, hedging/overclaiming language).
eat_summary: one sentence explaining the score.`

func classifyError(statusCode int, body []byte) *auditerr.Error {
	var errResp chatErrorResponse
	msg := "llm signal API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}
	return auditerr.NewHTTPError(statusCode, msg)
}
