package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Sampling parameters tuned for factual, non-rambly answers for children.
const (
	chatTemperature      = 0.5
	chatMaxTokens        = 100
	chatTopP             = 0.85
	chatFrequencyPenalty = 0.2
	chatPresencePenalty  = 0.1

	defaultModel   = "grok-3"
	defaultBaseURL = "https://api.x.ai/v1"
	clientTimeout  = 30 * time.Second
)

// ChatClient calls an OpenAI-style chat-completions endpoint. It enforces a
// client-side timeout independent of the caller's context.
type ChatClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewChatClient(baseURL, apiKey, model string) *ChatClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &ChatClient{
		http:    &http.Client{Timeout: clientTimeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

func (c *ChatClient) Close() error { return nil }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Temperature      float64       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *ChatClient) Ask(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt(req.Language, req.ContentFiltering)},
			{Role: "user", Content: req.Question},
		},
		Temperature:      chatTemperature,
		MaxTokens:        chatMaxTokens,
		TopP:             chatTopP,
		FrequencyPenalty: chatFrequencyPenalty,
		PresencePenalty:  chatPresencePenalty,
	})
	if err != nil {
		return "", &ServiceError{Kind: KindMalformed, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ServiceError{Kind: KindMalformed, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &ServiceError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &ServiceError{Kind: classifyStatus(resp.StatusCode), HTTPStatus: resp.StatusCode}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ServiceError{Kind: KindMalformed, Err: err}
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", &ServiceError{Kind: KindMalformed, Err: fmt.Errorf("empty completion")}
	}

	return out.Choices[0].Message.Content, nil
}

func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindMalformed
	}
}
