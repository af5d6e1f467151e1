package answer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davigonia/mr-learning/internal/models"
)

func TestChatClient_Ask(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Role: "assistant", Content: "The sky is blue."}}}})
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "test-key", "")
	answer, err := c.Ask(context.Background(), Request{
		Question:         "what color is the sky",
		Language:         models.LanguageEnglish,
		ContentFiltering: models.FilterModerate,
	})

	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", answer)
	assert.Equal(t, "grok-3", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "5-8 years old")
	assert.Contains(t, got.Messages[0].Content, "MODERATE")
	assert.Equal(t, "what color is the sky", got.Messages[1].Content)
	assert.Equal(t, 0.5, got.Temperature)
	assert.Equal(t, 100, got.MaxTokens)
}

func TestChatClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Kind
	}{
		{"auth", http.StatusUnauthorized, KindAuth},
		{"rate limited", http.StatusTooManyRequests, KindRateLimited},
		{"server", http.StatusInternalServerError, KindServer},
		{"bad gateway", http.StatusBadGateway, KindServer},
		{"unexpected", http.StatusTeapot, KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewChatClient(srv.URL, "k", "")
			_, err := c.Ask(context.Background(), Request{Question: "q", Language: models.LanguageEnglish})
			require.Error(t, err)
			assert.Equal(t, tt.want, Classify(err))
		})
	}
}

func TestChatClient_NetworkErrorClassifiedAsNetwork(t *testing.T) {
	c := NewChatClient("http://127.0.0.1:1", "k", "")
	_, err := c.Ask(context.Background(), Request{Question: "q", Language: models.LanguageEnglish})
	require.Error(t, err)
	assert.Equal(t, KindNetwork, Classify(err))
}

func TestChatClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "k", "")
	_, err := c.Ask(context.Background(), Request{Question: "q", Language: models.LanguageEnglish})
	require.Error(t, err)
	assert.Equal(t, KindMalformed, Classify(err))
}

func TestSystemPrompt(t *testing.T) {
	en := SystemPrompt(models.LanguageEnglish, models.FilterStrict)
	assert.Contains(t, en, "5-8 years old")
	assert.Contains(t, en, "STRICT")

	yue := SystemPrompt(models.LanguageCantonese, models.FilterNone)
	assert.Contains(t, yue, "5-8歲")
	assert.Contains(t, yue, "MINIMAL")

	assert.True(t, strings.Contains(SystemPrompt(models.LanguageEnglish, models.FilterModerate), "MODERATE"))
}
