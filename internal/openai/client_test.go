package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviews_dashboard/internal/wbapi"
)

func testFeedback() wbapi.Feedback {
	return wbapi.Feedback{
		ID:               "fb-1",
		UserName:         "Анна",
		Text:             "Кофта села после стирки",
		Cons:             "Размер",
		ProductValuation: 2,
		ProductDetails:   wbapi.ProductDetails{ProductName: "Кофта вязаная"},
	}
}

func TestClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Contains(t, req.Messages[0].Content, "Особые инструкции: отвечай неформально")
		assert.Contains(t, req.Messages[1].Content, "Кофта вязаная")
		assert.InDelta(t, DefaultTemperature, req.Temperature, 0.001)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Анна, приносим извинения за доставленные неудобства!"}},
			},
		})
	}))
	defer server.Close()

	cli := New("sk-test", WithBaseURL(server.URL))
	reply, err := cli.Generate(context.Background(), testFeedback(), "отвечай неформально")
	require.NoError(t, err)
	assert.Equal(t, "Анна, приносим извинения за доставленные неудобства!", reply)
}

func TestClient_Generate_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit"}}`))
	}))
	defer server.Close()

	cli := New("sk-test", WithBaseURL(server.URL))
	_, err := cli.Generate(context.Background(), testFeedback(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_Generate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	cli := New("sk-test", WithBaseURL(server.URL))
	_, err := cli.Generate(context.Background(), testFeedback(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
