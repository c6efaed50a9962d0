package wbapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchPage(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/feedbacks", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "false", q.Get("isAnswered"))
		assert.Equal(t, "100", q.Get("take"))
		assert.Equal(t, "0", q.Get("skip"))
		assert.Equal(t, "dateDesc", q.Get("order"))

		json.NewEncoder(w).Encode(feedbacksListResp{
			Data: feedbacksListData{
				Feedbacks: []Feedback{{
					ID:               "fb-1",
					UserName:         "Анна",
					Text:             "Отличный товар",
					ProductValuation: 5,
					CreatedDate:      created,
					PhotoLinks:       []PhotoLink{{FullSize: "https://img/full.jpg", MiniSize: "https://img/mini.jpg"}},
					Bables:           []string{"качество"},
				}},
			},
		})
	}))
	defer server.Close()

	cli := New("test-token", WithBaseURL(server.URL))
	fbs, err := cli.FetchPage(context.Background(), false, 100, 0)
	require.NoError(t, err)
	require.Len(t, fbs, 1)
	assert.Equal(t, "fb-1", fbs[0].ID)
	assert.Equal(t, "Анна", fbs[0].UserName)
	assert.True(t, fbs[0].CreatedDate.Equal(created))
	assert.True(t, fbs[0].HasMedia())
	assert.False(t, fbs[0].IsAnswered())
}

func TestClient_FetchPage_ValidatesArgs(t *testing.T) {
	cli := New("test-token")

	_, err := cli.FetchPage(context.Background(), false, 0, 0)
	assert.Error(t, err)
	_, err = cli.FetchPage(context.Background(), false, MaxTake+1, 0)
	assert.Error(t, err)
	_, err = cli.FetchPage(context.Background(), false, 100, -1)
	assert.Error(t, err)
}

func TestClient_FetchPage_APIErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(feedbacksListResp{Error: true, ErrorText: "token is invalid"})
	}))
	defer server.Close()

	cli := New("bad-token", WithBaseURL(server.URL))
	_, err := cli.FetchPage(context.Background(), false, 100, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is invalid")
}

func TestClient_FetchPage_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("unauthorized"))
	}))
	defer server.Close()

	cli := New("bad-token", WithBaseURL(server.URL))
	_, err := cli.FetchPage(context.Background(), false, 100, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_Answer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/feedbacks/answer", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body answerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "fb-1", body.ID)
		assert.Equal(t, "Спасибо!", body.Text)

		json.NewEncoder(w).Encode(genericResponse{})
	}))
	defer server.Close()

	cli := New("test-token", WithBaseURL(server.URL))
	require.NoError(t, cli.Answer(context.Background(), "fb-1", "Спасибо!"))
}

func TestClient_Answer_DuplicateFailsServerSide(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(genericResponse{Error: true, ErrorText: "feedback already answered"})
	}))
	defer server.Close()

	cli := New("test-token", WithBaseURL(server.URL))
	err := cli.Answer(context.Background(), "fb-1", "Спасибо!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already answered")
}

func TestClient_RateLimitPacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(statsResp{Data: Stats{CountUnanswered: 1}})
	}))
	defer server.Close()

	// burst 1 at 50 rps: the first call passes immediately, every later call waits 20ms
	cli := New("test-token", WithBaseURL(server.URL), WithRateLimit(50, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := cli.Stats(context.Background())
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond,
		"limiter must delay calls past the burst")
}

func TestClient_RateLimitDisabledByDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(statsResp{Data: Stats{CountUnanswered: 1}})
	}))
	defer server.Close()

	cli := New("test-token", WithBaseURL(server.URL), WithRateLimit(0, 0))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := cli.Stats(context.Background())
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_Stats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/feedbacks/count-unanswered", r.URL.Path)
		json.NewEncoder(w).Encode(statsResp{Data: Stats{CountUnanswered: 52, Valuation: 4.8}})
	}))
	defer server.Close()

	cli := New("test-token", WithBaseURL(server.URL))
	stats, err := cli.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 52, stats.CountUnanswered)
	assert.InDelta(t, 4.8, stats.Valuation, 0.001)
}
