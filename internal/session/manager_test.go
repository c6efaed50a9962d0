package session

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

func fakeWB(t *testing.T, statsStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/feedbacks/count-unanswered":
			if statsStatus != http.StatusOK {
				w.WriteHeader(statsStatus)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"countUnanswered": 7, "valuation": 4.2},
			})
		case "/api/v1/feedbacks":
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"feedbacks": []any{}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testManager(t *testing.T, wbURL string, ttl time.Duration) *Manager {
	t.Helper()
	return NewManager(Endpoints{
		WBBaseURL:     wbURL,
		OpenAIBaseURL: "http://openai.invalid",
		FetchTake:     100,
	}, ttl, nil)
}

func TestConnect_RequiresBothTokens(t *testing.T) {
	m := testManager(t, "http://wb.invalid", time.Hour)

	_, err := m.Connect(context.Background(), Credentials{WBToken: "wb"})
	assert.ErrorIs(t, err, ErrMissingCredential)

	_, err = m.Connect(context.Background(), Credentials{OpenAIKey: "sk"})
	assert.ErrorIs(t, err, ErrMissingCredential)

	assert.Zero(t, m.Count())
}

func TestConnect_ProbesStats(t *testing.T) {
	wb := fakeWB(t, http.StatusOK)
	defer wb.Close()

	m := testManager(t, wb.URL, time.Hour)
	sess, err := m.Connect(context.Background(), Credentials{WBToken: "wb", OpenAIKey: "sk"})
	require.NoError(t, err)
	require.NotNil(t, sess)

	stats, ok := sess.Workflow.Stats()
	require.True(t, ok)
	assert.Equal(t, 7, stats.CountUnanswered)
	assert.Nil(t, sess.Orders, "orders client only with its own token")

	got, ok := m.Get(sess.Token)
	require.True(t, ok)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, m.Count())
}

func TestConnect_FailedProbeFailsConnect(t *testing.T) {
	wb := fakeWB(t, http.StatusUnauthorized)
	defer wb.Close()

	m := testManager(t, wb.URL, time.Hour)
	_, err := m.Connect(context.Background(), Credentials{WBToken: "bad", OpenAIKey: "sk"})
	require.Error(t, err)
	assert.Zero(t, m.Count())
}

func TestDelete(t *testing.T) {
	wb := fakeWB(t, http.StatusOK)
	defer wb.Close()

	m := testManager(t, wb.URL, time.Hour)
	sess, err := m.Connect(context.Background(), Credentials{WBToken: "wb", OpenAIKey: "sk"})
	require.NoError(t, err)

	m.Delete(sess.Token)
	_, ok := m.Get(sess.Token)
	assert.False(t, ok)

	m.Delete("unknown") // no-op
}

func TestSweep_ExpiresIdleSessions(t *testing.T) {
	wb := fakeWB(t, http.StatusOK)
	defer wb.Close()

	m := testManager(t, wb.URL, time.Millisecond)
	sess, err := m.Connect(context.Background(), Credentials{WBToken: "wb", OpenAIKey: "sk"})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	m.Sweep(context.Background())

	_, ok := m.Get(sess.Token)
	assert.False(t, ok)
	assert.Zero(t, m.Count())
}
