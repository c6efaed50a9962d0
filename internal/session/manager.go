package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reviews_dashboard/internal/engine"
	"reviews_dashboard/internal/openai"
	"reviews_dashboard/internal/ordersapi"
	"reviews_dashboard/internal/wbapi"
	"reviews_dashboard/internal/workflow"
	"reviews_dashboard/pkg/metrics"
)

// ErrMissingCredential is the local validation failure: connect was attempted
// without both required tokens. No network call is made in that case.
var ErrMissingCredential = errors.New("session: both WB token and OpenAI key are required")

// Credentials are the per-session tokens supplied at connect.
type Credentials struct {
	WBToken     string `json:"wbToken"`
	OpenAIKey   string `json:"openaiKey"`
	OrdersToken string `json:"ordersToken"` // optional third provider
}

// Endpoints carries process-wide upstream settings shared by all sessions.
type Endpoints struct {
	WBBaseURL     string
	OpenAIBaseURL string
	OpenAIModel   string
	OrdersBaseURL string
	FetchTake     int
	WBRateRPS     int // requests per second against the WB API, 0 disables
	WBRateBurst   int
}

// Manager keeps connected sessions in memory, keyed by an opaque uuid token,
// and expires them after an idle TTL. It is safe for concurrent use.
type Manager struct {
	endpoints Endpoints
	ttl       time.Duration
	log       *zap.SugaredLogger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager constructs an empty Manager.
func NewManager(endpoints Endpoints, ttl time.Duration, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{
		endpoints: endpoints,
		ttl:       ttl,
		log:       log,
		sessions:  map[string]*Session{},
	}
}

// Connect validates the credentials, constructs the per-session clients,
// probes the WB API with a stats fetch (the connect check the dashboard has
// always done) and, on success, loads the first page of unanswered reviews.
// A failed initial load does not fail the connect: it lands in the session's
// error slot exactly like any later fetch failure would.
func (m *Manager) Connect(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.WBToken == "" || creds.OpenAIKey == "" {
		return nil, ErrMissingCredential
	}

	wb := wbapi.New(creds.WBToken,
		wbapi.WithBaseURL(m.endpoints.WBBaseURL),
		wbapi.WithRateLimit(m.endpoints.WBRateRPS, m.endpoints.WBRateBurst),
		wbapi.WithLogger(m.log),
	)
	ai := openai.New(creds.OpenAIKey,
		openai.WithBaseURL(m.endpoints.OpenAIBaseURL),
		openai.WithModel(m.endpoints.OpenAIModel),
		openai.WithLogger(m.log),
	)
	var orders *ordersapi.Client
	if creds.OrdersToken != "" && m.endpoints.OrdersBaseURL != "" {
		orders = ordersapi.New(m.endpoints.OrdersBaseURL, creds.OrdersToken, ordersapi.WithLogger(m.log))
	}

	stats, err := wb.Stats(ctx)
	if err != nil {
		metrics.IncrementAPIError("wb", "stats")
		return nil, fmt.Errorf("wb connection check failed: %w", err)
	}

	eng := engine.New(wb, m.endpoints.FetchTake, m.log)
	ctrl := workflow.New(ai, wb, eng, m.log)
	ctrl.SetStats(stats)

	sess := &Session{
		Token:    uuid.NewString(),
		WB:       wb,
		AI:       ai,
		Orders:   orders,
		Engine:   eng,
		Workflow: ctrl,
	}
	sess.Touch()

	if err := eng.Reset(ctx, false); err != nil {
		metrics.IncrementAPIError("wb", "fetch")
		sess.SetError(fmt.Sprintf("Ошибка загрузки: %v", err))
	} else {
		metrics.FeedbackFetches.WithLabelValues("refresh").Inc()
	}

	m.mu.Lock()
	m.sessions[sess.Token] = sess
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	m.log.Infow("session connected", "token", sess.Token, "unanswered", stats.CountUnanswered)
	return sess, nil
}

// Get returns the session for the token and refreshes its idle timer.
func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()
	if ok {
		sess.Touch()
	}
	return sess, ok
}

// Delete drops the session. Safe to call for unknown tokens.
func (m *Manager) Delete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return
	}
	delete(m.sessions, token)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.log.Infow("session closed", "token", token)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle longer than the TTL. Driven by the ticker
// scheduler from main.
func (m *Manager) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	for token, sess := range m.sessions {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if sess.idleSince().Before(cutoff) {
			delete(m.sessions, token)
			m.log.Infow("session expired", "token", token)
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
}
