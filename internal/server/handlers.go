package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"reviews_dashboard/internal/engine"
	"reviews_dashboard/internal/session"
	"reviews_dashboard/internal/workflow"
	"reviews_dashboard/pkg/metrics"
)

type connectRequest struct {
	WBToken     string `json:"wbToken"`
	OpenAIKey   string `json:"openaiKey"`
	OrdersToken string `json:"ordersToken"`
}

type filterRequest struct {
	Ratings []int    `json:"ratings"`
	Media   string   `json:"media"`
	Tags    []string `json:"tags"`
}

type pageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type draftRequest struct {
	Text       *string `json:"text"`
	ToggleEdit bool    `json:"toggleEdit"`
}

type instructionsRequest struct {
	Text string `json:"text"`
}

// replyState is the per-item workflow state shipped alongside the view.
type replyState struct {
	Text    string         `json:"text"`
	Editing bool           `json:"editing"`
	State   workflow.State `json:"state"`
}

// dashboardState is the full render payload: the derived view, the workflow
// state for each visible item, aggregate stats and the current error banner.
func dashboardState(sess *session.Session) gin.H {
	view := sess.Engine.View()
	replies := make(map[string]replyState, len(view.Items))
	for _, fb := range view.Items {
		d, st := sess.Workflow.DraftFor(fb.ID)
		if st == workflow.StateNoDraft {
			continue
		}
		replies[fb.ID] = replyState{Text: d.Text, Editing: d.Editing, State: st}
	}

	out := gin.H{
		"view":    view,
		"replies": replies,
		"error":   sess.LastError(),
	}
	if stats, ok := sess.Workflow.Stats(); ok {
		out["stats"] = stats
	}
	return out
}

func (s *Server) connect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := s.manager.Connect(c.Request.Context(), session.Credentials{
		WBToken:     req.WBToken,
		OpenAIKey:   req.OpenAIKey,
		OrdersToken: req.OrdersToken,
	})
	if err != nil {
		if errors.Is(err, session.ErrMissingCredential) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Введите оба токена"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Ошибка подключения к WB: %v", err)})
		return
	}

	state := dashboardState(sess)
	state["token"] = sess.Token
	c.JSON(http.StatusOK, state)
}

func (s *Server) disconnect(c *gin.Context) {
	sess := currentSession(c)
	s.manager.Delete(sess.Token)
	c.Status(http.StatusNoContent)
}

func (s *Server) getFeedbacks(c *gin.Context) {
	c.JSON(http.StatusOK, dashboardState(currentSession(c)))
}

// refreshFeedbacks replaces the collection wholesale for the requested tab
// (?tab=answered|unanswered, default keeps the unanswered tab).
func (s *Server) refreshFeedbacks(c *gin.Context) {
	sess := currentSession(c)
	answered := c.Query("tab") == "answered"

	sess.SetError("")
	if err := sess.Engine.Reset(c.Request.Context(), answered); err != nil {
		if errors.Is(err, engine.ErrFetchInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": "refresh already in progress"})
			return
		}
		metrics.IncrementAPIError("wb", "fetch")
		sess.SetError(fmt.Sprintf("Ошибка загрузки: %v", err))
		c.JSON(http.StatusBadGateway, dashboardState(sess))
		return
	}
	metrics.FeedbackFetches.WithLabelValues("refresh").Inc()
	sess.Workflow.Prune()
	c.JSON(http.StatusOK, dashboardState(sess))
}

func (s *Server) loadMore(c *gin.Context) {
	sess := currentSession(c)

	sess.SetError("")
	if err := sess.Engine.LoadMore(c.Request.Context()); err != nil {
		metrics.IncrementAPIError("wb", "fetch")
		sess.SetError(fmt.Sprintf("Ошибка загрузки: %v", err))
		c.JSON(http.StatusBadGateway, dashboardState(sess))
		return
	}
	metrics.FeedbackFetches.WithLabelValues("load_more").Inc()
	c.JSON(http.StatusOK, dashboardState(sess))
}

func (s *Server) setFilter(c *gin.Context) {
	sess := currentSession(c)

	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	criteria := engine.Criteria{
		Ratings: map[int]bool{},
		Media:   engine.MediaFilter(req.Media),
		Tags:    map[string]bool{},
	}
	if req.Media == "" {
		criteria.Media = engine.MediaAny
	}
	for _, r := range req.Ratings {
		criteria.Ratings[r] = true
	}
	for _, t := range req.Tags {
		criteria.Tags[t] = true
	}

	if err := sess.Engine.SetCriteria(criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dashboardState(sess))
}

func (s *Server) setPage(c *gin.Context) {
	sess := currentSession(c)

	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PageSize != 0 {
		if err := sess.Engine.SetPageSize(req.PageSize); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Page != 0 {
		sess.Engine.SetPage(req.Page)
	}
	c.JSON(http.StatusOK, dashboardState(sess))
}

// getStats refetches the aggregate stats upstream and replaces them wholesale.
func (s *Server) getStats(c *gin.Context) {
	sess := currentSession(c)

	stats, err := sess.WB.Stats(c.Request.Context())
	if err != nil {
		metrics.IncrementAPIError("wb", "stats")
		sess.SetError(fmt.Sprintf("Ошибка загрузки статистики: %v", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": sess.LastError()})
		return
	}
	sess.Workflow.SetStats(stats)
	c.JSON(http.StatusOK, stats)
}

func (s *Server) setInstructions(c *gin.Context) {
	sess := currentSession(c)

	var req instructionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess.SetInstructions(req.Text)
	c.Status(http.StatusNoContent)
}

func (s *Server) generateReply(c *gin.Context) {
	sess := currentSession(c)
	id := c.Param("id")

	sess.SetError("")
	text, err := sess.Workflow.Generate(c.Request.Context(), id, sess.Instructions())
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrUnknownFeedback):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, workflow.ErrAlreadyAnswered), errors.Is(err, workflow.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			sess.SetError(fmt.Sprintf("Ошибка генерации ответа: %v", err))
			c.JSON(http.StatusBadGateway, gin.H{"error": sess.LastError()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "text": text})
}

func (s *Server) updateDraft(c *gin.Context) {
	sess := currentSession(c)
	id := c.Param("id")

	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Text != nil {
		if err := sess.Workflow.UpdateDraft(id, *req.Text); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.ToggleEdit {
		if _, err := sess.Workflow.ToggleEdit(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	d, st := sess.Workflow.DraftFor(id)
	c.JSON(http.StatusOK, replyState{Text: d.Text, Editing: d.Editing, State: st})
}

func (s *Server) sendReply(c *gin.Context) {
	sess := currentSession(c)
	id := c.Param("id")

	sess.SetError("")
	if err := sess.Workflow.Send(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, workflow.ErrNoDraft), errors.Is(err, workflow.ErrEmptyDraft):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, workflow.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			sess.SetError(fmt.Sprintf("Ошибка отправки: %v", err))
			c.JSON(http.StatusBadGateway, dashboardState(sess))
		}
		return
	}
	c.JSON(http.StatusOK, dashboardState(sess))
}

// lastOrder is the auxiliary customer-activity lookup against the optional
// third provider.
func (s *Server) lastOrder(c *gin.Context) {
	sess := currentSession(c)
	if sess.Orders == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order statistics provider not configured"})
		return
	}

	info, err := sess.Orders.LastOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		metrics.IncrementAPIError("orders", "last_order")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}
