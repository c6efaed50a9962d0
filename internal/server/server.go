package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reviews_dashboard/internal/session"
)

// sessionHeader carries the opaque session token on every authenticated call.
const sessionHeader = "X-Session-Token"

// Server is the dashboard JSON API over the session manager.
type Server struct {
	manager *session.Manager
	router  *gin.Engine
	log     *zap.SugaredLogger
}

// New builds the router with CORS and all dashboard routes registered.
// An empty origins list allows any origin (local development default).
func New(manager *session.Manager, origins []string, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(origins) > 0 {
		corsCfg.AllowOrigins = origins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, sessionHeader)
	router.Use(cors.New(corsCfg))

	s := &Server{
		manager: manager,
		router:  router,
		log:     log,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api/v1")
	api.POST("/session", s.connect)
	api.GET("/image", s.proxyImage)

	auth := api.Group("", s.requireSession())
	auth.DELETE("/session", s.disconnect)
	auth.GET("/feedbacks", s.getFeedbacks)
	auth.POST("/feedbacks/refresh", s.refreshFeedbacks)
	auth.POST("/feedbacks/more", s.loadMore)
	auth.PUT("/filter", s.setFilter)
	auth.PUT("/page", s.setPage)
	auth.GET("/stats", s.getStats)
	auth.PUT("/instructions", s.setInstructions)
	auth.POST("/feedbacks/:id/generate", s.generateReply)
	auth.PUT("/feedbacks/:id/draft", s.updateDraft)
	auth.POST("/feedbacks/:id/send", s.sendReply)
	auth.GET("/orders/:id", s.lastOrder)
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps the router into a ready-to-run http.Server.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// requireSession resolves the session token header and aborts with 401 for
// unknown or missing tokens.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(sessionHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
			return
		}
		sess, ok := s.manager.Get(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown or expired session"})
			return
		}
		c.Set("session", sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet("session").(*session.Session)
}
