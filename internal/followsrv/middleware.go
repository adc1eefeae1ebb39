package followsrv

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tcg-hq/followers/internal/logger"
)

// NewEngine returns a gin engine with recovery, request logging and the
// follow routes mounted for pluginID.
func NewEngine(h *Handler, pluginID string, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger.Ensure(log)))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.RegisterRoutes(r, pluginID)
	return r
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.InfoObj("http request", "http_request", map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_id":    c.GetString(userIDKey),
		})
	}
}

// requireUser rejects requests without the user id header.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			abortMessage(c, http.StatusBadRequest, UserIDHeader+" header missing")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// requireCSRF enforces the double-submit token: the header is mandatory and
// must equal the CSRF cookie whenever the cookie is present.
func requireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(CSRFHeader)
		if token == "" {
			abortMessage(c, http.StatusUnauthorized, "missing CSRF token")
			return
		}
		if cookie, err := c.Cookie(CSRFCookie); err == nil && cookie != token {
			abortMessage(c, http.StatusUnauthorized, "invalid CSRF token")
			return
		}
		c.Next()
	}
}
