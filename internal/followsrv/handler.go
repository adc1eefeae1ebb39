package followsrv

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tcg-hq/followers/internal/domain"
	"github.com/tcg-hq/followers/internal/logger"
	"github.com/tcg-hq/followers/internal/storage"
	"github.com/tcg-hq/followers/pkg/publishers"
)

const (
	// UserIDHeader carries the authenticated user id, set by the host proxy.
	UserIDHeader = "Mattermost-User-Id"
	// CSRFHeader must accompany every mutation.
	CSRFHeader = "X-CSRF-Token"
	// CSRFCookie, when sent, must match CSRFHeader.
	CSRFCookie = "MMCSRF"

	userIDKey = "follow_user_id"
)

// EventSink receives relationship change events. *publishers.Fanout satisfies it.
type EventSink interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Handler serves the follow endpoint of one plugin id.
type Handler struct {
	store  storage.Store
	events EventSink
	log    logger.Logger
}

// NewHandler creates a handler. events may be nil.
func NewHandler(store storage.Store, events EventSink, log logger.Logger) *Handler {
	return &Handler{store: store, events: events, log: logger.Ensure(log)}
}

// RegisterRoutes mounts the plugin routes under /plugins/<pluginID>.
func (h *Handler) RegisterRoutes(r *gin.Engine, pluginID string) {
	p := r.Group("/plugins/" + pluginID)
	{
		p.GET("/hello", h.Hello)
		p.GET("/all_follows", h.AllFollows)
		p.GET("/delete_all_follows", h.DeleteAll)
		p.GET("/followed_by", requireUser(), h.ListFollowedBy)

		follow := p.Group("/follow", requireUser())
		{
			follow.GET("", h.ListFollows)
			follow.POST("", requireCSRF(), h.Follow)
			follow.DELETE("", requireCSRF(), h.Unfollow)
		}
	}
}

// Hello handles GET /hello.
func (h *Handler) Hello(c *gin.Context) {
	c.String(http.StatusOK, "Hello, world!")
}

// ListFollows handles GET /follow: the ids the caller follows, never null.
func (h *Handler) ListFollows(c *gin.Context) {
	h.listIDs(c, h.store.ListFollows, "failed to list follows")
}

// ListFollowedBy handles GET /followed_by: the ids following the caller.
func (h *Handler) ListFollowedBy(c *gin.Context) {
	h.listIDs(c, h.store.ListFollowedBy, "failed to list followers")
}

func (h *Handler) listIDs(c *gin.Context, list func(string) ([]string, error), failure string) {
	userID := c.GetString(userIDKey)
	ids, err := list(userID)
	if err != nil {
		h.log.ErrorObj(failure, "follow_list_error", map[string]any{
			"user_id": userID,
			"path":    c.FullPath(),
			"error":   err.Error(),
		})
		abortMessage(c, http.StatusInternalServerError, failure)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, ids)
}

// Follow handles POST /follow with body {"follow_id": "..."}.
func (h *Handler) Follow(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var req domain.FollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "Error parsing request body")
		return
	}
	targetID := strings.TrimSpace(req.FollowID)
	if targetID == "" {
		abortMessage(c, http.StatusBadRequest, "follow_id is required")
		return
	}

	if err := h.store.Follow(userID, targetID); err != nil {
		h.log.ErrorObj("follow failed", "follow_error", map[string]any{
			"user_id":   userID,
			"target_id": targetID,
			"error":     err.Error(),
		})
		abortMessage(c, http.StatusInternalServerError, "failed to follow user")
		return
	}

	h.emit(c.Request.Context(), publishers.NewEvent(publishers.EventFollowCreated, userID, targetID))
	c.JSON(http.StatusOK, gin.H{"message": "followed successfully"})
}

// Unfollow handles DELETE /follow?follow_id=...
func (h *Handler) Unfollow(c *gin.Context) {
	userID := c.GetString(userIDKey)

	targetID := strings.TrimSpace(c.Query("follow_id"))
	if targetID == "" {
		abortMessage(c, http.StatusBadRequest, "follow_id is required")
		return
	}

	if err := h.store.Unfollow(userID, targetID); err != nil {
		h.log.ErrorObj("unfollow failed", "unfollow_error", map[string]any{
			"user_id":   userID,
			"target_id": targetID,
			"error":     err.Error(),
		})
		abortMessage(c, http.StatusInternalServerError, "failed to unfollow user")
		return
	}

	h.emit(c.Request.Context(), publishers.NewEvent(publishers.EventFollowDeleted, userID, targetID))
	c.JSON(http.StatusOK, gin.H{"message": "unfollowed successfully"})
}

// AllFollows handles GET /all_follows, keyed "<user>:following".
func (h *Handler) AllFollows(c *gin.Context) {
	all, err := h.store.AllFollows()
	if err != nil {
		abortMessage(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, all)
}

// DeleteAll handles GET /delete_all_follows.
func (h *Handler) DeleteAll(c *gin.Context) {
	if err := h.store.DeleteAll(); err != nil {
		abortMessage(c, http.StatusInternalServerError, err.Error())
		return
	}
	h.log.WarnObj("all follows deleted", "follow_store", map[string]any{"remote": c.ClientIP()})
	c.Status(http.StatusOK)
}

// emit publishes evt; delivery failures are logged and never fail the request.
func (h *Handler) emit(ctx context.Context, evt publishers.Event) {
	if h.events == nil {
		return
	}
	n, err := h.events.Publish(ctx, evt)
	if err != nil {
		h.log.WarnObj("follow event delivery incomplete", "follow_event_error", map[string]any{
			"event_type": evt.Type,
			"delivered":  n,
			"error":      err.Error(),
		})
		return
	}
	h.log.DebugObj("follow event delivered", "follow_event", map[string]any{
		"event_type": evt.Type,
		"delivered":  n,
	})
}

func abortMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}
