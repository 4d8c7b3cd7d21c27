package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justaplayground/devnet/internal/service"
)

type EngagementHandler struct {
	engagement *service.EngagementService
}

func NewEngagementHandler(engagement *service.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagement: engagement}
}

type toggleFunc func(ctx context.Context, postID uint, caller service.Caller) (service.ToggleResult, error)

func (h *EngagementHandler) toggle(c *gin.Context, fn toggleFunc) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), id, CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *EngagementHandler) ToggleLike(c *gin.Context)     { h.toggle(c, h.engagement.ToggleLike) }
func (h *EngagementHandler) ToggleBookmark(c *gin.Context) { h.toggle(c, h.engagement.ToggleBookmark) }

func (h *EngagementHandler) RecordView(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	count, err := h.engagement.RecordView(c.Request.Context(), id, CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view_count": count})
}

type commentReq struct {
	Body string `json:"body"`
}

func (h *EngagementHandler) AddComment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req commentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	comment, count, err := h.engagement.AddComment(c.Request.Context(), id, CallerFrom(c), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment, "comment_count": count})
}
