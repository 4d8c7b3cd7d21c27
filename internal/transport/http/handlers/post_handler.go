package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justaplayground/devnet/internal/models"
	"github.com/justaplayground/devnet/internal/service"
)

type PostHandler struct {
	posts      *service.PostService
	engagement *service.EngagementService
}

func NewPostHandler(posts *service.PostService, engagement *service.EngagementService) *PostHandler {
	return &PostHandler{posts: posts, engagement: engagement}
}

type saveReq struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Excerpt string   `json:"excerpt"`
	Tags    []string `json:"tags"`
	Status  string   `json:"status"`
}

func (r saveReq) status() models.PostStatus {
	if r.Status == "" {
		return models.StatusDraft
	}
	return models.PostStatus(r.Status)
}

func (r saveReq) input(id uint) service.SaveInput {
	return service.SaveInput{ID: id, Title: r.Title, Content: r.Content, Excerpt: r.Excerpt, Tags: r.Tags}
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	var req saveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	post, err := h.posts.Save(c.Request.Context(), req.input(0), req.status(), CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) UpdatePost(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req saveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	post, err := h.posts.Save(c.Request.Context(), req.input(id), req.status(), CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

type statusReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *PostHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	post, err := h.posts.ChangeStatus(c.Request.Context(), id, models.PostStatus(req.Status), CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), id, CallerFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.posts.GetBySlug(c.Request.Context(), c.Param("slug"), CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Feed(c *gin.Context) {
	posts, err := h.posts.Feed(c.Request.Context(), service.FeedQuery{
		TagSlug: c.Query("tag"),
		Limit:   queryInt(c, "limit", 0),
		Offset:  queryInt(c, "offset", 0),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) ListComments(c *gin.Context) {
	post, err := h.posts.GetBySlug(c.Request.Context(), c.Param("slug"), CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	comments, err := h.engagement.ListComments(c.Request.Context(), post.ID, CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// EngagementState reports whether the caller likes or bookmarks the post.
func (h *PostHandler) EngagementState(c *gin.Context) {
	post, err := h.posts.GetBySlug(c.Request.Context(), c.Param("slug"), CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	state, err := h.engagement.State(c.Request.Context(), post.ID, CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
