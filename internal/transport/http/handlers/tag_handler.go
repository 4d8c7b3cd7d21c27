package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justaplayground/devnet/internal/service"
)

type TagHandler struct {
	tags *service.TagRegistry
}

func NewTagHandler(tags *service.TagRegistry) *TagHandler {
	return &TagHandler{tags: tags}
}

func (h *TagHandler) Popular(c *gin.Context) {
	tags, err := h.tags.Popular(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}
