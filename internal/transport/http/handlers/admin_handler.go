package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justaplayground/devnet/internal/service"
)

type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	st, err := h.admin.Stats(c.Request.Context(), CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.admin.Users(c.Request.Context(), CallerFrom(c), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) Posts(c *gin.Context) {
	posts, err := h.admin.Posts(c.Request.Context(), CallerFrom(c), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *AdminHandler) Activity(c *gin.Context) {
	entries, err := h.admin.Activity(c.Request.Context(), CallerFrom(c), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *AdminHandler) ToggleRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	role := service.Role(c.Param("role"))
	value, err := h.admin.ToggleRole(c.Request.Context(), id, role, CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile_id": id, "role": role, "enabled": value})
}
