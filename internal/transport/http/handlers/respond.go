package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/justaplayground/devnet/internal/apperror"
	"github.com/justaplayground/devnet/internal/service"
)

const (
	callerKey    = "caller"
	RequestIDKey = "request_id"
)

func SetCaller(c *gin.Context, caller service.Caller) { c.Set(callerKey, caller) }

// CallerFrom returns the caller the identity middleware resolved, or an
// anonymous caller.
func CallerFrom(c *gin.Context) service.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(service.Caller); ok {
			return caller
		}
	}
	return service.Caller{}
}

func respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperror.Validation:
		status = http.StatusBadRequest
	case apperror.Authorization:
		status = http.StatusForbidden
		if !CallerFrom(c).Authenticated() {
			status = http.StatusUnauthorized
		}
	case apperror.Conflict:
		status = http.StatusConflict
	case apperror.NotFound:
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		log.Printf("request %s: %s %s: %v", c.GetString(RequestIDKey), c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error", "kind": kind.String()})
		return
	}
	body := gin.H{"error": err.Error(), "kind": kind.String()}
	if apperror.Retryable(err) {
		body["retryable"] = true
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": apperror.Validation.String()})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
