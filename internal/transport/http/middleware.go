package http

import (
	"log"
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/justaplayground/devnet/internal/identity"
	"github.com/justaplayground/devnet/internal/service"
	"github.com/justaplayground/devnet/internal/transport/http/handlers"
)

const requestIDHeader = "X-Request-ID"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(handlers.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// resolveCaller turns the bearer token into a service.Caller. Requests without
// a token continue as anonymous; a bad token is rejected.
func resolveCaller(ids *identity.JWTProvider, gate *service.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == nethttp.MethodOptions {
			c.Next()
			return
		}
		id, err := ids.FromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(nethttp.StatusUnauthorized, gin.H{"error": "invalid token", "kind": "authorization"})
			return
		}
		caller, err := gate.Resolve(c.Request.Context(), id)
		if err != nil {
			log.Printf("request %s: resolve caller: %v", c.GetString(handlers.RequestIDKey), err)
			c.AbortWithStatusJSON(nethttp.StatusInternalServerError, gin.H{"error": "internal error", "kind": "internal"})
			return
		}
		handlers.SetCaller(c, caller)
		c.Next()
	}
}
