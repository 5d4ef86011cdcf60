package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity headers set by the gateway in front of this service. The
// gateway authenticates; this service only trusts.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	CtxKeyUser = "current_user"

	RoleAdmin = "admin"
)

type User struct {
	ID   string
	Role string
}

// Identity lifts the gateway headers into the request context. No headers
// means anonymous; guards downstream decide what that's allowed to do.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if id != "" {
			c.Set(CtxKeyUser, User{
				ID:   id,
				Role: strings.TrimSpace(c.GetHeader(HeaderUserRole)),
			})
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (User, bool) {
	v, ok := c.Get(CtxKeyUser)
	if !ok {
		return User{}, false
	}
	u, ok := v.(User)
	return u, ok
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); ok {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":      "authentication required",
			"request_id": GetRequestID(c),
		})
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "authentication required",
				"request_id": GetRequestID(c),
			})
			return
		}
		if u.Role != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "forbidden",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}
