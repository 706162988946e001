package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/repository"
	"github.com/d60-Lab/skycial/pkg/response"
)

const viewerKey = "viewer"

// ViewerResolver turns a bearer token into the current viewer.
type ViewerResolver interface {
	ParseToken(token string) (string, error)
	Viewer(ctx context.Context, userID string) (*model.Viewer, error)
}

// OptionalAuth 有 token 时解析出 viewer，没有 token 按匿名放行；token 无效直接 401
func OptionalAuth(resolver ViewerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		userID, err := resolver.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		viewer, err := resolver.Viewer(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				response.Unauthorized(c, "account no longer exists")
				return
			}
			response.InternalError(c, err)
			return
		}
		c.Set(viewerKey, viewer)
		c.Next()
	}
}

// RequireAuth must run after OptionalAuth.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ViewerFrom(c) == nil {
			response.Unauthorized(c, "please sign in first")
			return
		}
		c.Next()
	}
}

// ViewerFrom returns the request's viewer, or nil for anonymous requests.
func ViewerFrom(c *gin.Context) *model.Viewer {
	v, ok := c.Get(viewerKey)
	if !ok {
		return nil
	}
	viewer, _ := v.(*model.Viewer)
	return viewer
}

// bearerToken reads the Authorization header; EventSource clients cannot set
// headers, so access_token in the query is accepted as well.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	return c.Query("access_token")
}
