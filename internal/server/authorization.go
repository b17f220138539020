package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	auditcontext "github.com/smallbiznis/disputeops/internal/auditcontext"
	authdomain "github.com/smallbiznis/disputeops/internal/auth/domain"
	obscontext "github.com/smallbiznis/disputeops/internal/observability/context"
)

const (
	contextPrincipalKey = "principal"
	contextCategoryKey  = "dispute_category"
	bearerPrefix        = "bearer "
)

// AuthRequired resolves the bearer session token into a principal and tags
// the request context with the acting user.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		userID := principal.User.ID.String()
		ctx := c.Request.Context()
		ctx = auditcontext.WithActor(ctx, auditcontext.ActorTypeUser, userID)
		ctx = obscontext.WithActor(ctx, auditcontext.ActorTypeUser, userID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextPrincipalKey, principal)
		c.Next()
	}
}

// authorize gates the route on the casbin policy of the principal's role.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		actor := "user:" + principal.User.ID.String()
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, string(principal.User.Role), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func principalFromContext(c *gin.Context) (*authdomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*authdomain.Principal)
	return principal, ok && principal != nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
