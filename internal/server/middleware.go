package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditcontext "github.com/smallbiznis/disputeops/internal/auditcontext"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/internal/observability/logger"
	"github.com/smallbiznis/disputeops/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	rateLimitReasonUserRate     = "user-rate"
	rateLimitReasonLoginAttempt = "login-attempts"

	auditTimeout = 5 * time.Second
)

func withCategory(category disputedomain.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextCategoryKey, string(category))
		c.Next()
	}
}

func categoryFromContext(c *gin.Context) disputedomain.Category {
	return disputedomain.Category(c.GetString(contextCategoryKey))
}

// UserRateLimit spends one token of the authenticated user per API call.
func (s *Server) UserRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		res, err := s.limiter.AllowUser(ctx, principal.User.ID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("dashboard rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			s.denyRateLimit(c, endpoint, rateLimitReasonUserRate, res)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

func (s *Server) denyRateLimit(c *gin.Context, endpoint, reason string, res *ratelimit.Result) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, reason)

	retryAfter := 1
	if res != nil && res.RetryAfter > 0 {
		retryAfter = int((res.RetryAfter + time.Second - 1) / time.Second)
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}

// audit records action for the current actor without holding up the
// response. Failures are logged and counted, never returned.
func (s *Server) audit(c *gin.Context, action, targetType string, targetID *string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	actorType, actorID := auditcontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = auditcontext.ActorTypeUser
	}
	var actor *string
	if actorID != "" {
		actor = &actorID
	}

	go func() {
		ctx, cancel := context.WithTimeout(ctx, auditTimeout)
		defer cancel()
		if err := s.auditSvc.AuditLog(ctx, actorType, actor, action, targetType, targetID, metadata); err != nil {
			s.log.Warn("audit log dropped", zap.String("action", action), zap.Error(err))
			s.obsMetrics.RecordAuditDropped(ctx, action)
		}
	}()
}
