package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/disputeops/internal/auth/domain"
	"github.com/smallbiznis/disputeops/internal/auth/password"
	"github.com/smallbiznis/disputeops/internal/observability/logger"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string              `json:"token"`
	ExpiresAt string              `json:"expires_at"`
	User      authdomain.UserView `json:"user"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || req.Password == "" {
		AbortWithError(c, newValidationError("username", "required", "username and password are required"))
		return
	}

	ctx := c.Request.Context()
	limit, err := s.limiter.AllowLogin(ctx, identifier, c.ClientIP())
	if err != nil {
		logger.FromContext(ctx).Warn("login rate limit check failed", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	if !limit.Allowed {
		s.denyRateLimit(c, normalizeRateLimitEndpoint(c), rateLimitReasonLoginAttempt, limit)
		return
	}

	result, err := s.authsvc.Login(ctx, authdomain.LoginRequest{
		Identifier: identifier,
		Password:   req.Password,
		UserAgent:  c.Request.UserAgent(),
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		s.audit(c, "LOGIN_FAILED", "user", nil, map[string]any{"username": identifier})
		AbortWithError(c, err)
		return
	}

	if err := s.limiter.ResetLogin(ctx, identifier, c.ClientIP()); err != nil {
		logger.FromContext(ctx).Warn("login rate limit reset failed", zap.Error(err))
	}

	userID := result.User.ID
	s.audit(c, "LOGIN", "user", &userID, map[string]any{"username": result.User.Username})

	c.JSON(http.StatusOK, loginResponse{
		Token:     result.RawToken,
		ExpiresAt: result.ExpiresAt.UTC().Format(timeLayout),
		User:      result.User,
	})
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "LOGOUT", "user", nil, nil)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": principal.User.View()})
}

func (s *Server) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if strings.TrimSpace(req.Username) == "" {
		AbortWithError(c, newValidationError("username", "required", "username is required"))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}
	if len(strings.TrimSpace(req.Password)) < password.MinLength {
		AbortWithError(c, newValidationError("password", "weak_password", "password is too short"))
		return
	}

	user, err := s.authsvc.CreateUser(c.Request.Context(), authdomain.CreateUserRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     authdomain.Role(strings.ToLower(strings.TrimSpace(req.Role))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	userID := user.ID.String()
	s.audit(c, "REGISTER_USER", "user", &userID, map[string]any{
		"username": user.Username,
		"role":     string(user.Role),
	})
	c.JSON(http.StatusCreated, gin.H{"user": user.View()})
}
