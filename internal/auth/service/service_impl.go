package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/disputeops/internal/auth/domain"
	"github.com/smallbiznis/disputeops/internal/auth/password"
	"github.com/smallbiznis/disputeops/internal/clock"
	"github.com/smallbiznis/disputeops/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sessionTokenBytes = 32
	SessionTTL        = 24 * time.Hour
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
	GenID       *snowflake.Node
	Clock       clock.Clock `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	genID       *snowflake.Node
	clock       clock.Clock
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		log:         p.Log.Named("auth.service"),
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		genID:       p.GenID,
		clock:       c,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, domain.ErrInvalidUser
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidUser
	}
	if len(strings.TrimSpace(req.Password)) < password.MinLength {
		return nil, domain.ErrInvalidCredentials
	}
	role := req.Role
	if role == "" {
		role = domain.RoleAnalyst
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	for _, probe := range []domain.User{{Username: username}, {Email: email}} {
		if _, err := s.repo.FindOne(ctx, probe); err == nil {
			return nil, domain.ErrUserExists
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Username:     username,
		Email:        email,
		PasswordHash: &hashed,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}

	s.log.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

func (s *Service) EnsureUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, bool, error) {
	existing, err := s.repo.FindOne(ctx, domain.User{Username: strings.TrimSpace(req.Username)})
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, err
	}
	user, err := s.CreateUser(ctx, req)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	probe := domain.User{Username: identifier}
	if email, err := normalizeEmail(identifier); err == nil {
		probe = domain.User{Email: email}
	}
	user, err := s.repo.FindOne(ctx, probe)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(SessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{"last_login_at": now, "updated_at": now}); err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	user.LastLoginAt = &now

	return &domain.LoginResult{
		User:      user.View(),
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}

	return s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now().UTC())
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}

	now := s.clock.Now().UTC()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return nil, err
	}

	return &domain.Principal{SessionID: session.ID, User: *user}, nil
}

func (s *Service) GetUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
