package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/disputeops/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectDashboard     = "dashboard"
	ObjectDisputeRecord = "dispute_record"
	ObjectAuditLog      = "audit_log"
	ObjectUser          = "user"
)

const (
	ActionDashboardView     = "dashboard.view"
	ActionDisputeRecordView = "dispute_record.view"
	ActionDisputeRecordLoad = "dispute_record.import"
	ActionAuditLogView      = "audit_log.view"
	ActionUserCreate        = "user.create"
)

const (
	RoleAnalyst = "analyst"
	RoleAdmin   = "admin"
	RoleSystem  = "system"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, role string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := resolveActor(actor, role)
	if err != nil {
		s.auditDenied(ctx, actorType, actorID, object, action)
		return err
	}

	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorType, actorID, object, action)
		return ErrForbidden
	}
	return nil
}

func resolveActor(actor string, role string) (string, string, string, *string, error) {
	if actor == RoleSystem {
		return actor, "role:" + RoleSystem, RoleSystem, nil, nil
	}
	if !strings.HasPrefix(actor, "user:") {
		return "", "", "", nil, ErrInvalidActor
	}

	userID, err := snowflake.ParseString(strings.TrimPrefix(actor, "user:"))
	if err != nil || userID == 0 {
		return "", "", "", nil, ErrInvalidActor
	}
	userIDStr := userID.String()

	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case RoleAnalyst, RoleAdmin:
	default:
		return actor, "", "user", &userIDStr, ErrInvalidRole
	}
	return actor, "role:" + role, "user", &userIDStr, nil
}

// ensureGrouping keeps exactly one role link for subject so a role change on
// the user record takes effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorType string, actorID *string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := object
	if err := s.auditSvc.AuditLog(ctx, actorType, actorID, "AUTHORIZATION_DENIED", "authorization", &targetID, map[string]any{
		"object":  object,
		"action":  action,
		"subject": actorSubject(actorType, actorID),
	}); err != nil {
		s.log.Warn("failed to audit denied authorization", zap.Error(err))
	}
}

func actorSubject(actorType string, actorID *string) string {
	switch actorType {
	case RoleSystem:
		return RoleSystem
	case "user":
		if actorID != nil && strings.TrimSpace(*actorID) != "" {
			return fmt.Sprintf("user:%s", strings.TrimSpace(*actorID))
		}
	}
	return ""
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Analyst permissions (read-only)
		{"role:analyst", ObjectDashboard, ActionDashboardView},
		{"role:analyst", ObjectDisputeRecord, ActionDisputeRecordView},

		// Admin permissions
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
		{"role:admin", ObjectUser, ActionUserCreate},
		{"role:admin", ObjectDisputeRecord, ActionDisputeRecordLoad},

		// System permissions (CLI and bootstrap)
		{"role:system", ObjectDisputeRecord, ActionDisputeRecordLoad},
		{"role:system", ObjectUser, ActionUserCreate},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// Admins inherit every analyst permission.
	if _, err := enforcer.AddGroupingPolicy("role:admin", "role:analyst"); err != nil {
		return err
	}
	return nil
}
