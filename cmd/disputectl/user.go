package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/disputeops/internal/audit"
	auditdomain "github.com/smallbiznis/disputeops/internal/audit/domain"
	auditcontext "github.com/smallbiznis/disputeops/internal/auditcontext"
	"github.com/smallbiznis/disputeops/internal/auth"
	authdomain "github.com/smallbiznis/disputeops/internal/auth/domain"
	"github.com/smallbiznis/disputeops/internal/auth/password"
	"github.com/smallbiznis/disputeops/internal/authorization"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage dashboard users",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var req authdomain.CreateUserRequest
	var role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a dashboard user unless the username is taken",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(req.Password) < password.MinLength {
				return fmt.Errorf("password must be at least %d characters", password.MinLength)
			}
			req.Role = authdomain.Role(strings.ToLower(strings.TrimSpace(role)))
			if !req.Role.Valid() {
				return errors.New("role must be analyst or admin")
			}

			var (
				authSvc  authdomain.Service
				authzSvc authorization.Service
				auditSvc auditdomain.Service
			)
			return withApp(cmd.Context(), func(ctx context.Context) error {
				ctx = auditcontext.WithActor(ctx, auditcontext.ActorTypeSystem, cliActor)
				if err := authzSvc.Authorize(ctx, authorization.RoleSystem, authorization.RoleSystem,
					authorization.ObjectUser, authorization.ActionUserCreate); err != nil {
					return err
				}

				user, created, err := authSvc.EnsureUser(ctx, req)
				if err != nil {
					return err
				}
				if !created {
					fmt.Fprintf(cmd.OutOrStdout(), "user %s already exists (%s)\n", user.Username, user.ID)
					return nil
				}

				actorID := cliActor
				userID := user.ID.String()
				_ = auditSvc.AuditLog(ctx, auditcontext.ActorTypeSystem, &actorID, "REGISTER_USER", "user", &userID, map[string]any{
					"username": user.Username,
					"role":     string(user.Role),
				})
				fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Username, user.ID)
				return nil
			},
				authorization.Module,
				audit.Module,
				auth.Module,
				fx.Populate(&authSvc, &authzSvc, &auditSvc),
			)
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "login name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", string(authdomain.RoleAnalyst), "analyst or admin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
